package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStorage_SetGet(t *testing.T) {
	s, err := NewSessionStorage(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "user", []byte(`{"token":"abc"}`), time.Now().Add(time.Hour)))

	data, found, err := s.Get(ctx, "user")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"token":"abc"}`, string(data))

	info, err := os.Stat(filepath.Join(s.Dir(), "user.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSessionStorage_EmptyGet(t *testing.T) {
	s, err := NewSessionStorage(t.TempDir())
	require.NoError(t, err)

	_, found, err := s.Get(context.Background(), "user")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionStorage_ExpiredIsRemoved(t *testing.T) {
	s, err := NewSessionStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Set(ctx, "user", []byte(`{}`), now.Add(time.Minute)))

	s.now = func() time.Time { return now.Add(time.Hour) }
	_, found, err := s.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = os.Stat(filepath.Join(s.Dir(), "user.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestSessionStorage_CorruptFileIsReturnedRaw(t *testing.T) {
	s, err := NewSessionStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "user.json"), []byte("not json"), 0o600))

	data, found, err := s.Get(context.Background(), "user")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "not json", string(data))
}

func TestSessionStorage_RejectsBadInput(t *testing.T) {
	s, err := NewSessionStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, s.Set(ctx, "../escape", []byte(`{}`), time.Time{}), ErrInvalidKey)
	assert.Error(t, s.Set(ctx, "user", []byte("plain"), time.Time{}))
}

func TestSessionStorage_Delete(t *testing.T) {
	s, err := NewSessionStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "user", []byte(`{}`), time.Time{}))
	require.NoError(t, s.Delete(ctx, "user"))
	require.NoError(t, s.Delete(ctx, "user"))

	_, found, err := s.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWatcher_ReportsChangedKeys(t *testing.T) {
	s, err := NewSessionStorage(t.TempDir())
	require.NoError(t, err)

	var mu sync.Mutex
	var keys []string
	w, err := s.Watch(func(key string) {
		mu.Lock()
		defer mu.Unlock()
		keys = append(keys, key)
	}, nil)
	require.NoError(t, err)
	w.Start()
	t.Cleanup(w.Stop)

	require.NoError(t, s.Set(context.Background(), "user", []byte(`{}`), time.Time{}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(keys) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, k := range keys {
		assert.Equal(t, "user", k)
	}
}

func TestKeyOf(t *testing.T) {
	key, ok := keyOf("/tmp/sessions/user.json")
	assert.True(t, ok)
	assert.Equal(t, "user", key)

	_, ok = keyOf("/tmp/sessions/.user-1234")
	assert.False(t, ok)
	_, ok = keyOf("/tmp/sessions/notes.txt")
	assert.False(t, ok)
}

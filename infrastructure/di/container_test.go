package di

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaclient/domain/session"
	"ideaclient/infrastructure/config"
	"ideaclient/infrastructure/persistence/file"
	"ideaclient/infrastructure/persistence/memory"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Environment = "test"
	cfg.Session.Backend = config.BackendMemory
	cfg.Session.Dir = t.TempDir()
	return cfg
}

func TestInitializeContainer_MemoryBackend(t *testing.T) {
	var out bytes.Buffer
	container, cleanup, err := InitializeContainer(context.Background(), testConfig(t), &out)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	assert.IsType(t, &memory.SessionStorage{}, container.Storage)
	assert.Nil(t, container.Forwarder)
	assert.Nil(t, container.Watcher)
	assert.NotNil(t, container.Stores.Ideas)
	assert.Equal(t, "http://localhost:8000/api/", container.Gateway.BaseURL())
	assert.False(t, container.Session.IsAuthenticated())

	container.Session.Logout(context.Background())
	assert.Equal(t, "/login", container.Navigator.Route())
	assert.Contains(t, out.String(), "Logout successful!")
}

func TestInitializeContainer_FileWatcherRestoresSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Backend = config.BackendFile
	cfg.Session.Watch = true

	container, cleanup, err := InitializeContainer(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(cleanup)

	require.IsType(t, &file.SessionStorage{}, container.Storage)
	require.NotNil(t, container.Watcher)

	// Another process logs in and writes the session file
	sess, err := session.New(session.TokenResponse{AccessToken: "tok", UserID: 3, Username: "frank"}, time.Now(), time.Hour)
	require.NoError(t, err)
	blob, err := sess.Encode()
	require.NoError(t, err)

	other, err := file.NewSessionStorage(cfg.Session.Dir)
	require.NoError(t, err)
	require.NoError(t, other.Set(context.Background(), cfg.Session.StorageKey, blob, sess.ExpiresAt))

	require.Eventually(t, container.Session.IsAuthenticated, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "frank", container.Session.Current().Identity.Username)
}

func TestInitializeContainer_WatcherUserSwitchResetsStores(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"frank's idea"}]`))
	}))
	t.Cleanup(api.Close)

	cfg := testConfig(t)
	cfg.API.BaseURL = api.URL + "/api/"
	cfg.Session.Backend = config.BackendFile
	cfg.Session.Watch = true

	container, cleanup, err := InitializeContainer(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(cleanup)

	other, err := file.NewSessionStorage(cfg.Session.Dir)
	require.NoError(t, err)
	signIn := func(token string, userID int64, username string) {
		t.Helper()
		sess, err := session.New(session.TokenResponse{AccessToken: token, UserID: userID, Username: username}, time.Now(), time.Hour)
		require.NoError(t, err)
		blob, err := sess.Encode()
		require.NoError(t, err)
		require.NoError(t, other.Set(context.Background(), cfg.Session.StorageKey, blob, sess.ExpiresAt))
	}
	username := func() string {
		if current := container.Session.Current(); current != nil {
			return current.Identity.Username
		}
		return ""
	}

	signIn("tok-frank", 3, "frank")
	require.Eventually(t, func() bool { return username() == "frank" }, 2*time.Second, 20*time.Millisecond)

	_, err = container.Stores.Ideas.List(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, container.Stores.Ideas.Collection())

	// Another process signs in as someone else
	signIn("tok-gwen", 4, "gwen")
	assert.Eventually(t, func() bool {
		return username() == "gwen" && container.Stores.Ideas.Collection() == nil
	}, 2*time.Second, 20*time.Millisecond, "frank's ideas are dropped")

	_, err = container.Stores.Ideas.List(context.Background(), 1)
	require.NoError(t, err)

	// and then logs out
	require.NoError(t, other.Delete(context.Background(), cfg.Session.StorageKey))
	assert.Eventually(t, func() bool {
		return !container.Session.IsAuthenticated() && container.Stores.Ideas.Collection() == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestInitializeContainer_InvalidLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Level = "loud"

	_, _, err := InitializeContainer(context.Background(), cfg, &bytes.Buffer{})
	assert.Error(t, err)
}

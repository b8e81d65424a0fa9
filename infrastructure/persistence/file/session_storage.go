// Package file provides a session storage that keeps one JSON file per key
// in a directory, so a login survives between command invocations.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

const fileExt = ".json"

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ErrInvalidKey is returned for keys that cannot be used as file names
var ErrInvalidKey = errors.New("invalid storage key")

type envelope struct {
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// SessionStorage is a ports.SessionStorage backed by a directory
type SessionStorage struct {
	dir string
	now func() time.Time
}

// NewSessionStorage creates the directory if needed
func NewSessionStorage(dir string) (*SessionStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &SessionStorage{dir: dir, now: time.Now}, nil
}

// Dir returns the directory the storage writes to
func (s *SessionStorage) Dir() string {
	return s.dir
}

func (s *SessionStorage) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

// Get returns the data stored under key. Expired files are removed.
func (s *SessionStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Hand the bytes back so the caller can report them as malformed
		return raw, true, nil
	}
	if !env.ExpiresAt.IsZero() && s.now().After(env.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return []byte(env.Data), true, nil
}

// Set writes data under key. The file is replaced atomically.
func (s *SessionStorage) Set(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("session data for %q is not JSON", key)
	}

	raw, err := json.Marshal(envelope{ExpiresAt: expiresAt, Data: data})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes key. Missing keys are a no-op.
func (s *SessionStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

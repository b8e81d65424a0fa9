// Package memory provides an in-process session storage.
//
// Records carry an expiration time and are dropped once it passes. Nothing
// survives the process, so this backend suits tests and one-shot commands.
package memory

import (
	"context"
	"sync"
	"time"
)

// SessionStorage is an in-memory ports.SessionStorage.
// It is safe for concurrent use by multiple goroutines.
type SessionStorage struct {
	records sync.Map
	now     func() time.Time
}

type record struct {
	expiresAt time.Time
	data      []byte
}

// NewSessionStorage creates an empty storage
func NewSessionStorage() *SessionStorage {
	return &SessionStorage{now: time.Now}
}

// Get returns the data stored under key. Expired records are removed and
// reported as absent.
func (s *SessionStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r, ok := s.records.Load(key)
	if !ok {
		return nil, false, nil
	}

	rec := r.(record)
	if !rec.expiresAt.IsZero() && s.now().After(rec.expiresAt) {
		s.records.Delete(key)
		return nil, false, nil
	}

	return append([]byte(nil), rec.data...), true, nil
}

// Set stores data under key until expiresAt, overwriting any previous value
func (s *SessionStorage) Set(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.records.Store(key, record{expiresAt: expiresAt, data: append([]byte(nil), data...)})
	return nil
}

// Delete removes key. Missing keys are a no-op.
func (s *SessionStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.records.Delete(key)
	return nil
}

// PeriodicCleanUp deletes expired records every interval until ctx is done
func (s *SessionStorage) PeriodicCleanUp(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.deleteExpired()
		case <-ctx.Done():
			return
		}
	}
}

func (s *SessionStorage) deleteExpired() {
	now := s.now()
	s.records.Range(func(key, value any) bool {
		rec := value.(record)
		if !rec.expiresAt.IsZero() && now.After(rec.expiresAt) {
			s.records.Delete(key)
		}
		return true
	})
}

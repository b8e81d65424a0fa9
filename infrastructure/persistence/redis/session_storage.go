// Package redis provides a Redis backed session storage.
//
// Each record is written with a TTL derived from its expiration time, so
// Redis evicts expired sessions on its own and no cleanup loop is needed.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the keys written by SessionStorage
const DefaultPrefix = "ideaclient:session:"

// SessionStorage is a ports.SessionStorage over a Redis client
type SessionStorage struct {
	rdb    goredis.UniversalClient
	prefix string
}

// Options configures the connection opened by Connect
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New wraps an existing client. An empty prefix uses DefaultPrefix.
func New(rdb goredis.UniversalClient, prefix string) *SessionStorage {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SessionStorage{rdb: rdb, prefix: prefix}
}

// Connect opens a client and checks it with PING
func Connect(ctx context.Context, opts Options) (*SessionStorage, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return New(rdb, opts.Prefix), nil
}

// Get retrieves the data associated with key
func (s *SessionStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores data under key. A zero expiresAt keeps the record until it is
// deleted; an expiresAt in the past removes it.
func (s *SessionStorage) Set(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl <= 0 {
			return s.Delete(ctx, key)
		}
	}
	return s.rdb.Set(ctx, s.prefix+key, data, ttl).Err()
}

// Delete removes key. Missing keys are a no-op.
func (s *SessionStorage) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key).Err()
}

// Close releases the underlying client
func (s *SessionStorage) Close() error {
	return s.rdb.Close()
}

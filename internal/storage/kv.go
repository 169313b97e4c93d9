// internal/storage/kv.go
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"lead-funnel/internal/common/database"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("key not found")

// KV is the persistent per-user storage the variant service writes sticky
// assignments into. Injected so the service is testable with fakes and
// degrades to reassignment when storage is unavailable.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisKV backs KV with the shared Redis client.
type RedisKV struct {
	client *database.RedisClient
}

func NewRedisKV(client *database.RedisClient) *RedisKV {
	return &RedisKV{client: client}
}

func (s *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key)
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl)
}

// MemoryKV is an in-process KV used in tests and as the fallback when no
// Redis is configured.
type MemoryKV struct {
	mu    sync.RWMutex
	data  map[string]memEntry
	clock func() time.Time
}

type memEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data:  make(map[string]memEntry),
		clock: time.Now,
	}
}

func (s *MemoryKV) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	entry, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	if !entry.expiresAt.IsZero() && s.clock().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (s *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}

	s.mu.Lock()
	s.data[key] = entry
	s.mu.Unlock()
	return nil
}

// Delete removes a key. Tests use it to simulate cleared browser storage.
func (s *MemoryKV) Delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}

// FailingKV always errors. Tests use it to simulate unavailable storage.
type FailingKV struct {
	Err error
}

func (s FailingKV) Get(context.Context, string) (string, error) {
	return "", s.Err
}

func (s FailingKV) Set(context.Context, string, string, time.Duration) error {
	return s.Err
}

package cache

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// MemoryBackend keeps entries in a bounded in-process LRU. Expired entries
// are dropped on read.
type MemoryBackend struct {
	lruCache *lru.Cache
	now      func() time.Time
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryBackend(maxEntries int) (*MemoryBackend, error) {
	c, err := lru.New(maxEntries)
	if err != nil {
		return nil, err
	}
	return &MemoryBackend{
		lruCache: c,
		now:      time.Now,
	}, nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	raw, ok := m.lruCache.Get(key)
	if !ok {
		return "", false, nil
	}
	e := raw.(cacheEntry)
	if !m.now().Before(e.expiresAt) {
		m.lruCache.Remove(key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("memory cache: ttl must be positive")
	}
	m.lruCache.Add(key, cacheEntry{
		value:     value,
		expiresAt: m.now().Add(ttl),
	})
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.lruCache.Remove(key)
	return nil
}

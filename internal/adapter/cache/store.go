package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tao_dividends_api/internal/metrics"
	"tao_dividends_api/internal/port"
)

// Key joins prefix and parts with ':'. Parts are rendered with %v and not
// escaped.
func Key(prefix string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Store puts a fixed TTL and error suppression in front of a backend.
// Nothing it returns is an error: failures read as a miss or false.
type Store struct {
	backend port.CacheBackend
	ttl     time.Duration
}

var _ port.CacheStore = (*Store)(nil)

func NewStore(backend port.CacheBackend, ttl time.Duration) (*Store, error) {
	if backend == nil {
		return nil, errors.New("cache: nil backend")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache: ttl must be positive, got %s", ttl)
	}
	return &Store{backend: backend, ttl: ttl}, nil
}

func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) Get(ctx context.Context, prefix string, parts ...interface{}) (value string, found bool) {
	key := Key(prefix, parts...)
	defer s.guard("get", key, func() { value, found = "", false })

	v, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.degraded("get", key, err)
		return "", false
	}
	if !ok {
		zap.L().Debug("cache miss", zap.String("key", key))
		return "", false
	}
	zap.L().Debug("cache hit", zap.String("key", key))
	return v, true
}

func (s *Store) Set(ctx context.Context, value, prefix string, parts ...interface{}) (ok bool) {
	key := Key(prefix, parts...)
	defer s.guard("set", key, func() { ok = false })

	if err := s.backend.Set(ctx, key, value, s.ttl); err != nil {
		s.degraded("set", key, err)
		return false
	}
	zap.L().Debug("cached value", zap.String("key", key), zap.Duration("ttl", s.ttl))
	return true
}

func (s *Store) Delete(ctx context.Context, prefix string, parts ...interface{}) (ok bool) {
	key := Key(prefix, parts...)
	defer s.guard("delete", key, func() { ok = false })

	if err := s.backend.Delete(ctx, key); err != nil {
		s.degraded("delete", key, err)
		return false
	}
	zap.L().Debug("deleted cache entry", zap.String("key", key))
	return true
}

func (s *Store) degraded(op, key string, err error) {
	metrics.CacheErrors.WithLabelValues(op).Inc()
	zap.L().Warn("cache unavailable, degrading",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err))
}

// guard turns a backend panic into the degraded result set by fallback.
func (s *Store) guard(op, key string, fallback func()) {
	if r := recover(); r != nil {
		s.degraded(op, key, fmt.Errorf("panic: %v", r))
		fallback()
	}
}

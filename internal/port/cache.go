package port

import (
	"context"
	"time"
)

// CacheBackend is a raw key/value store. Errors are returned as is.
type CacheBackend interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheStore never fails: errors degrade to a miss or false.
type CacheStore interface {
	Get(ctx context.Context, prefix string, parts ...interface{}) (string, bool)
	Set(ctx context.Context, value, prefix string, parts ...interface{}) bool
	Delete(ctx context.Context, prefix string, parts ...interface{}) bool
}

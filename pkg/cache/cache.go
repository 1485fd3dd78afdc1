package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
	ErrNotLocked = errors.New("cache: lock not held")
)

// Service is the small key/value surface the engine needs: short-lived
// markers and mutual-exclusion locks. It is never used to cache assessments.
type Service interface {
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	// TryLock acquires key for ttl without blocking. The returned token must be
	// passed to Unlock so that only the holder can release the lock.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
	Close() error
}

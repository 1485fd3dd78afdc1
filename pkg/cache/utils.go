package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// GenerateKey joins prefix and parts with ':'.
func GenerateKey(prefix string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}

// AcquireLock polls TryLock every interval until the lock is taken or ctx ends.
func AcquireLock(ctx context.Context, c Service, key string, ttl, interval time.Duration) (string, error) {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	for {
		token, ok, err := c.TryLock(ctx, key, ttl)
		if err != nil {
			return "", fmt.Errorf("try lock %s: %w", key, err)
		}
		if ok {
			return token, nil
		}
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
	}
}

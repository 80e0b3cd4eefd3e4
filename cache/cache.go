// Package cache stores upstream tool results for a limited time so repeated plans for the same
// destination do not spend API quota twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"travelplanner/config"
)

// Cache is a string key/value store with per-entry expiry. It also backs the sliding-window
// request limiter, so limits are shared wherever the cache is.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Allow records a hit on key and reports whether fewer than limit hits happened within window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Key derives a fixed-length cache key from its parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (Nop) Set(context.Context, string, string, time.Duration) error { return nil }

func (Nop) Allow(context.Context, string, int, time.Duration) (bool, error) { return true, nil }

// New builds the cache selected by cfg. The returned close func releases any connection.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, func() error, error) {
	switch cfg.Driver {
	case "", "memory":
		m := NewMemoryCache()
		return m, m.Close, nil
	case "none":
		return Nop{}, func() error { return nil }, nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewRedisCache(client, cfg.Prefix), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var cacheLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	cacheLogger = l
}

// Store is a shared key/value cache for serializable values.
type Store interface {
	// Get decodes the value stored under key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
}

// StoreOptions selects and configures a Store.
type StoreOptions struct {
	Driver          string
	TTL             time.Duration
	CleanupInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewStore builds the configured Store.
func NewStore(ctx context.Context, opts StoreOptions) (Store, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemoryStore(opts.TTL, opts.CleanupInterval), nil
	case "redis":
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.TTL)
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", opts.Driver)
	}
}

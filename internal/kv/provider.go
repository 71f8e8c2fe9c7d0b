package kv

import (
	"context"
	"fmt"
	"strings"
)

// Supported storage drivers.
const (
	DriverCookie = "cookie"
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Options selects and configures a storage driver.
type Options struct {
	Driver     string
	Cookie     CookieConfig
	Redis      RedisConfig
	SQLitePath string
}

// NewProvider builds the Provider for opts.Driver. Cookie is the default driver.
func NewProvider(ctx context.Context, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverCookie:
		return NewCookieProvider(opts.Cookie)
	case DriverMemory:
		return NewPartitionedProvider(NewMemoryBackend(), opts.Cookie)
	case DriverRedis:
		backend, err := NewRedisBackend(ctx, opts.Redis)
		if err != nil {
			return nil, err
		}
		return partitioned(backend, opts.Cookie)
	case DriverSQLite:
		backend, err := OpenSQLiteBackend(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return partitioned(backend, opts.Cookie)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, opts.Driver)
	}
}

func partitioned(backend Backend, cfg CookieConfig) (Provider, error) {
	p, err := NewPartitionedProvider(backend, cfg)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return p, nil
}

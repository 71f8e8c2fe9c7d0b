package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func setupRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	b, err := NewRedisBackend(context.Background(), RedisConfig{
		URL: "redis://" + mr.Addr(),
		TTL: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestRedisBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, mr := setupRedisBackend(t)

	_, ok, err := b.Get(ctx, "p1", "userId")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.Set(ctx, "p1", "userId", "7"))
	require.Equal(t, "7", mr.HGet(defaultRedisPrefix+"p1", "userId"))
	require.Equal(t, time.Hour, mr.TTL(defaultRedisPrefix+"p1"))

	v, ok, err := b.Get(ctx, "p1", "userId")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "7", v)

	require.NoError(t, b.Delete(ctx, "p1", "userId"))
	require.NoError(t, b.Delete(ctx, "p1", "userId"))
	_, ok, err = b.Get(ctx, "p1", "userId")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisBackendUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisBackend(context.Background(), RedisConfig{URL: "redis://" + addr})
	require.Error(t, err)
}

func TestRedisBackendInvalidURL(t *testing.T) {
	_, err := NewRedisBackend(context.Background(), RedisConfig{URL: "://bad"})
	require.ErrorContains(t, err, "invalid redis URL")
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.Addr = srv.Addr()
	cfg.Namespace = "test"

	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), 0))

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)

	missing, err := c.Get(ctx, "absent")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCache_NamespacePrefix(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.True(t, srv.Exists("test:k"))
}

func TestCache_TTLExpiry(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Second))
	srv.FastForward(2 * time.Second)

	got, err := c.Get(ctx, "short")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCache_Delete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCache_Stats(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "miss")

	stats := c.Stats()
	require.EqualValues(t, 1, stats.Hits)
	require.EqualValues(t, 1, stats.Misses)
	require.Equal(t, 0.5, stats.HitRate)
}

func TestNew_ConnectFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.DialTimeout = 100 * time.Millisecond

	_, err := New(cfg)
	require.Error(t, err)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oilmill/internal/core/id"
)

func newTestCache(t *testing.T) (*ResolverCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewResolverCache(client, time.Minute), mr
}

func TestResolverCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	_, ok, err := c.Get(ctx, "role:BULK_OIL")
	require.NoError(t, err)
	assert.False(t, ok)

	itemID := id.New()
	require.NoError(t, c.Set(ctx, "role:BULK_OIL", itemID))

	got, ok, err := c.Get(ctx, "ROLE:bulk_oil")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, itemID, got)
}

func TestResolverCache_InvalidateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(ctx, "role:LABELS", id.New()))
	require.NoError(t, c.Invalidate(ctx))

	_, ok, err := c.Get(ctx, "role:LABELS")
	require.NoError(t, err)
	assert.False(t, ok)

	ver, err := mr.Get(resolverVersionKey)
	require.NoError(t, err)
	assert.Equal(t, "2", ver)
}

func TestResolverCache_Expires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(ctx, "hint:bulk oil", id.New()))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "hint:bulk oil")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolverCache_CorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	k, err := c.key(ctx, "role:husk")
	require.NoError(t, err)
	require.NoError(t, mr.Set(k, "not-a-uuid"))

	_, ok, err := c.Get(ctx, "role:husk")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(k))
}

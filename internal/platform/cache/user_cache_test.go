package cache

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/domain/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestUserCacheRoundTrip(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	c := NewUserCache(rdb, time.Minute)
	ctx := context.Background()

	got, err := c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got, "miss must return nil")

	user := &model.User{ID: 7, Name: "Alice", Username: "alice", Email: "a@example.com", HashedPassword: "digest"}
	require.NoError(t, c.Set(ctx, user))

	got, err = c.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Empty(t, got.HashedPassword, "digest must not be cached")

	raw, err := mr.Get(keyUserByUsername + "alice")
	require.NoError(t, err)
	assert.NotContains(t, raw, "digest")

	mr.FastForward(2 * time.Minute)
	got, err = c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got, "entry must expire")
}

func TestUserCacheDisabled(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	c := NewUserCache(rdb, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &model.User{ID: 1, Username: "bob"}))
	assert.False(t, mr.Exists(keyUserByUsername+"bob"))
	got, err := c.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserCacheSurfacesRedisErrors(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	c := NewUserCache(rdb, time.Minute)
	mr.Close()

	_, err := c.Get(context.Background(), "alice")
	assert.Error(t, err)
}

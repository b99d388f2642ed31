package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a test Redis client backed by miniredis.
func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := &Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

func TestClient_SetGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	err := client.Set(ctx, "geo:pincode:560001", "Bengaluru", 1*time.Hour)
	require.NoError(t, err)

	val, err := client.Get(ctx, "geo:pincode:560001")
	require.NoError(t, err)
	assert.Equal(t, "Bengaluru", val)
}

func TestClient_GetMissingKeyIsNotAnError(t *testing.T) {
	client, _ := setupTestRedis(t)

	val, err := client.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestClient_Delete(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k1", "v1", time.Hour))
	require.NoError(t, client.Set(ctx, "k2", "v2", time.Hour))
	require.NoError(t, client.Delete(ctx, "k1", "k2"))

	exists, err := client.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_Expiration(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	exists, err := client.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists, "key should expire")
}

package promocache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a reachable Redis; set LOTTO_TEST_REDIS_ADDR to run.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("LOTTO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LOTTO_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping().Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestActivePromoIsCachedAndInvalidated(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	prefix := "lotto-test-" + uuid.NewString()
	t.Cleanup(func() { client.Del(prefix + ":" + activeKey) })

	mem := store.NewMemory()
	cached := New(mem, client, Config{Prefix: prefix, TTL: time.Minute})

	_, err := cached.GetActivePromo(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	first := &models.Promo{ID: uuid.New(), MediaRef: "file-1", CreatedAt: time.Now()}
	require.NoError(t, cached.CreatePromo(ctx, first))

	got, err := cached.GetActivePromo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file-1", got.MediaRef)

	// Written behind the cache's back: still served from Redis.
	require.NoError(t, mem.CreatePromo(ctx, &models.Promo{ID: uuid.New(), MediaRef: "file-2", CreatedAt: time.Now().Add(time.Second)}))
	got, err = cached.GetActivePromo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file-1", got.MediaRef)

	require.NoError(t, cached.CreatePromo(ctx, &models.Promo{ID: uuid.New(), MediaRef: "file-3", CreatedAt: time.Now().Add(2 * time.Second)}))
	got, err = cached.GetActivePromo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file-3", got.MediaRef)
}

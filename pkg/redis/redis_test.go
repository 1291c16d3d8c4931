package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvaught/experimental/pkg/config"
)

type cachedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestNew_Disabled(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.Nil(t, client.Redis())
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "frontier")
	ctx := context.Background()

	// 비활성 상태에서는 모든 연산이 no-op
	require.NoError(t, cache.Set(ctx, "k", cachedValue{"a", 1}, time.Minute))

	var got cachedValue
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "k"))
}

func TestCacheKeys(t *testing.T) {
	cache := NewCache(Disabled(), "frontier")

	assert.Equal(t, "frontier:cache:frontier:abc", cache.Key(FrontierKey("abc")))
	assert.Equal(t, "instruments:abc", InstrumentsKey("abc"))
}

func TestCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST not set, skipping integration test")
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	ctx := context.Background()
	client, err := New(ctx, config.RedisConfig{Host: host, Port: port, Enabled: true})
	require.NoError(t, err)
	defer client.Close()

	cache := NewCache(client, "frontier-test")
	key := FrontierKey("integration")
	defer cache.Delete(ctx, key)

	var got cachedValue
	found, err := cache.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := cachedValue{Name: "rt", Value: 0.2}
	require.NoError(t, cache.Set(ctx, key, want, time.Minute))

	found, err = cache.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

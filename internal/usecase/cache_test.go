package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func TestRedisCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	cache := NewRedisCache(client)

	ctx := context.Background()
	_, err = cache.Get(ctx, cacheKey("abc", true))
	require.True(t, errors.Is(err, redis.Nil))

	require.NoError(t, cache.Set(ctx, cacheKey("abc", true), `{"probabilities":[1]}`, time.Minute))
	value, err := cache.Get(ctx, "classification:abc:verbose")
	require.NoError(t, err)
	require.Equal(t, `{"probabilities":[1]}`, value)

	s.FastForward(2 * time.Minute)
	_, err = cache.Get(ctx, cacheKey("abc", true))
	require.True(t, errors.Is(err, redis.Nil))
}

func TestCacheKey(t *testing.T) {
	require.Equal(t, "classification:abc", cacheKey("abc", false))
	require.Equal(t, "classification:abc:verbose", cacheKey("abc", true))
}

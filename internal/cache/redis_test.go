package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/studysnap-backend/internal/config"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)

	type verdictSnapshot struct {
		UserUID string
		Verdict string
	}

	expected := verdictSnapshot{UserUID: "user-1", Verdict: "paid"}
	require.NoError(t, cache.Set("verdict:user-1", expected, time.Minute))

	var actual verdictSnapshot
	found, err := cache.Get("verdict:user-1", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetMissingKey(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out string
	found, err := cache.Get("missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)

	require.NoError(t, cache.Set("key", "value", time.Minute))
	require.NoError(t, cache.Invalidate("key"))

	var out string
	found, err := cache.Get("key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIncrUsage(t *testing.T) {
	cache, mr := setupTestCache(t)

	// Первый инкремент создаёт ключ и выставляет TTL.
	val, err := cache.IncrUsage("free_usage:user-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
	assert.Greater(t, mr.TTL("free_usage:user-1"), time.Duration(0))

	val, err = cache.IncrUsage("free_usage:user-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), val)

	got, err := cache.GetUsage("free_usage:user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestGetUsageMissingKey(t *testing.T) {
	cache, _ := setupTestCache(t)

	got, err := cache.GetUsage("free_usage:anonymous")
	require.NoError(t, err)
	assert.Zero(t, got)
}

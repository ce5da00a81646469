package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedZone struct {
	State string  `json:"state"`
	Speed float64 `json:"speed"`
}

func createTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisJSON_RoundTrip(t *testing.T) {
	client, mr := createTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.SetJSON(ctx, "zone:FL", cachedZone{State: "FL", Speed: 170}, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("zone:FL"))

	var got cachedZone
	require.NoError(t, client.GetJSON(ctx, "zone:FL", &got))
	assert.Equal(t, cachedZone{State: "FL", Speed: 170}, got)

	mr.FastForward(2 * time.Hour)
	assert.ErrorIs(t, client.GetJSON(ctx, "zone:FL", &got), ErrCacheMiss)
}

func TestRedisJSON_CorruptValue(t *testing.T) {
	client, mr := createTestRedis(t)
	require.NoError(t, mr.Set("zone:TX", "{not json"))

	var got cachedZone
	err := client.GetJSON(context.Background(), "zone:TX", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Contains(t, err.Error(), "decode cached zone:TX")
}

func TestRedisJSON_ServerErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := NewRedisFromClient(db)
	ctx := context.Background()

	mock.ExpectGet("zone:GA").SetErr(errors.New("READONLY"))
	var got cachedZone
	err := client.GetJSON(ctx, "zone:GA", &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get zone:GA")

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	err = client.Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")

	assert.NoError(t, mock.ExpectationsWereMet())
}

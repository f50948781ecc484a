package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedRoom struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheManager(client), mr
}

func TestCacheOrExecute_FetchesOnceThenHits(t *testing.T) {
	cm, _ := newTestManager(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return &cachedRoom{ID: 1, Name: "Algebra"}, nil
	}

	var first, second cachedRoom
	require.NoError(t, cm.Room.CacheOrExecute(ctx, RoomKey(1), &first, time.Minute, fetch))
	require.NoError(t, cm.Room.CacheOrExecute(ctx, RoomKey(1), &second, time.Minute, fetch))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Algebra", second.Name)
}

func TestCacheOrExecute_PropagatesFetchError(t *testing.T) {
	cm, _ := newTestManager(t)
	sentinel := errors.New("not found")

	var dest cachedRoom
	err := cm.Room.CacheOrExecute(context.Background(), RoomKey(9), &dest, time.Minute, func() (interface{}, error) {
		return nil, sentinel
	})

	assert.ErrorIs(t, err, sentinel)
}

func TestInvalidateRoomCache(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.Room.Set(ctx, RoomKey(3), cachedRoom{ID: 3}, time.Minute))
	require.NoError(t, cm.Room.Set(ctx, "list:active", []cachedRoom{{ID: 3}}, time.Minute))
	require.NoError(t, cm.Room.Set(ctx, RoomKey(4), cachedRoom{ID: 4}, time.Minute))

	InvalidateRoomCache(ctx, cm, 3)

	assert.False(t, mr.Exists("room:id:3"))
	assert.False(t, mr.Exists("room:list:active"))
	assert.True(t, mr.Exists("room:id:4"))
}

func TestNilClientDegradesGracefully(t *testing.T) {
	cm := NewCacheManager(nil)
	ctx := context.Background()

	assert.NoError(t, cm.Room.Set(ctx, "k", 1, time.Minute))
	assert.ErrorIs(t, cm.Room.Get(ctx, "k", new(int)), ErrCacheNotAvailable)
	assert.ErrorIs(t, cm.HealthCheck(ctx), ErrCacheNotAvailable)

	var dest cachedRoom
	require.NoError(t, cm.Room.CacheOrExecute(ctx, "k", &dest, time.Minute, func() (interface{}, error) {
		return cachedRoom{ID: 7}, nil
	}))
	assert.Equal(t, uint(7), dest.ID)
}

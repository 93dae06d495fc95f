package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	fetches := 0
	var got []uint
	fetch := func() error {
		fetches++
		got = []uint{1, 2, 3}
		return nil
	}

	err := Aside(ctx, UserRoomsKey(7), &got, RoomListTTL, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
	assert.Equal(t, []uint{1, 2, 3}, got)

	// Second call is served from the cache.
	var again []uint
	err = Aside(ctx, UserRoomsKey(7), &again, RoomListTTL, func() error {
		fetches++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
	assert.Equal(t, []uint{1, 2, 3}, again)
}

func TestAside_NilClientAlwaysFetches(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	fetches := 0
	var dest int
	for i := 0; i < 2; i++ {
		err := Aside(ctx, "k", &dest, RoomListTTL, func() error {
			fetches++
			dest = 42
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fetches)
	assert.Equal(t, 42, dest)
}

func TestInvalidateRoom(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, RoomMembersKey(3), []uint{1, 2}, RoomMembersTTL))
	require.NoError(t, SetJSON(ctx, UserRoomsKey(1), []uint{3}, RoomListTTL))
	require.NoError(t, SetJSON(ctx, UserRoomsKey(2), []uint{3}, RoomListTTL))

	InvalidateRoom(ctx, 3, 1, 2)

	assert.False(t, mr.Exists(RoomMembersKey(3)))
	assert.False(t, mr.Exists(UserRoomsKey(1)))
	assert.False(t, mr.Exists(UserRoomsKey(2)))
}

package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return rdb, mr
}

func TestRedisRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T, clock Clock) Repository {
		rdb, _ := newTestRedis(t)
		return NewRedis(rdb, clock)
	})
}

func TestRedisKeys(t *testing.T) {
	rdb, mr := newTestRedis(t)
	r := NewRedis(rdb, nil)

	_, err := r.InsertInitialVersion(context.Background(), testPhone)
	require.NoError(t, err)

	require.True(t, mr.Exists("verification:+16502530000:1"))
	members, err := mr.ZMembers("verification:+16502530000:versions")
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, members)
}

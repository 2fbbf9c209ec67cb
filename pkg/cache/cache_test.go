package cache_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"reviewassigner/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newClient(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return cache.NewClient(zap.NewNop().Sugar(), rdb, time.Minute), mr
}

func TestSession_GetSet(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	sess := client.Session(ctx)
	require.True(t, sess.Available())

	var got payload
	require.False(t, sess.Get(ctx, "k", &got), "empty cache is a miss")

	sess.Set(ctx, "k", payload{Name: "backend", Count: 3})
	require.True(t, sess.Get(ctx, "k", &got))
	require.Equal(t, payload{Name: "backend", Count: 3}, got)

	require.Equal(t, time.Minute, mr.TTL("k"))

	sess.SetWithTTL(ctx, "short", payload{}, 5*time.Second)
	require.Equal(t, 5*time.Second, mr.TTL("short"))

	mr.FastForward(2 * time.Minute)
	require.False(t, sess.Get(ctx, "k", &got), "expired entry is a miss")
}

func TestSession_UndecodableValueIsMissAndDropped(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	require.NoError(t, mr.Set("broken", "{not json"))

	sess := client.Session(ctx)
	var got payload
	require.False(t, sess.Get(ctx, "broken", &got))
	require.False(t, mr.Exists("broken"))
	require.True(t, sess.Available())
}

func TestSession_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	sess := client.Session(ctx)
	sess.Set(ctx, cache.StatsKey(), 1)
	sess.Set(ctx, cache.TeamStatsKey("backend"), 2)
	sess.Set(ctx, cache.TeamKey("backend"), 3)
	for i := 0; i < 250; i++ {
		sess.Set(ctx, cache.StatsPrefix+"bulk:"+strconv.Itoa(i), i)
	}

	sess.DeleteByPrefix(ctx, cache.StatsPrefix)

	require.False(t, mr.Exists(cache.StatsKey()))
	require.False(t, mr.Exists(cache.TeamStatsKey("backend")))
	require.True(t, mr.Exists(cache.TeamKey("backend")))
	require.Len(t, mr.Keys(), 1)
	require.True(t, sess.Available())
}

func TestSession_ApplyPurgesAllTeamStats(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	sess := client.Session(ctx)
	for i := 0; i < 150; i++ {
		sess.Set(ctx, cache.TeamStatsKey("t"+strconv.Itoa(i)), i)
	}
	sess.Set(ctx, cache.ReviewsKey("u9"), "keep")

	sess.Apply(ctx, cache.OnPRMerged([]string{"u1"}))

	require.Equal(t, []string{cache.ReviewsKey("u9")}, mr.Keys())
	require.True(t, sess.Available())
}

func TestSession_Apply(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	sess := client.Session(ctx)
	for _, k := range []string{
		cache.TeamKey("payments"),
		cache.TeamKey("backend"),
		cache.TeamKey("untouched"),
		cache.ReviewsKey("u1"),
		cache.ReviewsKey("u9"),
		cache.StatsKey(),
		cache.TeamStatsKey("payments"),
	} {
		sess.Set(ctx, k, "v")
	}

	sess.Apply(ctx, cache.OnTeamCreated("payments", []string{"u1"}, []string{"backend"}))

	require.ElementsMatch(t, []string{cache.TeamKey("untouched"), cache.ReviewsKey("u9")}, mr.Keys())
}

func TestSession_Unavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled client", func(t *testing.T) {
		client := cache.Disabled(zap.NewNop().Sugar())
		require.False(t, client.Enabled())
		require.False(t, client.Available(ctx))

		sess := client.Session(ctx)
		sess.Set(ctx, "k", 1)
		var got int
		require.False(t, sess.Get(ctx, "k", &got))
		sess.Delete(ctx, "k")
		sess.DeleteByPrefix(ctx, "k")
		sess.Apply(ctx, cache.OnPRCreated([]string{"u1"}))
		require.NoError(t, client.Close())
	})

	t.Run("redis down at session start", func(t *testing.T) {
		client, mr := newClient(t)
		mr.Close()

		require.True(t, client.Enabled())
		require.False(t, client.Available(ctx))

		sess := client.Session(ctx)
		require.False(t, sess.Available())
		sess.Set(ctx, "k", 1)
		var got int
		require.False(t, sess.Get(ctx, "k", &got))
	})

	t.Run("error mid-session disables the rest of it", func(t *testing.T) {
		client, mr := newClient(t)

		sess := client.Session(ctx)
		require.True(t, sess.Available())

		mr.Close()

		var got int
		require.False(t, sess.Get(ctx, "k", &got))
		require.False(t, sess.Available())

		mr.Restart()
		sess.Set(ctx, "k", 1)
		require.False(t, mr.Exists("k"), "session stays degraded after the first error")

		require.True(t, client.Session(ctx).Available(), "a new session probes again")
	})
}

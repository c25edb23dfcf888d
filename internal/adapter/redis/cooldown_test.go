package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/redis"
	"github.com/heartmarshall/chatbot-backend/internal/config"
	"github.com/heartmarshall/chatbot-backend/internal/service/cooldown"
)

func setup(t *testing.T) *goredis.Client {
	t.Helper()
	addr := testhelper.SetupTestRedis(t)
	client, err := redis.NewClient(context.Background(), config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCooldownStore_Scenario(t *testing.T) {
	client := setup(t)
	store := redis.NewCooldownStore(client, "test:"+testhelper.UniqueSuffix()+":", time.Hour)
	tr := cooldown.NewTracker(store, 24*time.Hour)
	ctx := context.Background()

	key := cooldown.Key{ChannelID: 7, CommandID: 1}
	t0 := time.Now().Truncate(time.Millisecond)

	res, err := tr.CheckAndRecord(ctx, key, 30*time.Second, t0)
	require.NoError(t, err)
	assert.True(t, res.Ready)

	res, err = tr.CheckAndRecord(ctx, key, 30*time.Second, t0.Add(10*time.Second))
	require.NoError(t, err)
	assert.False(t, res.Ready)
	assert.Equal(t, 20*time.Second, res.Remaining)

	res, err = tr.CheckAndRecord(ctx, key, 30*time.Second, t0.Add(31*time.Second))
	require.NoError(t, err)
	assert.True(t, res.Ready)
}

func TestCooldownStore_SweepFollowsLedgerClock(t *testing.T) {
	client := setup(t)
	prefix := "test:" + testhelper.UniqueSuffix() + ":"
	store := redis.NewCooldownStore(client, prefix, time.Hour)
	tr := cooldown.NewTracker(store, time.Hour)
	ctx := context.Background()

	old := cooldown.Key{ChannelID: 1, CommandID: 2}
	recorded := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	res, err := tr.CheckAndRecord(ctx, old, 30*time.Second, recorded)
	require.NoError(t, err)
	require.True(t, res.Ready)

	// Far in the wall-clock past, but the newest entry in the ledger.
	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	res, err = tr.CheckAndRecord(ctx, old, 30*time.Second, recorded.Add(10*time.Second))
	require.NoError(t, err)
	assert.False(t, res.Ready)
	assert.Equal(t, 20*time.Second, res.Remaining)

	// A newer invocation moves the ledger clock past the retention.
	fresh := cooldown.Key{ChannelID: 1, CommandID: 3}
	_, err = tr.CheckAndRecord(ctx, fresh, 30*time.Second, recorded.Add(2*time.Hour))
	require.NoError(t, err)

	removed, err = store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := client.HLen(ctx, prefix+"ledger").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = client.ZCard(ctx, prefix+"index").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

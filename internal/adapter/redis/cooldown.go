package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/heartmarshall/chatbot-backend/internal/service/cooldown"
)

// The ledger is a hash of key -> last invocation (ms), mirrored in a sorted
// set scored by the same value, plus the newest invocation seen. Expiry is
// driven by Sweep against that high-water mark, never by Redis TTLs, so old
// event timestamps keep their windows.
//
// KEYS: ledger, index, latest.

// acquireScript returns -1 when acquired, otherwise the remaining wait in milliseconds.
var acquireScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local last = redis.call('HGET', KEYS[1], ARGV[3])
if last then
	local elapsed = now - tonumber(last)
	if elapsed < window then
		return window - elapsed
	end
end
redis.call('HSET', KEYS[1], ARGV[3], ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[3])
local latest = tonumber(redis.call('GET', KEYS[3]) or '0')
if now > latest then
	redis.call('SET', KEYS[3], ARGV[1])
end
return -1
`)

// sweepScript removes up to ARGV[2] entries older than latest - ARGV[1] and returns how many.
var sweepScript = goredis.NewScript(`
local latest = redis.call('GET', KEYS[3])
if not latest then
	return 0
end
local cutoff = tonumber(latest) - tonumber(ARGV[1])
local stale = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', '(' .. cutoff, 'LIMIT', 0, tonumber(ARGV[2]))
for _, k in ipairs(stale) do
	redis.call('HDEL', KEYS[1], k)
	redis.call('ZREM', KEYS[2], k)
end
return #stale
`)

const sweepBatch = 500

// CooldownStore keeps the cooldown ledger in Redis so it survives restarts.
type CooldownStore struct {
	client goredis.Scripter
	keys   []string
	retain time.Duration
}

var (
	_ cooldown.Store   = (*CooldownStore)(nil)
	_ cooldown.Sweeper = (*CooldownStore)(nil)
)

// NewCooldownStore creates a store whose entries are swept once the newest
// recorded invocation is more than retain past them.
func NewCooldownStore(client goredis.Scripter, keyPrefix string, retain time.Duration) *CooldownStore {
	return &CooldownStore{
		client: client,
		keys:   []string{keyPrefix + "ledger", keyPrefix + "index", keyPrefix + "latest"},
		retain: retain,
	}
}

func (s *CooldownStore) Acquire(ctx context.Context, key cooldown.Key, window time.Duration, now time.Time) (bool, time.Duration, error) {
	res, err := acquireScript.Run(ctx, s.client, s.keys,
		now.UnixMilli(), window.Milliseconds(), key.String(),
	).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("acquire cooldown: %w", err)
	}
	if res < 0 {
		return true, 0, nil
	}
	return false, time.Duration(res) * time.Millisecond, nil
}

// Sweep evicts idle entries in batches and returns how many were removed.
func (s *CooldownStore) Sweep(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := sweepScript.Run(ctx, s.client, s.keys, s.retain.Milliseconds(), sweepBatch).Int()
		if err != nil {
			return total, fmt.Errorf("sweep cooldowns: %w", err)
		}
		total += n
		if n < sweepBatch {
			return total, nil
		}
	}
}

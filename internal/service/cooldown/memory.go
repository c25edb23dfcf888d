package cooldown

import (
	"context"
	"hash/maphash"
	"sync"
	"sync/atomic"
	"time"
)

const shardCount = 64

// MemoryStore is a process-local Store.
//
// Eviction is measured on the ledger's own clock: an entry is dropped once the
// newest recorded invocation is more than the retention past it. Wall-clock
// time never enters, so replayed or lagging events keep their windows.
type MemoryStore struct {
	shards [shardCount]memoryShard
	seed   maphash.Seed
	retain time.Duration
	latest atomic.Int64 // unix nanos of the newest recorded invocation
}

type memoryShard struct {
	mu   sync.Mutex
	last map[Key]time.Time
}

var _ Sweeper = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store keeping entries for retain after their last invocation.
func NewMemoryStore(retain time.Duration) *MemoryStore {
	s := &MemoryStore{seed: maphash.MakeSeed(), retain: retain}
	for i := range s.shards {
		s.shards[i].last = make(map[Key]time.Time)
	}
	return s
}

func (s *MemoryStore) shard(k Key) *memoryShard {
	var h maphash.Hash
	h.SetSeed(s.seed)
	_, _ = h.WriteString(k.String())
	return &s.shards[h.Sum64()%shardCount]
}

func (s *MemoryStore) Acquire(_ context.Context, key Key, window time.Duration, now time.Time) (bool, time.Duration, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if last, ok := sh.last[key]; ok {
		if elapsed := now.Sub(last); elapsed < window {
			return false, window - elapsed, nil
		}
	}
	sh.last[key] = now
	s.observe(now)
	return true, 0, nil
}

func (s *MemoryStore) observe(t time.Time) {
	n := t.UnixNano()
	for {
		cur := s.latest.Load()
		if n <= cur || s.latest.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Sweep evicts entries recorded more than the retention before the newest
// recorded invocation and returns how many were removed.
func (s *MemoryStore) Sweep(context.Context) (int, error) {
	latest := s.latest.Load()
	if latest == 0 {
		return 0, nil
	}
	cutoff := time.Unix(0, latest).Add(-s.retain)

	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, last := range sh.last {
			if last.Before(cutoff) {
				delete(sh.last, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.last)
		sh.mu.Unlock()
	}
	return n
}

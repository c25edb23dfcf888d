package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

type configLoader interface {
	Load(ctx context.Context) (domain.BotConfig, error)
}

type reloadObserver interface {
	SnapshotReloaded(ok bool)
}

// Options tunes a Cache.
type Options struct {
	// ReloadTimeout bounds one load. Zero means no bound.
	ReloadTimeout time.Duration
	// RetryInterval is the minimum gap between a failed load and the next attempt.
	RetryInterval time.Duration
}

const reloadKey = "snapshot"

// Cache serves the current Snapshot to concurrent readers without locking.
// Stale or missing snapshots are reloaded by exactly one in-flight load.
type Cache struct {
	loader  configLoader
	metrics reloadObserver
	log     *slog.Logger
	opts    Options

	current atomic.Pointer[Snapshot]
	// want is the generation readers require; a snapshot older than it is stale.
	want        atomic.Uint64
	lastFailure atomic.Int64
	group       singleflight.Group

	now func() time.Time
}

// NewCache creates an empty cache. The first Current call loads.
func NewCache(log *slog.Logger, loader configLoader, metrics reloadObserver, opts Options) *Cache {
	c := &Cache{
		loader:  loader,
		metrics: metrics,
		log:     log.With("service", "snapshot"),
		opts:    opts,
		now:     time.Now,
	}
	c.want.Store(1)
	return c
}

// Current returns the latest snapshot. A stale snapshot is returned immediately
// while a background reload runs. With no snapshot yet, Current waits for the
// in-flight load and fails with domain.ErrConfigUnavailable if it fails.
func (c *Cache) Current(ctx context.Context) (*Snapshot, error) {
	snap := c.current.Load()
	if snap != nil {
		if snap.Generation < c.want.Load() && !c.backingOff() {
			c.group.DoChan(reloadKey, c.reload)
		}
		return snap, nil
	}

	if c.backingOff() {
		return nil, fmt.Errorf("%w: waiting to retry after failed load", domain.ErrConfigUnavailable)
	}
	return c.await(ctx, domain.ErrConfigUnavailable)
}

// Invalidate marks the current snapshot stale. The next Current call reloads.
func (c *Cache) Invalidate() {
	c.want.Add(1)
}

// Reload invalidates the cache and waits for a snapshot that reflects it.
func (c *Cache) Reload(ctx context.Context) (*Snapshot, error) {
	c.Invalidate()
	return c.await(ctx, domain.ErrReloadFailed)
}

// Stale reports whether a reload is due.
func (c *Cache) Stale() bool {
	snap := c.current.Load()
	return snap == nil || snap.Generation < c.want.Load()
}

// Loaded reports whether any snapshot has been installed.
func (c *Cache) Loaded() bool {
	return c.current.Load() != nil
}

func (c *Cache) await(ctx context.Context, kind error) (*Snapshot, error) {
	ch := c.group.DoChan(reloadKey, c.reload)
	select {
	case res := <-ch:
		if res.Err != nil {
			if kind == domain.ErrReloadFailed {
				return nil, res.Err
			}
			return nil, fmt.Errorf("%w: %w", kind, res.Err)
		}
		snap := res.Val.(*Snapshot)
		// A load that started before Invalidate may not satisfy it; join the next one.
		if snap.Generation < c.want.Load() && kind == domain.ErrReloadFailed {
			return c.await(ctx, kind)
		}
		return snap, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", kind, ctx.Err())
	}
}

func (c *Cache) backingOff() bool {
	last := c.lastFailure.Load()
	if last == 0 || c.opts.RetryInterval <= 0 {
		return false
	}
	return c.now().Sub(time.Unix(0, last)) < c.opts.RetryInterval
}

// reload runs detached from any caller so that an abandoned caller does not
// cancel the load other callers are waiting on.
func (c *Cache) reload() (any, error) {
	ctx := context.Background()
	if c.opts.ReloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ReloadTimeout)
		defer cancel()
	}

	gen := c.want.Load()
	start := c.now()

	cfg, err := c.loader.Load(ctx)
	var snap *Snapshot
	if err == nil {
		snap, err = Build(cfg, gen)
	}
	if err != nil {
		c.lastFailure.Store(c.now().UnixNano())
		c.observe(false)
		prev := c.current.Load()
		c.log.Error("snapshot reload failed",
			slog.Uint64("generation", gen),
			slog.Bool("serving_previous", prev != nil),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", domain.ErrReloadFailed, err)
	}

	snap.LoadedAt = c.now()
	c.current.Store(snap)
	c.lastFailure.Store(0)
	c.observe(true)

	st := snap.Stats()
	c.log.Info("snapshot loaded",
		slog.Uint64("generation", gen),
		slog.Int("commands", st.Commands),
		slog.Int("aliases", st.Aliases),
		slog.Int("channel_configs", st.ChannelConfigs),
		slog.Int("permissions", st.Permissions),
		slog.Duration("took", c.now().Sub(start)),
	)
	return snap, nil
}

func (c *Cache) observe(ok bool) {
	if c.metrics != nil {
		c.metrics.SnapshotReloaded(ok)
	}
}

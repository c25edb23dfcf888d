package snapshot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okLoader() *configLoaderMock {
	return &configLoaderMock{
		LoadFunc: func(ctx context.Context) (domain.BotConfig, error) {
			return testConfig(), nil
		},
	}
}

func newTestCache(loader configLoader) *Cache {
	return NewCache(discardLogger(), loader, nil, Options{ReloadTimeout: time.Second})
}

func TestCache_FirstCurrentLoads(t *testing.T) {
	t.Parallel()
	loader := okLoader()
	c := newTestCache(loader)

	if c.Loaded() || !c.Stale() {
		t.Fatal("new cache must be empty and stale")
	}

	s, err := c.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if _, ok := s.CommandByAlias("so"); !ok {
		t.Error("loaded snapshot is missing alias")
	}

	again, err := c.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if again != s {
		t.Error("fresh snapshot must be reused")
	}
	if got := len(loader.LoadCalls()); got != 1 {
		t.Errorf("Load calls: got %d, want 1", got)
	}
}

func TestCache_ConfigUnavailable(t *testing.T) {
	t.Parallel()
	loadErr := errors.New("connection refused")
	c := newTestCache(&configLoaderMock{
		LoadFunc: func(ctx context.Context) (domain.BotConfig, error) {
			return domain.BotConfig{}, loadErr
		},
	})

	_, err := c.Current(context.Background())
	if !errors.Is(err, domain.ErrConfigUnavailable) {
		t.Fatalf("expected ErrConfigUnavailable, got %v", err)
	}
	if !errors.Is(err, loadErr) {
		t.Errorf("cause must be preserved, got %v", err)
	}
}

func TestCache_SingleFlightOnEmptyCache(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	c := newTestCache(&configLoaderMock{
		LoadFunc: func(ctx context.Context) (domain.BotConfig, error) {
			if loads.Add(1) == 1 {
				close(entered)
			}
			<-release
			return testConfig(), nil
		},
	})

	const n = 32
	results := make([]*Snapshot, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.Current(context.Background())
			if err != nil {
				t.Errorf("Current: %v", err)
			}
			results[i] = s
		}()
	}

	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("loads: got %d, want 1", got)
	}
	for i, s := range results {
		if s != results[0] {
			t.Errorf("caller %d got a different snapshot", i)
		}
	}
}

func TestCache_StaleServesPreviousAndReloadsOnce(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	release := make(chan struct{})
	c := newTestCache(&configLoaderMock{
		LoadFunc: func(ctx context.Context) (domain.BotConfig, error) {
			if loads.Add(1) > 1 {
				<-release
			}
			return testConfig(), nil
		},
	})
	ctx := context.Background()

	first, err := c.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}

	c.Invalidate()
	if !c.Stale() {
		t.Fatal("Invalidate must mark the cache stale")
	}

	const n = 32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.Current(ctx)
			if err != nil {
				t.Errorf("Current: %v", err)
			}
			if s != first {
				t.Error("stale readers must get the previous snapshot while the reload runs")
			}
		}()
	}
	wg.Wait()
	close(release)

	second, err := c.Reload(ctx)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if second == first || second.Generation <= first.Generation {
		t.Errorf("expected a newer snapshot, got generation %d after %d", second.Generation, first.Generation)
	}
	// 1 initial, 1 triggered by the stale readers, at most 1 for Reload.
	if got := loads.Load(); got < 2 || got > 3 {
		t.Errorf("loads: got %d, want 2 or 3", got)
	}
	if c.Stale() {
		t.Error("cache must be fresh after Reload")
	}
}

func TestCache_FailedReloadKeepsPrevious(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	loader := &configLoaderMock{
		LoadFunc: func(ctx context.Context) (domain.BotConfig, error) {
			if fail.Load() {
				return domain.BotConfig{}, errors.New("db down")
			}
			return testConfig(), nil
		},
	}
	c := newTestCache(loader)
	ctx := context.Background()

	first, err := c.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}

	fail.Store(true)
	if _, err := c.Reload(ctx); !errors.Is(err, domain.ErrReloadFailed) {
		t.Fatalf("expected ErrReloadFailed, got %v", err)
	}

	got, err := c.Current(ctx)
	if err != nil {
		t.Fatalf("Current after failed reload: %v", err)
	}
	if got != first {
		t.Error("failed reload must keep the previous snapshot")
	}
	if !c.Stale() {
		t.Error("cache must stay stale after a failed reload")
	}

	fail.Store(false)
	if _, err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload after recovery: %v", err)
	}
	if c.Stale() {
		t.Error("cache must be fresh after recovery")
	}
}

func TestCache_CycleFailsReload(t *testing.T) {
	t.Parallel()

	var cyclic atomic.Bool
	c := newTestCache(&configLoaderMock{
		LoadFunc: func(ctx context.Context) (domain.BotConfig, error) {
			cfg := testConfig()
			if cyclic.Load() {
				cfg.Implications = append(cfg.Implications, domain.PermissionImplication{PermissionID: 1, ImpliedByID: 2})
			}
			return cfg, nil
		},
	})
	ctx := context.Background()

	first, err := c.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}

	cyclic.Store(true)
	_, err = c.Reload(ctx)
	var cycle *domain.ImplicationCycleError
	if !errors.As(err, &cycle) || !errors.Is(err, domain.ErrReloadFailed) {
		t.Fatalf("expected cycle error wrapped in ErrReloadFailed, got %v", err)
	}

	if got, _ := c.Current(ctx); got != first {
		t.Error("previous snapshot must survive a cyclic config")
	}
}

func TestCache_RetryInterval(t *testing.T) {
	t.Parallel()

	loader := &configLoaderMock{
		LoadFunc: func(ctx context.Context) (domain.BotConfig, error) {
			return domain.BotConfig{}, errors.New("db down")
		},
	}
	c := NewCache(discardLogger(), loader, nil, Options{RetryInterval: time.Minute})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := c.Current(ctx); !errors.Is(err, domain.ErrConfigUnavailable) {
		t.Fatalf("expected ErrConfigUnavailable, got %v", err)
	}
	if _, err := c.Current(ctx); !errors.Is(err, domain.ErrConfigUnavailable) {
		t.Fatalf("expected ErrConfigUnavailable, got %v", err)
	}
	if got := len(loader.LoadCalls()); got != 1 {
		t.Errorf("Load calls within retry interval: got %d, want 1", got)
	}

	now = now.Add(2 * time.Minute)
	_, _ = c.Current(ctx)
	if got := len(loader.LoadCalls()); got != 2 {
		t.Errorf("Load calls after retry interval: got %d, want 2", got)
	}
}

func TestCache_ReloadTimeout(t *testing.T) {
	t.Parallel()

	c := NewCache(discardLogger(), &configLoaderMock{
		LoadFunc: func(ctx context.Context) (domain.BotConfig, error) {
			<-ctx.Done()
			return domain.BotConfig{}, ctx.Err()
		},
	}, nil, Options{ReloadTimeout: 20 * time.Millisecond})

	_, err := c.Current(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCache_CallerCancelDoesNotAbortLoad(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := newTestCache(&configLoaderMock{
		LoadFunc: func(ctx context.Context) (domain.BotConfig, error) {
			<-release
			return testConfig(), ctx.Err()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Current(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}

	close(release)
	if _, err := c.Current(context.Background()); err != nil {
		t.Fatalf("load must complete for later callers: %v", err)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/botconfig"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/channel"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/chatevent"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/command"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/user"
	"github.com/heartmarshall/chatbot-backend/internal/config"
	"github.com/heartmarshall/chatbot-backend/internal/domain"
	"github.com/heartmarshall/chatbot-backend/internal/metrics"
	"github.com/heartmarshall/chatbot-backend/internal/service/catalog"
	"github.com/heartmarshall/chatbot-backend/internal/service/cooldown"
	"github.com/heartmarshall/chatbot-backend/internal/service/directory"
	"github.com/heartmarshall/chatbot-backend/internal/service/eventlog"
	"github.com/heartmarshall/chatbot-backend/internal/service/ingest"
	"github.com/heartmarshall/chatbot-backend/internal/service/router"
	"github.com/heartmarshall/chatbot-backend/internal/service/snapshot"
	"github.com/heartmarshall/chatbot-backend/internal/transport/rest"
)

// Run is the application entry point. It wires storage, the routing core and
// the ops HTTP server, then consumes the configured event source until ctx is
// canceled or the source is exhausted.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("source", cfg.Source.Kind),
		slog.String("cooldown_backend", cfg.Cooldown.Backend),
	)

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, cfg.Database.DSN, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.Database, postgres.PoolOptions{
		AppName:  "chatbot",
		Reserved: int32(cfg.Bot.Workers + cfg.EventStore.Shards),
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	m := metrics.New()

	// Repositories.
	txm := postgres.NewTxManager(pool)
	channels := channel.New(pool)
	users := user.New(pool)
	commands := command.New(pool)
	events := chatevent.New(pool, domain.PartitionGranularity(cfg.EventStore.Granularity))

	// Routing core.
	cache := snapshot.NewCache(logger, botconfig.New(pool, txm), m, snapshot.Options{
		ReloadTimeout: cfg.Snapshot.ReloadTimeout,
		RetryInterval: cfg.Snapshot.RetryInterval,
	})

	store, err := newCooldownStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()
	tracker := cooldown.NewTracker(store, cfg.Cooldown.MaxCooldown)

	dir := directory.NewService(logger, channels, users, cfg.Bot.DirectorySize, cfg.Bot.DirectoryTTL)

	registry := router.NewRegistry()
	if err := router.RegisterBuiltins(registry, cache, dir); err != nil {
		return fmt.Errorf("register handlers: %w", err)
	}

	src, err := newSource(logger, cfg.Source, channels)
	if err != nil {
		return err
	}
	defer src.close()

	r := router.New(logger, cache, tracker, registry, ingest.NewReplier(src), m, router.Options{
		DefaultPrefix:  cfg.Bot.DefaultPrefix,
		HandlerTimeout: cfg.Bot.HandlerTimeout,
	})

	writer := eventlog.NewWriter(logger, events, m, eventlog.Options{
		Shards:         cfg.EventStore.Shards,
		QueueSize:      cfg.EventStore.QueueSize,
		MaxAttempts:    cfg.EventStore.MaxAttempts,
		InitialBackoff: cfg.EventStore.InitialBackoff,
		MaxBackoff:     cfg.EventStore.MaxBackoff,
	})

	pipeline := ingest.NewPipeline(logger, dir, writer, r, ingest.Options{
		Workers:        cfg.Bot.Workers,
		QueueSize:      cfg.Bot.QueueSize,
		MaxReconnect:   cfg.Source.MaxReconnect,
		LookupAttempts: cfg.Bot.LookupAttempts,
	})

	// Ops HTTP server.
	health := rest.NewHealthHandler(pool, cache, writer, Version)
	commandsHandler := rest.NewCommandsHandler(logger, catalog.NewService(logger, commands))
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      rest.NewRouter(logger, health, commandsHandler, m.Handler()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Routing still persists events without a snapshot, so a failed first load is not fatal.
	if snap, err := cache.Current(ctx); err != nil {
		logger.Warn("initial configuration load failed", slog.String("error", err.Error()))
	} else {
		st := snap.Stats()
		logger.Info("configuration loaded",
			slog.Int("commands", st.Commands),
			slog.Int("aliases", st.Aliases),
			slog.Int("permissions", st.Permissions),
		)
	}
	logStartupChannels(ctx, logger, channels)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	// The writer outlives the pipeline so that every routed event is flushed.
	writerCtx, stopWriter := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWriter()

	g.Go(func() error {
		return writer.Run(writerCtx)
	})

	g.Go(func() error {
		defer stopWriter()
		defer r.Wait()
		defer stop()
		if err := pipeline.Run(runCtx, src); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		return nil
	})

	if sw, ok := store.Store.(cooldown.Sweeper); ok {
		g.Go(func() error {
			cooldown.RunJanitor(runCtx, logger, sw, cfg.Cooldown.SweepInterval)
			return nil
		})
	}

	if every := cfg.Snapshot.RefreshInterval; every > 0 {
		g.Go(func() error {
			refreshSnapshots(runCtx, cache, every)
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("application stopped")
	return err
}

// refreshSnapshots marks the configuration stale every interval so that
// admin edits are picked up without a reload command.
func refreshSnapshots(ctx context.Context, cache *snapshot.Cache, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.Invalidate()
		}
	}
}

func logStartupChannels(ctx context.Context, logger *slog.Logger, channels *channel.Repo) {
	list, err := channels.ListJoinOnStart(ctx)
	if err != nil {
		logger.Warn("list startup channels", slog.String("error", err.Error()))
		return
	}
	for _, ch := range list {
		logger.Info("startup channel",
			slog.Int("channel_id", int(ch.ID)),
			slog.String("channel", ch.Name),
			slog.String("prefix", ch.Prefix("default")),
			slog.Bool("silent", ch.Silent),
		)
	}
}

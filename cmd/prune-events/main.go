// Command prune-events drops event log time partitions whose range ended
// before now minus event_store.retention. It is intended to be invoked by an
// external cron job, not as an in-process goroutine.
//
// Flags:
//
//	-channel N   prune only channel N (0 is the channel-less partition)
//	-dry-run     print the cutoff and exit
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/chatevent"
	"github.com/heartmarshall/chatbot-backend/internal/app"
	"github.com/heartmarshall/chatbot-backend/internal/config"
	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

func main() {
	channelFlag := flag.Int("channel", -1, "prune a single channel id (default: all)")
	dryRun := flag.Bool("dry-run", false, "log the cutoff without dropping anything")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	if cfg.EventStore.Retention <= 0 {
		logger.Info("event retention disabled, nothing to prune")
		return
	}
	cutoff := time.Now().UTC().Add(-cfg.EventStore.Retention)

	var channelID *int32
	if *channelFlag >= 0 {
		id := int32(*channelFlag)
		channelID = &id
	}

	if *dryRun {
		logger.Info("dry run", slog.Time("cutoff", cutoff))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database, postgres.PoolOptions{AppName: "chatbot-prune-events"})
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	repo := chatevent.New(pool, domain.PartitionGranularity(cfg.EventStore.Granularity))

	dropped, err := repo.DropPartitionsBefore(ctx, cutoff, channelID)
	if err != nil {
		logger.Error("prune failed",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff),
		)
		os.Exit(1)
	}

	logger.Info("prune completed",
		slog.Int("dropped", len(dropped)),
		slog.Any("partitions", dropped),
		slog.Time("cutoff", cutoff),
	)
}

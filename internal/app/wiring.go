package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/channel"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/redis"
	"github.com/heartmarshall/chatbot-backend/internal/config"
	"github.com/heartmarshall/chatbot-backend/internal/eventsource"
	"github.com/heartmarshall/chatbot-backend/internal/service/cooldown"
)

type cooldownStore struct {
	cooldown.Store
	close func()
}

func newCooldownStore(ctx context.Context, cfg *config.Config) (cooldownStore, error) {
	switch cfg.Cooldown.Backend {
	case config.CooldownBackendRedis:
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return cooldownStore{}, fmt.Errorf("connect to redis: %w", err)
		}
		return cooldownStore{
			Store: redis.NewCooldownStore(client, cfg.Cooldown.KeyPrefix, cfg.Cooldown.MaxCooldown),
			close: func() { _ = client.Close() },
		}, nil
	default:
		return cooldownStore{
			Store: cooldown.NewMemoryStore(cfg.Cooldown.MaxCooldown),
			close: func() {},
		}, nil
	}
}

type source interface {
	eventsource.Source
	Send(ctx context.Context, r eventsource.Reply) error
}

type closableSource struct {
	source
	close func()
}

func newSource(logger *slog.Logger, cfg config.SourceConfig, channels *channel.Repo) (closableSource, error) {
	switch cfg.Kind {
	case config.SourceKindWebsocket:
		join := func(ctx context.Context) ([]string, error) {
			list, err := channels.ListJoinOnStart(ctx)
			if err != nil {
				return nil, err
			}
			names := make([]string, len(list))
			for i, ch := range list {
				names[i] = ch.Name
			}
			return names, nil
		}
		return closableSource{source: eventsource.NewWebsocket(logger, cfg.URL, join), close: func() {}}, nil
	default:
		var (
			in      io.Reader = os.Stdin
			closeFn           = func() {}
		)
		if cfg.Path != "-" {
			f, err := os.Open(cfg.Path)
			if err != nil {
				return closableSource{}, fmt.Errorf("open event source: %w", err)
			}
			in = f
			closeFn = func() { _ = f.Close() }
		}
		return closableSource{source: eventsource.NewJSONL(logger, in, os.Stdout), close: closeFn}, nil
	}
}

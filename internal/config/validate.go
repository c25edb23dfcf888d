package config

import (
	"fmt"
	"strings"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

// Cooldown backends.
const (
	CooldownBackendMemory = "memory"
	CooldownBackendRedis  = "redis"
)

// Event source kinds.
const (
	SourceKindJSONL     = "jsonl"
	SourceKindWebsocket = "websocket"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Bot.validate(); err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	if err := c.Snapshot.validate(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := c.Cooldown.validate(c.Redis); err != nil {
		return fmt.Errorf("cooldown: %w", err)
	}
	if err := c.EventStore.validate(); err != nil {
		return fmt.Errorf("event_store: %w", err)
	}
	if err := c.Source.validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	return nil
}

func (b *BotConfig) validate() error {
	if strings.TrimSpace(b.DefaultPrefix) == "" {
		return fmt.Errorf("default_prefix must not be empty")
	}
	if strings.ContainsAny(b.DefaultPrefix, " \t\n") {
		return fmt.Errorf("default_prefix must not contain whitespace (got %q)", b.DefaultPrefix)
	}
	if b.Workers <= 0 {
		return fmt.Errorf("workers must be > 0 (got %d)", b.Workers)
	}
	if b.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be > 0 (got %d)", b.QueueSize)
	}
	if b.HandlerTimeout <= 0 {
		return fmt.Errorf("handler_timeout must be > 0 (got %s)", b.HandlerTimeout)
	}
	return nil
}

func (s *SnapshotConfig) validate() error {
	if s.ReloadTimeout <= 0 {
		return fmt.Errorf("reload_timeout must be > 0 (got %s)", s.ReloadTimeout)
	}
	if s.RetryInterval < 0 {
		return fmt.Errorf("retry_interval must be >= 0 (got %s)", s.RetryInterval)
	}
	if s.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval must be >= 0 (got %s)", s.RefreshInterval)
	}
	return nil
}

func (c *CooldownConfig) validate(redis RedisConfig) error {
	switch c.Backend {
	case CooldownBackendMemory:
	case CooldownBackendRedis:
		if redis.Addr == "" {
			return fmt.Errorf("redis backend requires redis.addr")
		}
	default:
		return fmt.Errorf("backend must be %q or %q (got %q)", CooldownBackendMemory, CooldownBackendRedis, c.Backend)
	}
	if c.MaxCooldown <= 0 {
		return fmt.Errorf("max_cooldown must be > 0 (got %s)", c.MaxCooldown)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be > 0 (got %s)", c.SweepInterval)
	}
	return nil
}

func (e *EventStoreConfig) validate() error {
	if !domain.PartitionGranularity(e.Granularity).IsValid() {
		return fmt.Errorf("granularity must be day, week or month (got %q)", e.Granularity)
	}
	if e.Shards <= 0 {
		return fmt.Errorf("shards must be > 0 (got %d)", e.Shards)
	}
	if e.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be > 0 (got %d)", e.QueueSize)
	}
	if e.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be > 0 (got %d)", e.MaxAttempts)
	}
	if e.InitialBackoff <= 0 || e.MaxBackoff < e.InitialBackoff {
		return fmt.Errorf("backoff must satisfy 0 < initial_backoff <= max_backoff (got %s, %s)", e.InitialBackoff, e.MaxBackoff)
	}
	if e.Retention < 0 {
		return fmt.Errorf("retention must be >= 0 (got %s)", e.Retention)
	}
	return nil
}

func (s *SourceConfig) validate() error {
	switch s.Kind {
	case SourceKindJSONL:
		if s.Path == "" {
			return fmt.Errorf("jsonl source requires path (use \"-\" for stdin)")
		}
	case SourceKindWebsocket:
		if s.URL == "" {
			return fmt.Errorf("websocket source requires url")
		}
	default:
		return fmt.Errorf("kind must be %q or %q (got %q)", SourceKindJSONL, SourceKindWebsocket, s.Kind)
	}
	return nil
}

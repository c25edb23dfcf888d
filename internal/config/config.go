package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Log        LogConfig        `yaml:"log"`
	Bot        BotConfig        `yaml:"bot"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Cooldown   CooldownConfig   `yaml:"cooldown"`
	EventStore EventStoreConfig `yaml:"event_store"`
	Source     SourceConfig     `yaml:"source"`
}

// ServerConfig holds the ops HTTP server settings (health, metrics, admin reads).
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"false"`
}

// RedisConfig holds Redis connection settings. Only used by the redis cooldown backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"     env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"       env:"REDIS_DB"       env-default:"0"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"        env:"LOG_LEVEL"        env-default:"info"`
	Format     string `yaml:"format"       env:"LOG_FORMAT"       env-default:"json"`
	File       string `yaml:"file"         env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb"  env:"LOG_MAX_SIZE_MB"  env-default:"100"`
	MaxBackups int    `yaml:"max_backups"  env:"LOG_MAX_BACKUPS"  env-default:"5"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"28"`
}

// BotConfig holds routing settings.
type BotConfig struct {
	DefaultPrefix  string        `yaml:"default_prefix"  env:"BOT_DEFAULT_PREFIX"  env-default:"!"`
	Workers        int           `yaml:"workers"         env:"BOT_WORKERS"         env-default:"8"`
	QueueSize      int           `yaml:"queue_size"      env:"BOT_QUEUE_SIZE"      env-default:"256"`
	HandlerTimeout time.Duration `yaml:"handler_timeout" env:"BOT_HANDLER_TIMEOUT" env-default:"10s"`
	DirectoryTTL   time.Duration `yaml:"directory_ttl"   env:"BOT_DIRECTORY_TTL"   env-default:"1m"`
	DirectorySize  int           `yaml:"directory_size"  env:"BOT_DIRECTORY_SIZE"  env-default:"10000"`
	LookupAttempts int           `yaml:"lookup_attempts" env:"BOT_LOOKUP_ATTEMPTS" env-default:"5"`
}

// SnapshotConfig controls configuration snapshot reloads.
type SnapshotConfig struct {
	ReloadTimeout   time.Duration `yaml:"reload_timeout"   env:"SNAPSHOT_RELOAD_TIMEOUT"   env-default:"15s"`
	RetryInterval   time.Duration `yaml:"retry_interval"   env:"SNAPSHOT_RETRY_INTERVAL"   env-default:"1s"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"SNAPSHOT_REFRESH_INTERVAL" env-default:"0s"`
}

// CooldownConfig selects and tunes the cooldown ledger.
type CooldownConfig struct {
	Backend       string        `yaml:"backend"        env:"COOLDOWN_BACKEND"        env-default:"memory"`
	MaxCooldown   time.Duration `yaml:"max_cooldown"   env:"COOLDOWN_MAX"            env-default:"24h"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"COOLDOWN_SWEEP_INTERVAL" env-default:"1m"`
	KeyPrefix     string        `yaml:"key_prefix"     env:"COOLDOWN_KEY_PREFIX"     env-default:"chatbot:cooldowns:"`
}

// EventStoreConfig tunes the partitioned event log and its async writer.
type EventStoreConfig struct {
	Granularity    string        `yaml:"granularity"     env:"EVENT_STORE_GRANULARITY"     env-default:"month"`
	Shards         int           `yaml:"shards"          env:"EVENT_STORE_SHARDS"          env-default:"4"`
	QueueSize      int           `yaml:"queue_size"      env:"EVENT_STORE_QUEUE_SIZE"      env-default:"1024"`
	MaxAttempts    int           `yaml:"max_attempts"    env:"EVENT_STORE_MAX_ATTEMPTS"    env-default:"5"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"EVENT_STORE_INITIAL_BACKOFF" env-default:"100ms"`
	MaxBackoff     time.Duration `yaml:"max_backoff"     env:"EVENT_STORE_MAX_BACKOFF"     env-default:"5s"`
	Retention      time.Duration `yaml:"retention"       env:"EVENT_STORE_RETENTION"       env-default:"0s"`
}

// SourceConfig selects where chat events come from.
type SourceConfig struct {
	Kind         string        `yaml:"kind"          env:"SOURCE_KIND"          env-default:"jsonl"`
	Path         string        `yaml:"path"          env:"SOURCE_PATH"          env-default:"-"`
	URL          string        `yaml:"url"           env:"SOURCE_URL"`
	MaxReconnect time.Duration `yaml:"max_reconnect" env:"SOURCE_MAX_RECONNECT" env-default:"1m"`
}

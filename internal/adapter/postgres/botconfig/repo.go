// Package botconfig loads every configuration table the routing snapshot is built from.
// All tables are read in one repeatable-read, read-only transaction with a single
// pgx batch so the rows form a consistent point-in-time view.
package botconfig

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/chatbot-backend/internal/adapter/postgres"
	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type txManager interface {
	RunInTxWith(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context) error) error
}

// Repo reads bot configuration from PostgreSQL.
type Repo struct {
	db postgres.Querier
	tx txManager
}

// New creates a new configuration repository.
func New(db postgres.Querier, tx txManager) *Repo {
	return &Repo{db: db, tx: tx}
}

// Load reads all commands, aliases, channel overrides, permissions, implications
// and user overrides.
func (r *Repo) Load(ctx context.Context) (domain.BotConfig, error) {
	queries := []squirrel.SelectBuilder{
		psql.Select("id", "handler_name", "description", "enabled", "default_active", "cooldown", "whisper_enabled", "user_scoped").
			From("command_attributes").OrderBy("id"),
		psql.Select("name", "command_id").From("command_aliases").OrderBy("name"),
		psql.Select("channel_id", "command_id", "active", "cooldown").From("channel_command_config").OrderBy("channel_id", "command_id"),
		psql.Select("command_id", "permission_id").From("command_permissions").OrderBy("command_id", "permission_id"),
		psql.Select("id", "name", "description", "default_state::text AS default_state").From("permissions").OrderBy("id"),
		psql.Select("permission_id", "implied_by_id").From("implied_permissions").OrderBy("permission_id", "implied_by_id"),
		psql.Select("user_id", "permission_id", "state::text AS state").From("user_permissions").OrderBy("user_id", "permission_id"),
	}

	batch := &pgx.Batch{}
	for _, q := range queries {
		sql, args, err := q.ToSql()
		if err != nil {
			return domain.BotConfig{}, fmt.Errorf("build config query: %w", err)
		}
		batch.Queue(sql, args...)
	}

	var (
		commands     []commandRow
		aliases      []aliasRow
		channelCfgs  []channelConfigRow
		commandPerms []commandPermissionRow
		permissions  []permissionRow
		implications []implicationRow
		overrides    []overrideRow
	)

	err := r.tx.RunInTxWith(ctx, postgres.ReadSnapshotTx, func(ctx context.Context) error {
		br := postgres.QuerierFromCtx(ctx, r.db).SendBatch(ctx, batch)
		defer br.Close()

		targets := []struct {
			name string
			dst  any
		}{
			{"command_attributes", &commands},
			{"command_aliases", &aliases},
			{"channel_command_config", &channelCfgs},
			{"command_permissions", &commandPerms},
			{"permissions", &permissions},
			{"implied_permissions", &implications},
			{"user_permissions", &overrides},
		}
		for _, tgt := range targets {
			rows, err := br.Query()
			if err != nil {
				return fmt.Errorf("query %s: %w", tgt.name, err)
			}
			if err := pgxscan.ScanAll(tgt.dst, rows); err != nil {
				return fmt.Errorf("scan %s: %w", tgt.name, err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return domain.BotConfig{}, fmt.Errorf("load bot config: %w", err)
	}

	return toDomain(commands, aliases, channelCfgs, commandPerms, permissions, implications, overrides), nil
}

// ---------------------------------------------------------------------------
// Rows
// ---------------------------------------------------------------------------

type commandRow struct {
	ID             int32   `db:"id"`
	HandlerName    string  `db:"handler_name"`
	Description    *string `db:"description"`
	Enabled        bool    `db:"enabled"`
	DefaultActive  bool    `db:"default_active"`
	Cooldown       *int32  `db:"cooldown"`
	WhisperEnabled bool    `db:"whisper_enabled"`
	UserScoped     bool    `db:"user_scoped"`
}

type aliasRow struct {
	Name      string `db:"name"`
	CommandID int32  `db:"command_id"`
}

type channelConfigRow struct {
	ChannelID int32  `db:"channel_id"`
	CommandID int32  `db:"command_id"`
	Active    bool   `db:"active"`
	Cooldown  *int32 `db:"cooldown"`
}

type commandPermissionRow struct {
	CommandID    int32 `db:"command_id"`
	PermissionID int32 `db:"permission_id"`
}

type permissionRow struct {
	ID           int32   `db:"id"`
	Name         string  `db:"name"`
	Description  *string `db:"description"`
	DefaultState string  `db:"default_state"`
}

type implicationRow struct {
	PermissionID int32 `db:"permission_id"`
	ImpliedByID  int32 `db:"implied_by_id"`
}

type overrideRow struct {
	UserID       int32  `db:"user_id"`
	PermissionID int32  `db:"permission_id"`
	State        string `db:"state"`
}

func millis(ms *int32) *time.Duration {
	if ms == nil {
		return nil
	}
	d := time.Duration(*ms) * time.Millisecond
	return &d
}

func toDomain(
	commands []commandRow,
	aliases []aliasRow,
	channelCfgs []channelConfigRow,
	commandPerms []commandPermissionRow,
	permissions []permissionRow,
	implications []implicationRow,
	overrides []overrideRow,
) domain.BotConfig {
	required := make(map[int32][]int32)
	cfg := domain.BotConfig{
		CommandPermissions: make([]domain.CommandPermission, len(commandPerms)),
	}
	for i, cp := range commandPerms {
		cfg.CommandPermissions[i] = domain.CommandPermission{CommandID: cp.CommandID, PermissionID: cp.PermissionID}
		required[cp.CommandID] = append(required[cp.CommandID], cp.PermissionID)
	}

	cfg.Commands = make([]domain.Command, len(commands))
	for i, c := range commands {
		cfg.Commands[i] = domain.Command{
			ID:                  c.ID,
			HandlerName:         c.HandlerName,
			Description:         c.Description,
			Enabled:             c.Enabled,
			DefaultActive:       c.DefaultActive,
			DefaultCooldown:     millis(c.Cooldown),
			WhisperEnabled:      c.WhisperEnabled,
			UserScoped:          c.UserScoped,
			RequiredPermissions: required[c.ID],
		}
	}

	cfg.Aliases = make([]domain.CommandAlias, len(aliases))
	for i, a := range aliases {
		cfg.Aliases[i] = domain.CommandAlias{Name: a.Name, CommandID: a.CommandID}
	}

	cfg.ChannelConfigs = make([]domain.ChannelCommandConfig, len(channelCfgs))
	for i, c := range channelCfgs {
		cfg.ChannelConfigs[i] = domain.ChannelCommandConfig{
			ChannelID: c.ChannelID,
			CommandID: c.CommandID,
			Active:    c.Active,
			Cooldown:  millis(c.Cooldown),
		}
	}

	cfg.Permissions = make([]domain.Permission, len(permissions))
	for i, p := range permissions {
		cfg.Permissions[i] = domain.Permission{
			ID:           p.ID,
			Name:         p.Name,
			Description:  p.Description,
			DefaultState: domain.PermissionState(p.DefaultState),
		}
	}

	cfg.Implications = make([]domain.PermissionImplication, len(implications))
	for i, im := range implications {
		cfg.Implications[i] = domain.PermissionImplication{PermissionID: im.PermissionID, ImpliedByID: im.ImpliedByID}
	}

	cfg.UserOverrides = make([]domain.UserPermissionOverride, len(overrides))
	for i, o := range overrides {
		cfg.UserOverrides[i] = domain.UserPermissionOverride{
			UserID:       o.UserID,
			PermissionID: o.PermissionID,
			State:        domain.PermissionState(o.State),
		}
	}

	return cfg
}

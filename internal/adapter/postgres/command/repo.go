// Package command implements the read side of the command catalog using PostgreSQL.
// Listing queries are built with squirrel and scanned with pgxscan.
package command

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	postgres "github.com/heartmarshall/chatbot-backend/internal/adapter/postgres"
	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides command catalog reads backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new command repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// List returns one page of commands with their aliases, ordered by command id.
func (r *Repo) List(ctx context.Context, limit, offset int) ([]domain.CommandSummary, error) {
	query, args, err := psql.
		Select(
			"c.id",
			"c.handler_name",
			"c.description",
			"c.enabled",
			"c.default_active",
			"c.cooldown",
			"c.whisper_enabled",
			"COALESCE(array_agg(a.name::text ORDER BY a.name) FILTER (WHERE a.name IS NOT NULL), '{}')::text[] AS aliases",
		).
		From("command_attributes c").
		LeftJoin("command_aliases a ON a.command_id = c.id").
		GroupBy("c.id").
		OrderBy("c.id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list commands query: %w", err)
	}

	var rows []summaryRow
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, query, args...); err != nil {
		return nil, postgres.MapError(err, "command", "list")
	}

	out := make([]domain.CommandSummary, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// Count returns the total number of commands.
func (r *Repo) Count(ctx context.Context) (int, error) {
	query, args, err := psql.Select("count(*)").From("command_attributes").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count commands query: %w", err)
	}

	var n int
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, postgres.MapError(err, "command", "count")
	}
	return n, nil
}

type summaryRow struct {
	ID             int32    `db:"id"`
	HandlerName    string   `db:"handler_name"`
	Description    *string  `db:"description"`
	Enabled        bool     `db:"enabled"`
	DefaultActive  bool     `db:"default_active"`
	Cooldown       *int32   `db:"cooldown"`
	WhisperEnabled bool     `db:"whisper_enabled"`
	Aliases        []string `db:"aliases"`
}

func (r summaryRow) toDomain() domain.CommandSummary {
	s := domain.CommandSummary{
		ID:             r.ID,
		HandlerName:    r.HandlerName,
		Description:    r.Description,
		Enabled:        r.Enabled,
		DefaultActive:  r.DefaultActive,
		WhisperEnabled: r.WhisperEnabled,
		Aliases:        r.Aliases,
	}
	if s.Aliases == nil {
		s.Aliases = []string{}
	}
	if r.Cooldown != nil {
		ms := int64(*r.Cooldown)
		s.CooldownMillis = &ms
	}
	return s
}

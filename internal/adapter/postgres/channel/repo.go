// Package channel implements the channel repository using PostgreSQL.
package channel

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	postgres "github.com/heartmarshall/chatbot-backend/internal/adapter/postgres"
	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

// Repo provides channel persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new channel repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// SQL
// ---------------------------------------------------------------------------

const channelColumns = `id, external_room_id, name, command_prefix, join_on_start, silent, created_at, updated_at`

const getByNameSQL = `SELECT ` + channelColumns + ` FROM channels WHERE name = $1`

const listJoinOnStartSQL = `SELECT ` + channelColumns + ` FROM channels WHERE join_on_start ORDER BY id`

const upsertRoomStateSQL = `
INSERT INTO channels (name, external_room_id)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET
    external_room_id = EXCLUDED.external_room_id,
    updated_at = now()
RETURNING ` + channelColumns

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// GetByName returns the channel with the given name.
// Returns domain.ErrNotFound if the bot does not know the channel.
func (r *Repo) GetByName(ctx context.Context, name string) (*domain.Channel, error) {
	var row channelRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, getByNameSQL, name); err != nil {
		return nil, postgres.MapError(err, "channel", name)
	}
	ch := row.toDomain()
	return &ch, nil
}

// ListJoinOnStart returns the channels the bot joins at boot, ordered by id.
func (r *Repo) ListJoinOnStart(ctx context.Context) ([]domain.Channel, error) {
	var rows []channelRow
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, listJoinOnStartSQL); err != nil {
		return nil, postgres.MapError(err, "channel", "join_on_start")
	}
	out := make([]domain.Channel, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// UpsertRoomState records the external room id reported for a channel,
// creating the channel if it has never been seen.
func (r *Repo) UpsertRoomState(ctx context.Context, name, roomID string) (*domain.Channel, error) {
	var row channelRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, upsertRoomStateSQL, name, roomID); err != nil {
		return nil, postgres.MapError(err, "channel", name)
	}
	ch := row.toDomain()
	return &ch, nil
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

type channelRow struct {
	ID             int32     `db:"id"`
	ExternalRoomID *string   `db:"external_room_id"`
	Name           string    `db:"name"`
	CommandPrefix  *string   `db:"command_prefix"`
	JoinOnStart    bool      `db:"join_on_start"`
	Silent         bool      `db:"silent"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r channelRow) toDomain() domain.Channel {
	return domain.Channel{
		ID:             r.ID,
		ExternalRoomID: r.ExternalRoomID,
		Name:           r.Name,
		CommandPrefix:  r.CommandPrefix,
		JoinOnStart:    r.JoinOnStart,
		Silent:         r.Silent,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// Package user implements the chat user repository using PostgreSQL.
// Users are keyed by the event source's external id; renames are kept as history.
package user

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	postgres "github.com/heartmarshall/chatbot-backend/internal/adapter/postgres"
	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

// Repo provides user persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new user repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// SQL
// ---------------------------------------------------------------------------

const userColumns = `id, external_user_id, name, display_name, previous_names, previous_display_names, created_at, updated_at`

const getByExternalIDSQL = `SELECT ` + userColumns + ` FROM users WHERE external_user_id = $1`

const getByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

// upsertSQL inserts a new user or refreshes the names of an existing one,
// appending replaced values to the history arrays.
const upsertSQL = `
INSERT INTO users AS u (external_user_id, name, display_name)
VALUES ($1, $2, $3)
ON CONFLICT (external_user_id) DO UPDATE SET
    name = EXCLUDED.name,
    display_name = EXCLUDED.display_name,
    previous_names = CASE
        WHEN u.name <> EXCLUDED.name THEN array_append(u.previous_names, u.name::text)
        ELSE u.previous_names END,
    previous_display_names = CASE
        WHEN u.display_name IS NOT NULL AND u.display_name IS DISTINCT FROM EXCLUDED.display_name
            THEN array_append(u.previous_display_names, u.display_name::text)
        ELSE u.previous_display_names END,
    updated_at = now()
RETURNING ` + userColumns

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// GetByExternalID returns the user with the given external id.
// Returns domain.ErrNotFound if the user has never been seen.
func (r *Repo) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	var row userRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, getByExternalIDSQL, externalID); err != nil {
		return nil, postgres.MapError(err, "user", externalID)
	}
	u := row.toDomain()
	return &u, nil
}

// GetByID returns the user with the given primary key.
func (r *Repo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	var row userRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, getByIDSQL, id); err != nil {
		return nil, postgres.MapError(err, "user", id)
	}
	u := row.toDomain()
	return &u, nil
}

// Upsert inserts the user on first sighting, or updates its names when they changed.
func (r *Repo) Upsert(ctx context.Context, id domain.UserIdentity) (*domain.User, error) {
	var row userRow
	err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, upsertSQL,
		id.ExternalUserID, id.Name, id.DisplayName,
	)
	if err != nil {
		return nil, postgres.MapError(err, "user", id.ExternalUserID)
	}
	u := row.toDomain()
	return &u, nil
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

type userRow struct {
	ID                   int32     `db:"id"`
	ExternalUserID       string    `db:"external_user_id"`
	Name                 string    `db:"name"`
	DisplayName          *string   `db:"display_name"`
	PreviousNames        []string  `db:"previous_names"`
	PreviousDisplayNames []string  `db:"previous_display_names"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:                   r.ID,
		ExternalUserID:       r.ExternalUserID,
		Name:                 r.Name,
		DisplayName:          r.DisplayName,
		PreviousNames:        r.PreviousNames,
		PreviousDisplayNames: r.PreviousDisplayNames,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

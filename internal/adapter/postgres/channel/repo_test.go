package channel_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/channel"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

var columns = []string{"id", "external_room_id", "name", "command_prefix", "join_on_start", "silent", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

// ---------------------------------------------------------------------------
// Unit tests (pgxmock)
// ---------------------------------------------------------------------------

func TestRepo_GetByName_Mock(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	repo := channel.New(mock)

	now := time.Now()
	prefix := "?"
	room := "1234"
	mock.ExpectQuery(regexp.QuoteMeta("FROM channels WHERE name = $1")).
		WithArgs("forsen").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(int32(7), &room, "forsen", &prefix, true, false, now, now))

	got, err := repo.GetByName(context.Background(), "forsen")
	require.NoError(t, err)
	assert.Equal(t, int32(7), got.ID)
	assert.Equal(t, "?", got.Prefix("!"))
	assert.True(t, got.JoinOnStart)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_GetByName_NotFound_Mock(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	repo := channel.New(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM channels WHERE name = $1")).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByName(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Integration tests
// ---------------------------------------------------------------------------

func TestRepo_UpsertRoomState(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := channel.New(pool)
	ctx := context.Background()

	name := "room_" + testhelper.UniqueSuffix()
	created, err := repo.UpsertRoomState(ctx, name, "r1-"+name)
	require.NoError(t, err)
	require.NotNil(t, created.ExternalRoomID)

	updated, err := repo.UpsertRoomState(ctx, name, "r2-"+name)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "r2-"+name, *updated.ExternalRoomID)

	got, err := repo.GetByName(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestRepo_ListJoinOnStart(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := channel.New(pool)
	ctx := context.Background()

	ch := testhelper.SeedChannel(t, pool, nil)
	_, err := pool.Exec(ctx, `UPDATE channels SET join_on_start = true WHERE id = $1`, ch.ID)
	require.NoError(t, err)

	list, err := repo.ListJoinOnStart(ctx)
	require.NoError(t, err)

	var found bool
	for _, c := range list {
		if c.ID == ch.ID {
			found = true
		}
		assert.True(t, c.JoinOnStart)
	}
	assert.True(t, found, "seeded join_on_start channel missing from listing")
}

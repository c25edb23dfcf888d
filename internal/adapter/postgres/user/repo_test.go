package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/user"
	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

func ptr(s string) *string { return &s }

func TestRepo_Upsert_FirstSighting(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := user.New(pool)
	ctx := context.Background()

	ext := "ext-" + testhelper.UniqueSuffix()
	got, err := repo.Upsert(ctx, domain.UserIdentity{ExternalUserID: ext, Name: "alice", DisplayName: ptr("Alice")})
	require.NoError(t, err)

	assert.NotZero(t, got.ID)
	assert.Equal(t, ext, got.ExternalUserID)
	assert.Equal(t, "alice", got.Name)
	require.NotNil(t, got.DisplayName)
	assert.Equal(t, "Alice", *got.DisplayName)
	assert.Empty(t, got.PreviousNames)
	assert.Empty(t, got.PreviousDisplayNames)
}

func TestRepo_Upsert_RenameKeepsHistory(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := user.New(pool)
	ctx := context.Background()

	ext := "ext-" + testhelper.UniqueSuffix()
	first, err := repo.Upsert(ctx, domain.UserIdentity{ExternalUserID: ext, Name: "bob", DisplayName: ptr("Bob")})
	require.NoError(t, err)

	second, err := repo.Upsert(ctx, domain.UserIdentity{ExternalUserID: ext, Name: "robert", DisplayName: ptr("Robert")})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "robert", second.Name)
	assert.Equal(t, []string{"bob"}, second.PreviousNames)
	assert.Equal(t, []string{"Bob"}, second.PreviousDisplayNames)

	// Same names again: history unchanged.
	third, err := repo.Upsert(ctx, domain.UserIdentity{ExternalUserID: ext, Name: "robert", DisplayName: ptr("Robert")})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, third.PreviousNames)
	assert.Equal(t, []string{"Bob"}, third.PreviousDisplayNames)
}

func TestRepo_GetByExternalID(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := user.New(pool)
	ctx := context.Background()

	seeded := testhelper.SeedUser(t, pool)

	got, err := repo.GetByExternalID(ctx, seeded.ExternalUserID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)

	byID, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.Name, byID.Name)

	_, err = repo.GetByExternalID(ctx, "missing-"+testhelper.UniqueSuffix())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

// UniqueSuffix returns a short unique string for generating non-conflicting test data.
func UniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedChannel inserts a channel with a unique name and optional prefix.
func SeedChannel(t *testing.T, pool *pgxpool.Pool, prefix *string) domain.Channel {
	t.Helper()

	ch := domain.Channel{Name: "chan_" + UniqueSuffix(), CommandPrefix: prefix}
	err := pool.QueryRow(context.Background(),
		`INSERT INTO channels (name, command_prefix) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		ch.Name, ch.CommandPrefix,
	).Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		t.Fatalf("testhelper: SeedChannel: %v", err)
	}
	return ch
}

// SeedUser inserts a user with a unique external id.
func SeedUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()

	suffix := UniqueSuffix()
	u := domain.User{ExternalUserID: "ext-" + suffix, Name: "user_" + suffix}
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (external_user_id, name) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		u.ExternalUserID, u.Name,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		t.Fatalf("testhelper: SeedUser: %v", err)
	}
	return u
}

// SeedCommand inserts a command with the given cooldown (ms, nil for none) and one alias per name.
func SeedCommand(t *testing.T, pool *pgxpool.Pool, cooldownMs *int32, aliases ...string) domain.Command {
	t.Helper()
	ctx := context.Background()

	cmd := domain.Command{HandlerName: "handler_" + UniqueSuffix(), Enabled: true, DefaultActive: true}
	err := pool.QueryRow(ctx,
		`INSERT INTO command_attributes (handler_name, cooldown) VALUES ($1, $2) RETURNING id`,
		cmd.HandlerName, cooldownMs,
	).Scan(&cmd.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedCommand: %v", err)
	}

	for _, alias := range aliases {
		if _, err := pool.Exec(ctx,
			`INSERT INTO command_aliases (name, command_id) VALUES ($1, $2)`, alias, cmd.ID,
		); err != nil {
			t.Fatalf("testhelper: SeedCommand alias %q: %v", alias, err)
		}
	}
	return cmd
}

// SeedPermission inserts a permission with a unique name.
func SeedPermission(t *testing.T, pool *pgxpool.Pool, state domain.PermissionState) domain.Permission {
	t.Helper()

	p := domain.Permission{Name: "perm_" + UniqueSuffix(), DefaultState: state}
	err := pool.QueryRow(context.Background(),
		`INSERT INTO permissions (name, default_state) VALUES ($1, $2) RETURNING id`,
		p.Name, string(state),
	).Scan(&p.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedPermission: %v", err)
	}
	return p
}

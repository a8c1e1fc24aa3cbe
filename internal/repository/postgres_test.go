package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container and returns a connection
// pool with the schema used by every repository in this package.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("notesync_test"),
		postgres.WithUsername("notesync"),
		postgres.WithPassword("notesync"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %s", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate postgres container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create pool: %s", err)
	}
	t.Cleanup(pool.Close)

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_uuid UUID PRIMARY KEY,
		roles TEXT[] NOT NULL DEFAULT '{}',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS revisions (
		revision_uuid UUID PRIMARY KEY,
		user_uuid UUID NOT NULL,
		item_uuid UUID NOT NULL,
		content TEXT,
		content_type TEXT NOT NULL,
		enc_item_key TEXT,
		auth_hash TEXT,
		items_key_id TEXT,
		creator_user_id UUID,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		item_uuid UUID PRIMARY KEY,
		user_uuid UUID NOT NULL,
		session_uuid UUID,
		content TEXT,
		content_type TEXT NOT NULL,
		enc_item_key TEXT,
		auth_hash TEXT,
		items_key_id TEXT,
		duplicate_of UUID,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shared_vault_associations (
		item_uuid UUID PRIMARY KEY,
		shared_vault_uuid UUID NOT NULL,
		last_edited_by UUID NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS key_system_associations (
		item_uuid UUID PRIMARY KEY,
		key_system_uuid UUID NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transition_status (
		user_uuid UUID NOT NULL,
		transition_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'InProgress',
		paging_progress INTEGER NOT NULL DEFAULT 1,
		integrity_progress INTEGER NOT NULL DEFAULT 1,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (user_uuid, transition_type)
	);
	`
	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatalf("failed to create schema: %s", err)
	}

	return pool
}

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
)

func TestPostgresUserRepository_FindAllCreatedBetween(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresUserRepository(pool, nil)

	users := []domain.User{
		{UserID: uuid.New(), Roles: []string{domain.RoleTransitionUser}, CreatedAt: 100, UpdatedAt: 100},
		{UserID: uuid.New(), CreatedAt: 200, UpdatedAt: 200},
		{UserID: uuid.New(), CreatedAt: 900, UpdatedAt: 900},
	}
	for _, u := range users {
		if _, err := pool.Exec(context.Background(),
			`INSERT INTO users (user_uuid, roles, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
			u.UserID, u.Roles, u.CreatedAt, u.UpdatedAt); err != nil {
			t.Fatalf("unexpected error seeding user: %v", err)
		}
	}

	count, err := repo.CountAllCreatedBetween(context.Background(), 0, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 users in range, got %d", count)
	}

	found, err := repo.FindAllCreatedBetween(context.Background(), 0, 500, 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 users returned, got %d", len(found))
	}

	var withRole bool
	for _, u := range found {
		if u.HasRole(domain.RoleTransitionUser) {
			withRole = true
		}
	}
	if !withRole {
		t.Error("expected to find the role-carrying user within range")
	}
}

func TestPostgresUserRepository_FindAllCreatedBetween_Paging(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresUserRepository(pool, nil)

	for i := 0; i < 4; i++ {
		if _, err := pool.Exec(context.Background(),
			`INSERT INTO users (user_uuid, roles, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
			uuid.New(), []string{}, int64(1000+i), int64(1000+i)); err != nil {
			t.Fatalf("unexpected error seeding user: %v", err)
		}
	}

	page, err := repo.FindAllCreatedBetween(context.Background(), 0, 2000, 0, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 3 {
		t.Errorf("expected a page of 3 users, got %d", len(page))
	}

	rest, err := repo.FindAllCreatedBetween(context.Background(), 0, 2000, 3, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("expected the final page to hold the 1 remaining user, got %d", len(rest))
	}
}

func TestPostgresUserRepository_NoUsersInRange(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresUserRepository(pool, nil)

	count, err := repo.CountAllCreatedBetween(context.Background(), 0, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 users in an empty table, got %d", count)
	}
}

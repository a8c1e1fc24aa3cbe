package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
)

func newTestRevision(userID uuid.UUID, createdAt, updatedAt int64) domain.Revision {
	content := "hello"
	return domain.Revision{
		RevisionID:  uuid.New(),
		UserID:      userID,
		ItemUUID:    uuid.New(),
		Content:     &content,
		ContentType: "Note",
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

func TestPostgresRevisionRepository_InsertAndFind(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresRevisionRepository(pool, "primary", nil)

	userID := uuid.New()
	rev := newTestRevision(userID, 1000, 1000)

	ok, err := repo.Insert(context.Background(), rev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected insert to report success")
	}

	got, err := repo.FindOneByUUID(context.Background(), rev.RevisionID, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected to find the inserted revision")
	}
	if !got.Identical(rev) {
		t.Errorf("expected round-tripped revision to be identical to the inserted one")
	}
}

func TestPostgresRevisionRepository_FindOneByUUID_Absent(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresRevisionRepository(pool, "primary", nil)

	got, err := repo.FindOneByUUID(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for an absent revision, got %+v", got)
	}
}

func TestPostgresRevisionRepository_CountAndPaging(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresRevisionRepository(pool, "primary", nil)

	userID := uuid.New()
	for i := 0; i < 5; i++ {
		if _, err := repo.Insert(context.Background(), newTestRevision(userID, int64(1000+i), int64(1000+i))); err != nil {
			t.Fatalf("unexpected error inserting revision %d: %v", i, err)
		}
	}

	count, err := repo.CountByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 revisions, got %d", count)
	}

	page, err := repo.FindByUserID(context.Background(), userID, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("expected a page of 2 revisions, got %d", len(page))
	}

	rest, err := repo.FindByUserID(context.Background(), userID, 4, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("expected the final page to hold the 1 remaining revision, got %d", len(rest))
	}
}

func TestPostgresRevisionRepository_RemoveOneByUUID(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresRevisionRepository(pool, "secondary", nil)

	userID := uuid.New()
	rev := newTestRevision(userID, 1000, 1000)
	if _, err := repo.Insert(context.Background(), rev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.RemoveOneByUUID(context.Background(), rev.RevisionID, userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.FindOneByUUID(context.Background(), rev.RevisionID, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected the revision to be gone after removal, got %+v", got)
	}
}

func TestPostgresRevisionRepository_RemoveByUserID(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresRevisionRepository(pool, "secondary", nil)

	userID := uuid.New()
	other := uuid.New()
	for i := 0; i < 3; i++ {
		if _, err := repo.Insert(context.Background(), newTestRevision(userID, int64(1000+i), int64(1000+i))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := repo.Insert(context.Background(), newTestRevision(other, 1000, 1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.RemoveByUserID(context.Background(), userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := repo.CountByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 revisions remaining for userID, got %d", count)
	}

	otherCount, err := repo.CountByUserID(context.Background(), other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if otherCount != 1 {
		t.Errorf("expected the other user's revision to survive, got %d", otherCount)
	}
}

func TestPostgresRevisionRepository_Insert_DuplicateUUIDErrors(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresRevisionRepository(pool, "primary", nil)

	userID := uuid.New()
	rev := newTestRevision(userID, 1000, 1000)
	if _, err := repo.Insert(context.Background(), rev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := repo.Insert(context.Background(), rev); err == nil {
		t.Error("expected inserting a duplicate revision_uuid to fail")
	}
}

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
)

func TestPostgresTransitionStatusRepository_GetStatus_AbsentIsNil(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresTransitionStatusRepository(pool, nil)

	got, err := repo.GetStatus(context.Background(), uuid.New(), domain.TransitionTypeItems)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil status for a never-started user, got %+v", got)
	}
}

func TestPostgresTransitionStatusRepository_SetAndGetStatus(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresTransitionStatusRepository(pool, nil)

	userID := uuid.New()
	if err := repo.SetStatus(context.Background(), userID, domain.TransitionTypeRevisions, domain.TransitionStateInProgress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.GetStatus(context.Background(), userID, domain.TransitionTypeRevisions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a status row to exist")
	}
	if got.Status != domain.TransitionStateInProgress {
		t.Errorf("expected status InProgress, got %s", got.Status)
	}
	if got.PagingProgress != domain.DefaultPagingProgress || got.IntegrityProgress != domain.DefaultIntegrityProgress {
		t.Errorf("expected default progress counters on first creation, got paging=%d integrity=%d",
			got.PagingProgress, got.IntegrityProgress)
	}
}

func TestPostgresTransitionStatusRepository_SetStatus_UpsertPreservesProgress(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresTransitionStatusRepository(pool, nil)

	userID := uuid.New()
	if err := repo.SetPagingProgress(context.Background(), userID, domain.TransitionTypeItems, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.SetStatus(context.Background(), userID, domain.TransitionTypeItems, domain.TransitionStateVerified); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	progress, err := repo.GetPagingProgress(context.Background(), userID, domain.TransitionTypeItems)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if progress != 5 {
		t.Errorf("expected SetStatus to leave paging progress untouched at 5, got %d", progress)
	}
}

func TestPostgresTransitionStatusRepository_PagingProgress_DefaultsWhenAbsent(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresTransitionStatusRepository(pool, nil)

	progress, err := repo.GetPagingProgress(context.Background(), uuid.New(), domain.TransitionTypeItems)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if progress != domain.DefaultPagingProgress {
		t.Errorf("expected default paging progress %d, got %d", domain.DefaultPagingProgress, progress)
	}
}

func TestPostgresTransitionStatusRepository_IntegrityProgress_SetAndGet(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresTransitionStatusRepository(pool, nil)

	userID := uuid.New()
	if err := repo.SetIntegrityProgress(context.Background(), userID, domain.TransitionTypeRevisions, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	progress, err := repo.GetIntegrityProgress(context.Background(), userID, domain.TransitionTypeRevisions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if progress != 3 {
		t.Errorf("expected integrity progress 3, got %d", progress)
	}
}

func TestPostgresTransitionStatusRepository_Remove_ClearsStatusAndProgress(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresTransitionStatusRepository(pool, nil)

	userID := uuid.New()
	if err := repo.SetStatus(context.Background(), userID, domain.TransitionTypeItems, domain.TransitionStateFailed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.SetPagingProgress(context.Background(), userID, domain.TransitionTypeItems, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.Remove(context.Background(), userID, domain.TransitionTypeItems); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.GetStatus(context.Background(), userID, domain.TransitionTypeItems)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected status to be gone after Remove, got %+v", got)
	}

	progress, err := repo.GetPagingProgress(context.Background(), userID, domain.TransitionTypeItems)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if progress != domain.DefaultPagingProgress {
		t.Errorf("expected paging progress to reset to the default after Remove, got %d", progress)
	}
}

func TestPostgresTransitionStatusRepository_IndependentPerTransitionType(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresTransitionStatusRepository(pool, nil)

	userID := uuid.New()
	if err := repo.SetStatus(context.Background(), userID, domain.TransitionTypeItems, domain.TransitionStateVerified); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.GetStatus(context.Background(), userID, domain.TransitionTypeRevisions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected the revisions transition type to remain untouched, got %+v", got)
	}
}

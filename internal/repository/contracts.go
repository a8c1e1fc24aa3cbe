// Package repository implements the data-store contracts the transition
// engine and item updater depend on (§6), backed by PostgreSQL via pgx.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
)

// RevisionRepository is implemented twice: once bound to the primary
// pool, once to the secondary pool. The migrator and verifier hold one
// of each.
type RevisionRepository interface {
	CountByUserID(ctx context.Context, userID uuid.UUID) (int, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]domain.Revision, error)
	FindOneByUUID(ctx context.Context, revisionID, userID uuid.UUID) (*domain.Revision, error)
	Insert(ctx context.Context, r domain.Revision) (bool, error)
	RemoveOneByUUID(ctx context.Context, revisionID, userID uuid.UUID) error
	RemoveByUserID(ctx context.Context, userID uuid.UUID) error
}

// UserRepository is read-only from the core's perspective (§3).
type UserRepository interface {
	CountAllCreatedBetween(ctx context.Context, start, end int64) (int, error)
	FindAllCreatedBetween(ctx context.Context, start, end int64, offset, limit int) ([]domain.User, error)
}

// ItemRepository persists the item updater's results.
type ItemRepository interface {
	Save(ctx context.Context, item domain.Item) error
	FindOneByUUID(ctx context.Context, itemID, userID uuid.UUID) (*domain.Item, error)
}

// TransitionStatusRepository is the durable (userId, transitionType) ->
// status/progress mapping described in §4.4. Remove must atomically
// clear status and both progress counters.
type TransitionStatusRepository interface {
	GetStatus(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) (*domain.TransitionStatus, error)
	SetStatus(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType, status domain.TransitionState) error
	GetPagingProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) (int, error)
	SetPagingProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType, progress int) error
	GetIntegrityProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) (int, error)
	SetIntegrityProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType, progress int) error
	Remove(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) error
}

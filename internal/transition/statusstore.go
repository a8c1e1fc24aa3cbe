package transition

import (
	"context"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
)

// StatusStore is the contract the migrator, verifier, and scheduler
// driver depend on for durable (userId, transitionType) progress (§4.4).
// It is satisfied by repository.PostgresTransitionStatusRepository; the
// interface is re-declared here so this package does not import the
// repository package's concrete PostgreSQL types.
type StatusStore interface {
	GetStatus(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) (*domain.TransitionStatus, error)
	SetStatus(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType, status domain.TransitionState) error
	GetPagingProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) (int, error)
	SetPagingProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType, progress int) error
	GetIntegrityProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) (int, error)
	SetIntegrityProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType, progress int) error
	Remove(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) error
}

package transition

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
	"github.com/notesync/transition-core/internal/repository"
	"github.com/notesync/transition-core/internal/resilience"
)

// Verifier compares record counts and per-record identity between the
// primary and secondary stores after a migration attempt (§4.3).
type Verifier struct {
	primary   repository.RevisionRepository
	secondary repository.RevisionRepository
	status    StatusStore
	cfg       Config
	logger    *slog.Logger
}

// NewVerifier constructs a Verifier sharing the migrator's paging size.
func NewVerifier(primary, secondary repository.RevisionRepository, status StatusStore, cfg Config, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{primary: primary, secondary: secondary, status: status, cfg: cfg, logger: logger}
}

// Verify runs the integrity check for userID/transitionType. It returns
// nil on success, or a descriptive error identifying the mismatched
// revision on failure.
func (v *Verifier) Verify(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) error {
	primaryCount, err := resilience.WithRetryFunc(ctx, storeRetryPolicy(v.logger), func() (int, error) {
		return v.primary.CountByUserID(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("count primary revisions for user %s: %w", userID, err)
	}
	secondaryCount, err := resilience.WithRetryFunc(ctx, storeRetryPolicy(v.logger), func() (int, error) {
		return v.secondary.CountByUserID(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("count secondary revisions for user %s: %w", userID, err)
	}

	if primaryCount < secondaryCount {
		return fmt.Errorf("%w: primary has %d revisions, fewer than secondary's %d for user %s",
			resilience.ErrIntegrityMismatch, primaryCount, secondaryCount, userID)
	}

	pageSize := v.cfg.pageSize()
	totalPages := int(math.Ceil(float64(primaryCount) / float64(pageSize)))

	startPage, err := v.status.GetIntegrityProgress(ctx, userID, transitionType)
	if err != nil {
		return fmt.Errorf("read integrity progress: %w", err)
	}

	for page := startPage; page <= totalPages; page++ {
		if err := v.status.SetIntegrityProgress(ctx, userID, transitionType, page); err != nil {
			return fmt.Errorf("persist integrity progress at page %d: %w", page, err)
		}

		offset := (page - 1) * pageSize
		revisions, err := resilience.WithRetryFunc(ctx, storeRetryPolicy(v.logger), func() ([]domain.Revision, error) {
			return v.secondary.FindByUserID(ctx, userID, offset, pageSize)
		})
		if err != nil {
			return fmt.Errorf("fetch secondary page %d for verification: %w", page, err)
		}

		for _, rev := range revisions {
			if err := v.verifyOne(ctx, userID, rev); err != nil {
				return err
			}
		}
	}

	return nil
}

func (v *Verifier) verifyOne(ctx context.Context, userID uuid.UUID, secondaryRev domain.Revision) error {
	primaryRev, err := v.primary.FindOneByUUID(ctx, secondaryRev.RevisionID, userID)
	if err != nil {
		return fmt.Errorf("look up revision %s in primary: %w", secondaryRev.RevisionID, err)
	}
	if primaryRev == nil {
		return fmt.Errorf("%w: revision %s not found in primary database", resilience.ErrIntegrityMismatch, secondaryRev.RevisionID)
	}

	if primaryRev.UpdatedAt > secondaryRev.UpdatedAt {
		return nil
	}

	if primaryRev.Identical(secondaryRev) {
		return nil
	}

	primaryJSON, _ := json.Marshal(primaryRev)
	secondaryJSON, _ := json.Marshal(secondaryRev)
	return fmt.Errorf("%w: revision %s differs between stores: primary=%s secondary=%s",
		resilience.ErrIntegrityMismatch, secondaryRev.RevisionID, primaryJSON, secondaryJSON)
}

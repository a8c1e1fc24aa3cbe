package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notesync/transition-core/internal/domain"
)

// PostgresTransitionStatusRepository implements TransitionStatusRepository
// (§4.4), keyed by (user_uuid, transition_type).
type PostgresTransitionStatusRepository struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *QueryMetrics
}

// NewPostgresTransitionStatusRepository constructs a status repository
// bound to pool.
func NewPostgresTransitionStatusRepository(pool *pgxpool.Pool, logger *slog.Logger) *PostgresTransitionStatusRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTransitionStatusRepository{pool: pool, logger: logger, metrics: defaultQueryMetrics}
}

// GetStatus returns nil, nil when the row is absent (never-started, per §3).
func (r *PostgresTransitionStatusRepository) GetStatus(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) (*domain.TransitionStatus, error) {
	start := time.Now()
	var status domain.TransitionStatus
	status.UserID = userID.String()
	status.TransitionType = transitionType

	err := r.pool.QueryRow(ctx, `
		SELECT status, paging_progress, integrity_progress
		FROM transition_status
		WHERE user_uuid = $1 AND transition_type = $2`, userID, string(transitionType)).
		Scan(&status.Status, &status.PagingProgress, &status.IntegrityProgress)

	if errors.Is(err, pgx.ErrNoRows) {
		r.metrics.QueryDuration.WithLabelValues("transition_status", "get_status", "success").
			Observe(time.Since(start).Seconds())
		return nil, nil
	}
	r.metrics.QueryDuration.WithLabelValues("transition_status", "get_status", statusLabel(err)).
		Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.QueryErrors.WithLabelValues("transition_status", "get_status", "database").Inc()
		return nil, fmt.Errorf("get transition status for user %s type %s: %w", userID, transitionType, err)
	}
	return &status, nil
}

// SetStatus upserts the status field, creating the row with default
// progress counters (1, 1) if it does not yet exist.
func (r *PostgresTransitionStatusRepository) SetStatus(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType, status domain.TransitionState) error {
	start := time.Now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transition_status (user_uuid, transition_type, status, paging_progress, integrity_progress, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_uuid, transition_type) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		userID, string(transitionType), string(status),
		domain.DefaultPagingProgress, domain.DefaultIntegrityProgress, nowMicros())
	r.metrics.QueryDuration.WithLabelValues("transition_status", "set_status", statusLabel(err)).
		Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.QueryErrors.WithLabelValues("transition_status", "set_status", "database").Inc()
		return fmt.Errorf("set transition status for user %s type %s: %w", userID, transitionType, err)
	}
	return nil
}

// GetPagingProgress returns the default (1) if the row does not exist.
func (r *PostgresTransitionStatusRepository) GetPagingProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) (int, error) {
	var progress int
	err := r.pool.QueryRow(ctx, `
		SELECT paging_progress FROM transition_status
		WHERE user_uuid = $1 AND transition_type = $2`, userID, string(transitionType)).Scan(&progress)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultPagingProgress, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get paging progress for user %s type %s: %w", userID, transitionType, err)
	}
	return progress, nil
}

// SetPagingProgress persists pagingProgress before the caller fetches
// the corresponding page, per §4.2's resumability requirement.
func (r *PostgresTransitionStatusRepository) SetPagingProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType, progress int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transition_status (user_uuid, transition_type, paging_progress, integrity_progress, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_uuid, transition_type) DO UPDATE SET
			paging_progress = EXCLUDED.paging_progress,
			updated_at = EXCLUDED.updated_at`,
		userID, string(transitionType), progress, domain.DefaultIntegrityProgress, nowMicros())
	if err != nil {
		return fmt.Errorf("set paging progress for user %s type %s: %w", userID, transitionType, err)
	}
	return nil
}

// GetIntegrityProgress returns the default (1) if the row does not exist.
func (r *PostgresTransitionStatusRepository) GetIntegrityProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) (int, error) {
	var progress int
	err := r.pool.QueryRow(ctx, `
		SELECT integrity_progress FROM transition_status
		WHERE user_uuid = $1 AND transition_type = $2`, userID, string(transitionType)).Scan(&progress)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultIntegrityProgress, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get integrity progress for user %s type %s: %w", userID, transitionType, err)
	}
	return progress, nil
}

// SetIntegrityProgress persists integrityProgress before the caller
// checks the corresponding page.
func (r *PostgresTransitionStatusRepository) SetIntegrityProgress(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType, progress int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transition_status (user_uuid, transition_type, paging_progress, integrity_progress, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_uuid, transition_type) DO UPDATE SET
			integrity_progress = EXCLUDED.integrity_progress,
			updated_at = EXCLUDED.updated_at`,
		userID, string(transitionType), domain.DefaultPagingProgress, progress, nowMicros())
	if err != nil {
		return fmt.Errorf("set integrity progress for user %s type %s: %w", userID, transitionType, err)
	}
	return nil
}

// Remove atomically clears status and both progress counters by
// deleting the row outright; the next read sees the "never started"
// defaults.
func (r *PostgresTransitionStatusRepository) Remove(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) error {
	start := time.Now()
	_, err := r.pool.Exec(ctx, `
		DELETE FROM transition_status WHERE user_uuid = $1 AND transition_type = $2`,
		userID, string(transitionType))
	r.metrics.QueryDuration.WithLabelValues("transition_status", "remove", statusLabel(err)).
		Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.QueryErrors.WithLabelValues("transition_status", "remove", "database").Inc()
		return fmt.Errorf("remove transition status for user %s type %s: %w", userID, transitionType, err)
	}
	return nil
}

func nowMicros() int64 {
	return time.Now().UTC().UnixMicro()
}

package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notesync/transition-core/internal/domain"
)

// PostgresRevisionRepository implements RevisionRepository against a
// single pgx pool. The migrator and verifier each hold two instances,
// one bound to the primary pool and one to the secondary pool.
type PostgresRevisionRepository struct {
	pool    *pgxpool.Pool
	store   string // "primary" or "secondary", used only for metric/log labels
	logger  *slog.Logger
	metrics *QueryMetrics
}

// NewPostgresRevisionRepository constructs a repository bound to pool,
// labeled store for metrics and logs ("primary" or "secondary").
func NewPostgresRevisionRepository(pool *pgxpool.Pool, store string, logger *slog.Logger) *PostgresRevisionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRevisionRepository{
		pool:    pool,
		store:   store,
		logger:  logger,
		metrics: defaultQueryMetrics,
	}
}

func (r *PostgresRevisionRepository) observe(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
		r.metrics.QueryErrors.WithLabelValues(r.store, operation, "database").Inc()
	}
	r.metrics.QueryDuration.WithLabelValues(r.store, operation, status).Observe(duration)
}

// CountByUserID returns the number of revisions held for userID.
func (r *PostgresRevisionRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	start := time.Now()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM revisions WHERE user_uuid = $1`, userID).Scan(&count)
	r.observe("count_by_user_id", start, err)
	if err != nil {
		return 0, fmt.Errorf("%s: count revisions for user %s: %w", r.store, userID, err)
	}
	return count, nil
}

// FindByUserID returns one page of revisions for userID, ordered by
// revision_uuid for a stable paging cursor.
func (r *PostgresRevisionRepository) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]domain.Revision, error) {
	start := time.Now()
	rows, err := r.pool.Query(ctx, `
		SELECT revision_uuid, user_uuid, item_uuid, content, content_type,
		       enc_item_key, auth_hash, items_key_id, creator_user_id,
		       created_at, updated_at
		FROM revisions
		WHERE user_uuid = $1
		ORDER BY revision_uuid
		OFFSET $2 LIMIT $3`, userID, offset, limit)
	if err != nil {
		r.observe("find_by_user_id", start, err)
		return nil, fmt.Errorf("%s: query revisions for user %s: %w", r.store, userID, err)
	}
	defer rows.Close()

	revisions, err := scanRevisions(rows)
	r.observe("find_by_user_id", start, err)
	if err != nil {
		return nil, fmt.Errorf("%s: scan revisions for user %s: %w", r.store, userID, err)
	}
	r.metrics.QueryResults.WithLabelValues(r.store, "find_by_user_id").Observe(float64(len(revisions)))
	return revisions, nil
}

// FindOneByUUID returns the revision (revisionID, userID), or nil if absent.
func (r *PostgresRevisionRepository) FindOneByUUID(ctx context.Context, revisionID, userID uuid.UUID) (*domain.Revision, error) {
	start := time.Now()
	row := r.pool.QueryRow(ctx, `
		SELECT revision_uuid, user_uuid, item_uuid, content, content_type,
		       enc_item_key, auth_hash, items_key_id, creator_user_id,
		       created_at, updated_at
		FROM revisions
		WHERE revision_uuid = $1 AND user_uuid = $2`, revisionID, userID)

	rev, err := scanRevisionRow(row)
	if err == pgx.ErrNoRows {
		r.observe("find_one_by_uuid", start, nil)
		return nil, nil
	}
	r.observe("find_one_by_uuid", start, err)
	if err != nil {
		return nil, fmt.Errorf("%s: find revision %s for user %s: %w", r.store, revisionID, userID, err)
	}
	return rev, nil
}

// Insert stores a revision copied from the other store. Revisions are
// immutable after insert, so a conflict on revision_uuid is unexpected
// and returned as an error rather than silently upserted.
func (r *PostgresRevisionRepository) Insert(ctx context.Context, rev domain.Revision) (bool, error) {
	start := time.Now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO revisions (revision_uuid, user_uuid, item_uuid, content, content_type,
		                        enc_item_key, auth_hash, items_key_id, creator_user_id,
		                        created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rev.RevisionID, rev.UserID, rev.ItemUUID, rev.Content, rev.ContentType,
		rev.EncItemKey, rev.AuthHash, rev.ItemsKeyID, rev.CreatorUserID,
		rev.CreatedAt, rev.UpdatedAt)
	r.observe("insert", start, err)
	if err != nil {
		return false, fmt.Errorf("%s: insert revision %s: %w", r.store, rev.RevisionID, err)
	}
	return true, nil
}

// RemoveOneByUUID deletes a single revision.
func (r *PostgresRevisionRepository) RemoveOneByUUID(ctx context.Context, revisionID, userID uuid.UUID) error {
	start := time.Now()
	_, err := r.pool.Exec(ctx,
		`DELETE FROM revisions WHERE revision_uuid = $1 AND user_uuid = $2`, revisionID, userID)
	r.observe("remove_one_by_uuid", start, err)
	if err != nil {
		return fmt.Errorf("%s: delete revision %s for user %s: %w", r.store, revisionID, userID, err)
	}
	return nil
}

// RemoveByUserID deletes every revision for userID (migration cleanup,
// §4.2 step 6).
func (r *PostgresRevisionRepository) RemoveByUserID(ctx context.Context, userID uuid.UUID) error {
	start := time.Now()
	_, err := r.pool.Exec(ctx, `DELETE FROM revisions WHERE user_uuid = $1`, userID)
	r.observe("remove_by_user_id", start, err)
	if err != nil {
		return fmt.Errorf("%s: delete all revisions for user %s: %w", r.store, userID, err)
	}
	return nil
}

func scanRevisionRow(row pgx.Row) (*domain.Revision, error) {
	var rev domain.Revision
	err := row.Scan(&rev.RevisionID, &rev.UserID, &rev.ItemUUID, &rev.Content, &rev.ContentType,
		&rev.EncItemKey, &rev.AuthHash, &rev.ItemsKeyID, &rev.CreatorUserID,
		&rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

func scanRevisions(rows pgx.Rows) ([]domain.Revision, error) {
	var out []domain.Revision
	for rows.Next() {
		var rev domain.Revision
		if err := rows.Scan(&rev.RevisionID, &rev.UserID, &rev.ItemUUID, &rev.Content, &rev.ContentType,
			&rev.EncItemKey, &rev.AuthHash, &rev.ItemsKeyID, &rev.CreatorUserID,
			&rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

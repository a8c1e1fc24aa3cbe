package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notesync/transition-core/internal/domain"
)

// PostgresUserRepository implements UserRepository. Users are created
// and maintained externally; this package only reads them.
type PostgresUserRepository struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *QueryMetrics
}

// NewPostgresUserRepository constructs a user repository bound to pool.
func NewPostgresUserRepository(pool *pgxpool.Pool, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserRepository{pool: pool, logger: logger, metrics: defaultQueryMetrics}
}

// CountAllCreatedBetween counts users with createdAt in [start, end].
func (r *PostgresUserRepository) CountAllCreatedBetween(ctx context.Context, start, end int64) (int, error) {
	queryStart := time.Now()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE created_at BETWEEN $1 AND $2`, start, end).Scan(&count)
	r.metrics.QueryDuration.WithLabelValues("users", "count_created_between", statusLabel(err)).
		Observe(time.Since(queryStart).Seconds())
	if err != nil {
		r.metrics.QueryErrors.WithLabelValues("users", "count_created_between", "database").Inc()
		return 0, fmt.Errorf("count users created between %d and %d: %w", start, end, err)
	}
	return count, nil
}

// FindAllCreatedBetween pages through users with createdAt in [start, end],
// ordered by user_uuid for a stable cursor.
func (r *PostgresUserRepository) FindAllCreatedBetween(ctx context.Context, start, end int64, offset, limit int) ([]domain.User, error) {
	queryStart := time.Now()
	rows, err := r.pool.Query(ctx, `
		SELECT user_uuid, roles, created_at, updated_at
		FROM users
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY user_uuid
		OFFSET $3 LIMIT $4`, start, end, offset, limit)
	if err != nil {
		r.metrics.QueryErrors.WithLabelValues("users", "find_created_between", "database").Inc()
		return nil, fmt.Errorf("query users created between %d and %d: %w", start, end, err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.UserID, &u.Roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
			r.metrics.QueryErrors.WithLabelValues("users", "find_created_between", "scan").Inc()
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}

	r.metrics.QueryDuration.WithLabelValues("users", "find_created_between", "success").
		Observe(time.Since(queryStart).Seconds())
	r.metrics.QueryResults.WithLabelValues("users", "find_created_between").Observe(float64(len(users)))
	return users, nil
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

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

// PostgresItemRepository implements ItemRepository, persisting the
// item updater's result (§4.6).
type PostgresItemRepository struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *QueryMetrics
}

// NewPostgresItemRepository constructs an item repository bound to pool.
func NewPostgresItemRepository(pool *pgxpool.Pool, logger *slog.Logger) *PostgresItemRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresItemRepository{pool: pool, logger: logger, metrics: defaultQueryMetrics}
}

// Save upserts item, and its shared-vault / key-system associations
// when present, in a single transaction.
func (r *PostgresItemRepository) Save(ctx context.Context, item domain.Item) error {
	start := time.Now()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.metrics.QueryErrors.WithLabelValues("items", "save", "database").Inc()
		return fmt.Errorf("begin item save transaction for item %s: %w", item.ItemID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO items (item_uuid, user_uuid, session_uuid, content, content_type,
		                    enc_item_key, auth_hash, items_key_id, duplicate_of, deleted,
		                    created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (item_uuid) DO UPDATE SET
			session_uuid = EXCLUDED.session_uuid,
			content      = EXCLUDED.content,
			content_type = EXCLUDED.content_type,
			enc_item_key = EXCLUDED.enc_item_key,
			auth_hash    = EXCLUDED.auth_hash,
			items_key_id = EXCLUDED.items_key_id,
			duplicate_of = EXCLUDED.duplicate_of,
			deleted      = EXCLUDED.deleted,
			updated_at   = EXCLUDED.updated_at`,
		item.ItemID, item.UserID, item.SessionID, item.Content, item.ContentType,
		item.EncItemKey, item.AuthHash, item.ItemsKeyID, item.DuplicateOf, item.Deleted,
		item.Timestamps.CreatedAt, item.Timestamps.UpdatedAt)
	if err != nil {
		r.metrics.QueryErrors.WithLabelValues("items", "save", "database").Inc()
		return fmt.Errorf("upsert item %s: %w", item.ItemID, err)
	}

	if assoc := item.SharedVaultAssociation; assoc != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO shared_vault_associations (item_uuid, shared_vault_uuid, last_edited_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (item_uuid) DO UPDATE SET
				shared_vault_uuid = EXCLUDED.shared_vault_uuid,
				last_edited_by    = EXCLUDED.last_edited_by,
				updated_at        = EXCLUDED.updated_at`,
			assoc.ItemID, assoc.SharedVaultID, assoc.LastEditedBy,
			assoc.Timestamps.CreatedAt, assoc.Timestamps.UpdatedAt)
		if err != nil {
			r.metrics.QueryErrors.WithLabelValues("items", "save", "database").Inc()
			return fmt.Errorf("upsert shared vault association for item %s: %w", item.ItemID, err)
		}
	}

	if assoc := item.KeySystemAssociation; assoc != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO key_system_associations (item_uuid, key_system_uuid, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (item_uuid) DO UPDATE SET
				key_system_uuid = EXCLUDED.key_system_uuid,
				updated_at      = EXCLUDED.updated_at`,
			assoc.ItemID, assoc.KeySystemID, assoc.Timestamps.CreatedAt, assoc.Timestamps.UpdatedAt)
		if err != nil {
			r.metrics.QueryErrors.WithLabelValues("items", "save", "database").Inc()
			return fmt.Errorf("upsert key system association for item %s: %w", item.ItemID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.metrics.QueryErrors.WithLabelValues("items", "save", "database").Inc()
		return fmt.Errorf("commit item save transaction for item %s: %w", item.ItemID, err)
	}

	r.metrics.QueryDuration.WithLabelValues("items", "save", "success").Observe(time.Since(start).Seconds())
	return nil
}

// FindOneByUUID returns the item (itemID, userID) with its associations
// loaded, or nil if the item has not been seen before.
func (r *PostgresItemRepository) FindOneByUUID(ctx context.Context, itemID, userID uuid.UUID) (*domain.Item, error) {
	start := time.Now()

	var item domain.Item
	err := r.pool.QueryRow(ctx, `
		SELECT item_uuid, user_uuid, session_uuid, content, content_type,
		       enc_item_key, auth_hash, items_key_id, duplicate_of, deleted,
		       created_at, updated_at
		FROM items
		WHERE item_uuid = $1 AND user_uuid = $2`, itemID, userID).Scan(
		&item.ItemID, &item.UserID, &item.SessionID, &item.Content, &item.ContentType,
		&item.EncItemKey, &item.AuthHash, &item.ItemsKeyID, &item.DuplicateOf, &item.Deleted,
		&item.Timestamps.CreatedAt, &item.Timestamps.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		r.metrics.QueryDuration.WithLabelValues("items", "find_one_by_uuid", "success").Observe(time.Since(start).Seconds())
		return nil, nil
	}
	if err != nil {
		r.metrics.QueryErrors.WithLabelValues("items", "find_one_by_uuid", "database").Inc()
		return nil, fmt.Errorf("find item %s for user %s: %w", itemID, userID, err)
	}
	item.Dates = domain.Dates{
		CreatedAt: formatDate(item.Timestamps.CreatedAt),
		UpdatedAt: formatDate(item.Timestamps.UpdatedAt),
	}

	var vault domain.SharedVaultAssociation
	err = r.pool.QueryRow(ctx, `
		SELECT item_uuid, shared_vault_uuid, last_edited_by, created_at, updated_at
		FROM shared_vault_associations WHERE item_uuid = $1`, itemID).Scan(
		&vault.ItemID, &vault.SharedVaultID, &vault.LastEditedBy, &vault.Timestamps.CreatedAt, &vault.Timestamps.UpdatedAt)
	if err == nil {
		item.SharedVaultAssociation = &vault
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find shared vault association for item %s: %w", itemID, err)
	}

	var keySystem domain.KeySystemAssociation
	err = r.pool.QueryRow(ctx, `
		SELECT item_uuid, key_system_uuid, created_at, updated_at
		FROM key_system_associations WHERE item_uuid = $1`, itemID).Scan(
		&keySystem.ItemID, &keySystem.KeySystemID, &keySystem.Timestamps.CreatedAt, &keySystem.Timestamps.UpdatedAt)
	if err == nil {
		item.KeySystemAssociation = &keySystem
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find key system association for item %s: %w", itemID, err)
	}

	r.metrics.QueryDuration.WithLabelValues("items", "find_one_by_uuid", "success").Observe(time.Since(start).Seconds())
	return &item, nil
}

// formatDate mirrors itemsync's date formatting so rows read back from
// storage carry the same Dates the updater would have produced at
// write time.
func formatDate(microseconds int64) string {
	return time.UnixMicro(microseconds).UTC().Format(time.RFC3339Nano)
}

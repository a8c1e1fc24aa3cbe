// Package itemsync implements the sync item updater (§4.6): it applies
// a client-submitted item hash onto the server's held item state,
// resolves shared-vault and key-system association identity, persists
// the result, and publishes the events other components react to.
package itemsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
	"github.com/notesync/transition-core/internal/eventbus"
	"github.com/notesync/transition-core/internal/repository"
)

// Updater applies item hashes onto existing (or newly-created) items.
type Updater struct {
	items  repository.ItemRepository
	emit   *emitter
	logger *slog.Logger
}

// NewUpdater constructs an Updater. publisher may be nil in which case
// events are silently dropped (suitable for offline tooling).
func NewUpdater(items repository.ItemRepository, publisher eventbus.Publisher, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{
		items:  items,
		emit:   newEmitter(publisher),
		logger: logger,
	}
}

// Apply implements §4.6's update rules. existingItem is nil when the
// hash describes an item the server has not seen before.
func (u *Updater) Apply(ctx context.Context, existingItem *domain.Item, hash domain.ItemHash, sessionID, performingUserID string) (domain.Item, error) {
	if err := validate(hash, sessionID, performingUserID); err != nil {
		return domain.Item{}, fmt.Errorf("validate item hash: %w", err)
	}

	itemID, err := uuid.Parse(hash.ItemID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("invalid itemId %q: %w", hash.ItemID, err)
	}
	sessionUUID, err := uuid.Parse(sessionID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("invalid sessionId %q: %w", sessionID, err)
	}
	userUUID, err := uuid.Parse(performingUserID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("invalid performingUserId %q: %w", performingUserID, err)
	}

	item := domain.Item{ItemID: itemID, UserID: userUUID}
	var existingVault *domain.SharedVaultAssociation
	var existingKeySystem *domain.KeySystemAssociation
	if existingItem != nil {
		item = *existingItem
		item.ItemID = itemID
		item.UserID = userUUID
		existingVault = existingItem.SharedVaultAssociation
		existingKeySystem = existingItem.KeySystemAssociation
	}
	item.SessionID = &sessionUUID

	// Copy opaque payload fields from hash to item.
	item.Content = hash.Content
	item.ContentType = hash.ContentType
	item.EncItemKey = hash.EncItemKey
	item.AuthHash = hash.AuthHash
	item.ItemsKeyID = hash.ItemsKeyID

	if hash.Deleted {
		item.ApplyDeletion()
	} else {
		item.Deleted = false
		if hash.DuplicateOf != nil {
			dup, err := uuid.Parse(*hash.DuplicateOf)
			if err != nil {
				return domain.Item{}, fmt.Errorf("invalid duplicate_of %q: %w", *hash.DuplicateOf, err)
			}
			item.DuplicateOf = &dup
		} else {
			item.DuplicateOf = nil
		}
	}

	timestamps, err := resolveTimestamps(hash)
	if err != nil {
		return domain.Item{}, fmt.Errorf("resolve timestamps: %w", err)
	}
	item.Timestamps = timestamps
	item.Dates = domain.Dates{
		CreatedAt: formatDate(timestamps.CreatedAt),
		UpdatedAt: formatDate(timestamps.UpdatedAt),
	}

	vault, err := resolveSharedVaultAssociation(existingVault, hash.SharedVaultUUID, itemID, userUUID, timestamps)
	if err != nil {
		return domain.Item{}, fmt.Errorf("resolve shared vault association: %w", err)
	}
	item.SharedVaultAssociation = vault

	keySystem, err := resolveKeySystemAssociation(existingKeySystem, hash.KeySystemIdentifier, itemID, timestamps)
	if err != nil {
		return domain.Item{}, fmt.Errorf("resolve key system association: %w", err)
	}
	item.KeySystemAssociation = keySystem

	if err := item.Validate(); err != nil {
		return domain.Item{}, fmt.Errorf("constructed item is invalid: %w", err)
	}

	if err := u.items.Save(ctx, item); err != nil {
		return domain.Item{}, fmt.Errorf("save item %s: %w", itemID, err)
	}

	if err := u.emit.revisionCreationRequested(ctx, RevisionCreationRequestedEvent{ItemID: itemID, UserID: userUUID}); err != nil {
		u.logger.Warn("failed to publish revision creation requested event", "item_id", itemID, "error", err)
	}

	// Gated on item.DuplicateOf surviving onto the saved item, not merely
	// on hash.DuplicateOf being present: a deletion that also carried
	// duplicate_of clears DuplicateOf on apply, so only the revision
	// event fires for it, matching the deletion case's expected events.
	if hash.DuplicateOf != nil && item.DuplicateOf != nil {
		if err := u.emit.duplicateItemSynced(ctx, DuplicateItemSyncedEvent{ItemID: itemID, DuplicateOfID: *item.DuplicateOf, UserID: userUUID}); err != nil {
			u.logger.Warn("failed to publish duplicate item synced event", "item_id", itemID, "error", err)
		}
	}

	return item, nil
}

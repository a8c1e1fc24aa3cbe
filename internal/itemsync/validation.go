package itemsync

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
)

// validate runs the ordered validation chain from §4.6: the first
// failure short-circuits and is returned as a human-readable error.
func validate(hash domain.ItemHash, sessionID, performingUserID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("invalid sessionId %q: %w", sessionID, err)
	}
	if _, err := uuid.Parse(performingUserID); err != nil {
		return fmt.Errorf("invalid performingUserId %q: %w", performingUserID, err)
	}
	if !domain.ValidContentType(hash.ContentType) {
		return fmt.Errorf("unknown content type %q", hash.ContentType)
	}
	if hash.DuplicateOf != nil {
		if _, err := uuid.Parse(*hash.DuplicateOf); err != nil {
			return fmt.Errorf("invalid duplicate_of %q: %w", *hash.DuplicateOf, err)
		}
	}
	if !hash.HasCreationTime() {
		return fmt.Errorf("item hash for %s is missing a creation time", hash.ItemID)
	}
	if hash.SharedVaultUUID != nil {
		if _, err := uuid.Parse(*hash.SharedVaultUUID); err != nil {
			return fmt.Errorf("invalid shared_vault_uuid %q: %w", *hash.SharedVaultUUID, err)
		}
	}
	if hash.KeySystemIdentifier != nil {
		if _, err := uuid.Parse(*hash.KeySystemIdentifier); err != nil {
			return fmt.Errorf("invalid key_system_identifier %q: %w", *hash.KeySystemIdentifier, err)
		}
	}
	return nil
}

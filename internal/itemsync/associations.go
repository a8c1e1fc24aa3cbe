package itemsync

import (
	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
)

// resolveSharedVaultAssociation implements §4.6's shared-vault rule: a
// new association replaces the existing one only when the hash names a
// different vault; otherwise the existing association's identity is
// preserved untouched.
func resolveSharedVaultAssociation(existing *domain.SharedVaultAssociation, hashVaultUUID *string, itemID uuid.UUID, performingUserID uuid.UUID, itemTimestamps domain.Timestamps) (*domain.SharedVaultAssociation, error) {
	if hashVaultUUID == nil {
		return existing, nil
	}

	vaultID, err := uuid.Parse(*hashVaultUUID)
	if err != nil {
		return nil, err
	}

	if existing.NamesSameVault(vaultID) {
		return existing, nil
	}

	return &domain.SharedVaultAssociation{
		ItemID:        itemID,
		SharedVaultID: vaultID,
		LastEditedBy:  performingUserID,
		Timestamps:    itemTimestamps,
	}, nil
}

// resolveKeySystemAssociation is the symmetric rule for key-system
// associations.
func resolveKeySystemAssociation(existing *domain.KeySystemAssociation, hashKeySystemID *string, itemID uuid.UUID, itemTimestamps domain.Timestamps) (*domain.KeySystemAssociation, error) {
	if hashKeySystemID == nil {
		return existing, nil
	}

	keySystemID, err := uuid.Parse(*hashKeySystemID)
	if err != nil {
		return nil, err
	}

	if existing.NamesSameKeySystem(keySystemID) {
		return existing, nil
	}

	return &domain.KeySystemAssociation{
		ItemID:      itemID,
		KeySystemID: keySystemID,
		Timestamps:  itemTimestamps,
	}, nil
}

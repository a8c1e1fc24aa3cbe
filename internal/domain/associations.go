package domain

import "github.com/google/uuid"

// SharedVaultAssociation links an item to a shared vault. It is
// re-created only when an incoming hash names a different vault than
// the one currently associated (identity preserved otherwise).
type SharedVaultAssociation struct {
	ItemID        uuid.UUID
	SharedVaultID uuid.UUID
	LastEditedBy  uuid.UUID
	Timestamps    Timestamps
}

// NamesSameVault reports whether vaultID matches the association's
// current vault, i.e. whether the association's identity should be
// preserved rather than replaced.
func (a *SharedVaultAssociation) NamesSameVault(vaultID uuid.UUID) bool {
	return a != nil && a.SharedVaultID == vaultID
}

// KeySystemAssociation links an item to a key system. Same lifecycle
// rule as SharedVaultAssociation.
type KeySystemAssociation struct {
	ItemID       uuid.UUID
	KeySystemID  uuid.UUID
	Timestamps   Timestamps
}

// NamesSameKeySystem reports whether keySystemID matches the
// association's current key system.
func (a *KeySystemAssociation) NamesSameKeySystem(keySystemID uuid.UUID) bool {
	return a != nil && a.KeySystemID == keySystemID
}

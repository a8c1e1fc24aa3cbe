package domain

import "github.com/google/uuid"

// Dates carries the human-readable timestamp pair for an item, derived
// from the UTC-microsecond Timestamps at construction time.
type Dates struct {
	CreatedAt string
	UpdatedAt string
}

// Timestamps carries the UTC-microsecond timestamp pair backing an
// item's Dates.
type Timestamps struct {
	CreatedAt int64
	UpdatedAt int64
}

// Valid enforces invariant 2: updatedAt must not precede createdAt.
func (t Timestamps) Valid() bool {
	return t.UpdatedAt >= t.CreatedAt
}

// Item is the latest server-held state for a note-like entity.
type Item struct {
	ItemID      uuid.UUID
	UserID      uuid.UUID
	SessionID   *uuid.UUID
	Content     *string
	ContentType string
	EncItemKey  *string
	AuthHash    *string
	ItemsKeyID  *string
	DuplicateOf *uuid.UUID
	Deleted     bool

	Dates      Dates
	Timestamps Timestamps

	SharedVaultAssociation *SharedVaultAssociation
	KeySystemAssociation   *KeySystemAssociation
}

// ApplyDeletion clears payload fields per invariant 1: deleted=true
// implies content, encItemKey, authHash, itemsKeyId, duplicateOf are
// all null.
func (i *Item) ApplyDeletion() {
	i.Deleted = true
	i.Content = nil
	i.EncItemKey = nil
	i.AuthHash = nil
	i.ItemsKeyID = nil
	i.DuplicateOf = nil
}

// Validate enforces the Item invariants that hold regardless of how the
// item reached its current state.
func (i Item) Validate() error {
	if i.Deleted {
		if i.Content != nil || i.EncItemKey != nil || i.AuthHash != nil ||
			i.ItemsKeyID != nil || i.DuplicateOf != nil {
			return errDeletedWithPayload
		}
	}
	if !i.Timestamps.Valid() {
		return errUpdatedBeforeCreated
	}
	return nil
}

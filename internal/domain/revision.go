package domain

import "github.com/google/uuid"

// Revision is an immutable historical record of an item's state. Two
// revisions are identical iff all payload fields and both timestamps
// are equal (§3 invariant).
type Revision struct {
	RevisionID uuid.UUID
	UserID     uuid.UUID
	ItemUUID   uuid.UUID

	Content        *string
	ContentType    string
	EncItemKey     *string
	AuthHash       *string
	ItemsKeyID     *string
	CreatorUserID  *uuid.UUID

	CreatedAt int64 // UTC microseconds
	UpdatedAt int64 // UTC microseconds
}

// Identical reports whether r and other carry the same payload and
// timestamps, per the data model's identity rule for revisions.
func (r Revision) Identical(other Revision) bool {
	return stringPtrEqual(r.Content, other.Content) &&
		r.ContentType == other.ContentType &&
		stringPtrEqual(r.EncItemKey, other.EncItemKey) &&
		stringPtrEqual(r.AuthHash, other.AuthHash) &&
		stringPtrEqual(r.ItemsKeyID, other.ItemsKeyID) &&
		uuidPtrEqual(r.CreatorUserID, other.CreatorUserID) &&
		r.CreatedAt == other.CreatedAt &&
		r.UpdatedAt == other.UpdatedAt
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

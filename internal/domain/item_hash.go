package domain

// ItemHash is the client-submitted desired mutation for one item,
// validated and applied by the item updater (§4.6).
type ItemHash struct {
	ItemID      string
	Content     *string
	ContentType string
	EncItemKey  *string
	AuthHash    *string
	ItemsKeyID  *string
	DuplicateOf *string
	Deleted     bool

	SharedVaultUUID     *string
	KeySystemIdentifier *string

	// Microsecond forms, preferred when present.
	CreatedAtTimestamp *int64
	UpdatedAtTimestamp *int64

	// Date-string forms, used when the microsecond forms are absent.
	CreatedAt *string
	UpdatedAt *string
}

// HasCreationTime reports whether at least one of the two accepted
// creation-time forms is present, per §4.6 validation step 4.
func (h ItemHash) HasCreationTime() bool {
	return h.CreatedAtTimestamp != nil || h.CreatedAt != nil
}

// HasMicrosecondTimestamps reports whether both timestamp fields are
// present in microsecond form, allowing the direct-use path.
func (h ItemHash) HasMicrosecondTimestamps() bool {
	return h.CreatedAtTimestamp != nil && h.UpdatedAtTimestamp != nil
}

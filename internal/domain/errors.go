package domain

import "errors"

var (
	errDeletedWithPayload   = errors.New("domain: deleted item must not carry content, encItemKey, authHash, itemsKeyId, or duplicateOf")
	errUpdatedBeforeCreated = errors.New("domain: updatedAt must not precede createdAt")
)

package itemsync

import (
	"context"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/eventbus"
)

// RevisionCreationRequestedEvent is published once per successfully
// applied item hash (§4.6).
type RevisionCreationRequestedEvent struct {
	ItemID uuid.UUID `json:"itemId"`
	UserID uuid.UUID `json:"userId"`
}

// DuplicateItemSyncedEvent is additionally published when the applied
// hash carried a duplicate_of reference.
type DuplicateItemSyncedEvent struct {
	ItemID      uuid.UUID `json:"itemId"`
	DuplicateOfID uuid.UUID `json:"duplicateOfId"`
	UserID      uuid.UUID `json:"userId"`
}

type emitter struct {
	publisher eventbus.Publisher
}

func newEmitter(publisher eventbus.Publisher) *emitter {
	return &emitter{publisher: publisher}
}

func (e *emitter) revisionCreationRequested(ctx context.Context, evt RevisionCreationRequestedEvent) error {
	if e.publisher == nil {
		return nil
	}
	return e.publisher.Publish(ctx, eventbus.KindItemRevisionCreationRequested, evt)
}

func (e *emitter) duplicateItemSynced(ctx context.Context, evt DuplicateItemSyncedEvent) error {
	if e.publisher == nil {
		return nil
	}
	return e.publisher.Publish(ctx, eventbus.KindDuplicateItemSynced, evt)
}

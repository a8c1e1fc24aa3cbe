package transition

import (
	"context"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
	"github.com/notesync/transition-core/internal/eventbus"
)

// RequestedEvent is published by the scheduler driver when it decides a
// (user, transitionType) pair should migrate (§4.5).
type RequestedEvent struct {
	UserID    uuid.UUID             `json:"userId"`
	Type      domain.TransitionType `json:"type"`
	Timestamp int64                 `json:"timestamp"`
}

// StatusUpdatedEvent is published by the per-user migrator on every
// status transition, including keep-alive re-publishes of InProgress.
type StatusUpdatedEvent struct {
	UserID                uuid.UUID              `json:"userId"`
	Status                domain.TransitionState `json:"status"`
	TransitionType        domain.TransitionType  `json:"transitionType"`
	TransitionTimestamp   int64                  `json:"transitionTimestamp"`
}

// emitter wraps an eventbus.Publisher with the two event kinds the
// transition engine produces.
type emitter struct {
	publisher eventbus.Publisher
}

func newEmitter(publisher eventbus.Publisher) *emitter {
	return &emitter{publisher: publisher}
}

func (e *emitter) requested(ctx context.Context, evt RequestedEvent) error {
	if e.publisher == nil {
		return nil
	}
	return e.publisher.Publish(ctx, eventbus.KindTransitionRequested, evt)
}

func (e *emitter) statusUpdated(ctx context.Context, evt StatusUpdatedEvent) error {
	if e.publisher == nil {
		return nil
	}
	return e.publisher.Publish(ctx, eventbus.KindTransitionStatusUpdated, evt)
}

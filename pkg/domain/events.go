package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventReplyCommitted  EventType = "reply_committed"
	EventReplyRejected   EventType = "reply_rejected"
	EventComposerToggled EventType = "composer_toggled"
	EventLike            EventType = "like"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id,omitempty"`
}

// ReplyEvent describes a reply commit attempt.
type ReplyEvent struct {
	EventBase
	ParentID string `json:"parent_id"`
	NodeID   string `json:"node_id,omitempty"` // Empty when rejected
	Depth    int    `json:"depth"`
	Err      error  `json:"-"`
}

// ComposerEvent describes a composer toggle.
type ComposerEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Open   bool   `json:"open"`
}

// LikeEvent records an activation of the like affordance.
// The engine models no reaction state; the event is the only trace.
type LikeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
}

// LifecycleHooks defines callbacks for engine observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnReplyCommitted  func(context.Context, *ReplyEvent)
	OnReplyRejected   func(context.Context, *ReplyEvent)
	OnComposerToggled func(context.Context, *ComposerEvent)
	OnLike            func(context.Context, *LikeEvent)
}

// Merge returns hooks that call h first and then other, for each callback.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnReplyCommitted:  chain(h.OnReplyCommitted, other.OnReplyCommitted),
		OnReplyRejected:   chain(h.OnReplyRejected, other.OnReplyRejected),
		OnComposerToggled: chain(h.OnComposerToggled, other.OnComposerToggled),
		OnLike:            chain(h.OnLike, other.OnLike),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// Package composer tracks the inline reply editors of a thread: which nodes
// have an open composer and what has been typed into each.
//
// Composer state is ephemeral and separate from the thread tree. Multiple
// composers may be open at once.
package composer

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/thread"
)

// DefaultAuthor is the label used for replies when no identity is configured.
const DefaultAuthor = "You"

// Replier commits replies. *thread.Store satisfies it.
type Replier interface {
	AddReply(ctx context.Context, parentID, authorLabel, body string, opts ...thread.ReplyOption) (domain.CommentNode, error)
}

// State holds composer entries keyed by node id.
// Absent entries are closed with an empty draft.
type State struct {
	mu      sync.Mutex
	entries map[string]domain.Composer

	subjectID   string
	authorLabel string
	avatarRef   string
	hooks       domain.LifecycleHooks
	clock       func() time.Time
}

// Option configures a State.
type Option func(*State)

// WithAuthor sets the identity that CommitAndClose attributes replies to.
func WithAuthor(label, avatarRef string) Option {
	return func(s *State) {
		if label != "" {
			s.authorLabel = label
		}
		s.avatarRef = avatarRef
	}
}

// WithSubject names the subject whose thread the composers belong to.
// It is stamped on emitted events.
func WithSubject(subjectID string) Option {
	return func(s *State) {
		s.subjectID = subjectID
	}
}

// WithClock overrides the time source of emitted events.
func WithClock(clock func() time.Time) Option {
	return func(s *State) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithHooks registers lifecycle hooks (OnComposerToggled).
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *State) {
		s.hooks = hooks
	}
}

// New creates an empty composer state.
func New(opts ...Option) *State {
	s := &State{
		entries:     make(map[string]domain.Composer),
		authorLabel: DefaultAuthor,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Toggle flips the composer of nodeID and returns the new open state.
func (s *State) Toggle(nodeID string) bool {
	s.mu.Lock()
	c := s.entries[nodeID]
	c.Open = !c.Open
	s.entries[nodeID] = c
	s.mu.Unlock()

	if s.hooks.OnComposerToggled != nil {
		s.hooks.OnComposerToggled(context.Background(), &domain.ComposerEvent{
			EventBase: domain.EventBase{
				Timestamp: s.clock(),
				Type:      domain.EventComposerToggled,
				SubjectID: s.subjectID,
			},
			NodeID:    nodeID,
			Open:      c.Open,
		})
	}
	return c.Open
}

// Close closes the composer of nodeID and keeps its draft.
func (s *State) Close(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.entries[nodeID]
	if !ok {
		return
	}
	if c.Draft == "" {
		delete(s.entries, nodeID)
		return
	}
	c.Open = false
	s.entries[nodeID] = c
}

// SetDraft overwrites the draft of nodeID. No validation happens here.
func (s *State) SetDraft(nodeID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.entries[nodeID]
	c.Draft = text
	s.entries[nodeID] = c
}

// Get returns the composer of nodeID.
func (s *State) Get(nodeID string) domain.Composer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[nodeID]
}

// IsOpen reports whether the composer of nodeID is open.
func (s *State) IsOpen(nodeID string) bool {
	return s.Get(nodeID).Open
}

// Draft returns the draft of nodeID.
func (s *State) Draft(nodeID string) string {
	return s.Get(nodeID).Draft
}

// Lookup returns the open flag and draft of nodeID.
func (s *State) Lookup(nodeID string) (bool, string) {
	c := s.Get(nodeID)
	return c.Open, c.Draft
}

// CommitAndClose submits the draft of nodeID as a reply to nodeID.
//
// On success the composer is closed and its draft cleared. On failure the
// entry is left exactly as it was so the user can retry.
func (s *State) CommitAndClose(ctx context.Context, nodeID string, r Replier) (domain.CommentNode, error) {
	draft := s.Draft(nodeID)

	var opts []thread.ReplyOption
	if s.avatarRef != "" {
		opts = append(opts, thread.WithAvatar(s.avatarRef))
	}

	node, err := r.AddReply(ctx, nodeID, s.authorLabel, draft, opts...)
	if err != nil {
		return domain.CommentNode{}, err
	}

	s.mu.Lock()
	delete(s.entries, nodeID)
	s.mu.Unlock()
	return node, nil
}

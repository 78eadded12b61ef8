package thread

import (
	"log/slog"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for CreatedAt.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a structured logger for commit and rejection events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHooks registers lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Store) {
		s.hooks = hooks
	}
}

// WithCommitSink forwards every reply to sink before it is appended.
// The sink runs while the store holds its write lock and must not call back into the store.
func WithCommitSink(sink ports.CommitSink) Option {
	return func(s *Store) {
		s.sink = sink
	}
}

// ReplyOption configures a single AddReply call.
type ReplyOption func(*replyOptions)

type replyOptions struct {
	avatarRef string
}

// WithAvatar attaches an opaque avatar reference to the new reply.
func WithAvatar(ref string) ReplyOption {
	return func(o *replyOptions) {
		o.avatarRef = ref
	}
}

package tendril

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/composer"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/render"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/aretw0/tendril/pkg/thread"
)

// Version is the library and CLI version.
const Version = "0.3.0"

// Engine is the high-level entry point for the library.
// It binds thread stores to a persistence backend and serializes writers per subject.
type Engine struct {
	manager     *session.Manager
	store       ports.ThreadStore
	middlewares []middleware.Middleware
	locker      ports.DistributedLocker
	sink        ports.CommitSink
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	clock       func() time.Time
	indentCap   int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(store ports.ThreadStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithMiddleware wraps the store, first middleware outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Engine) {
		e.middlewares = append(e.middlewares, mws...)
	}
}

// WithLocker serializes writers across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithCommitSink forwards each reply once its thread has been saved.
func WithCommitSink(sink ports.CommitSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source stamped on new replies.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithIndentCap clamps the indentation reported by Entries. Zero disables the cap.
func WithIndentCap(n int) Option {
	return func(e *Engine) {
		e.indentCap = n
	}
}

// New initializes an Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.indentCap < 0 {
		return nil, fmt.Errorf("indent cap must not be negative, got %d", eng.indentCap)
	}
	eng.store = middleware.Chain(eng.store, eng.middlewares...)

	if eng.clock == nil {
		eng.clock = time.Now
	}

	// Hydrated stores report rejections themselves. The commit sink and the
	// committed hook run in Reply, once the thread has been saved.
	storeHooks := eng.hooks
	storeHooks.OnReplyCommitted = nil
	storeOpts := []thread.Option{
		thread.WithLogger(eng.logger),
		thread.WithHooks(storeHooks),
		thread.WithClock(eng.clock),
	}

	mgrOpts := []session.Option{
		session.WithLogger(eng.logger),
		session.WithStoreOptions(storeOpts...),
	}
	if eng.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(eng.locker))
	}
	eng.manager = session.NewManager(eng.store, mgrOpts...)

	return eng, nil
}

// Reply commits a reply to parentID (domain.RootID for a top-level comment) and persists the thread.
//
// The reply is forwarded to the commit sink only after the thread was saved.
// A sink failure restores the stored thread, so the reply exists nowhere and
// a retry mints the same id. OnReplyCommitted fires once both steps succeeded.
func (e *Engine) Reply(ctx context.Context, subjectID, parentID, authorLabel, body string, opts ...thread.ReplyOption) (domain.CommentNode, error) {
	var node domain.CommentNode
	add := func(ctx context.Context, st *thread.Store) error {
		var err error
		node, err = st.AddReply(ctx, parentID, authorLabel, body, opts...)
		return err
	}
	var publish func(context.Context) error
	if e.sink != nil {
		publish = func(ctx context.Context) error {
			return e.sink.Commit(ctx, subjectID, parentID, node)
		}
	}

	if err := e.manager.UpdateAndPublish(ctx, subjectID, add, publish); err != nil {
		// Validation failures were already reported by the hydrated store.
		if errors.Is(err, domain.ErrPersistence) {
			e.logger.Warn("reply not persisted", "subject", subjectID, "parent_id", parentID, "err", err)
			if e.hooks.OnReplyRejected != nil {
				e.hooks.OnReplyRejected(ctx, &domain.ReplyEvent{
					EventBase: e.event(domain.EventReplyRejected, subjectID),
					ParentID:  parentID,
					Err:       err,
				})
			}
		}
		return domain.CommentNode{}, err
	}

	if e.hooks.OnReplyCommitted != nil {
		e.hooks.OnReplyCommitted(ctx, &domain.ReplyEvent{
			EventBase: e.event(domain.EventReplyCommitted, subjectID),
			ParentID:  parentID,
			NodeID:    node.ID,
			Depth:     node.Depth,
		})
	}
	return node, nil
}

func (e *Engine) event(t domain.EventType, subjectID string) domain.EventBase {
	return domain.EventBase{Timestamp: e.clock(), Type: t, SubjectID: subjectID}
}

// Replier returns a composer.Replier that commits into subjectID through the engine.
func (e *Engine) Replier(subjectID string) composer.Replier {
	return subjectReplier{engine: e, subjectID: subjectID}
}

type subjectReplier struct {
	engine    *Engine
	subjectID string
}

func (r subjectReplier) AddReply(ctx context.Context, parentID, authorLabel, body string, opts ...thread.ReplyOption) (domain.CommentNode, error) {
	return r.engine.Reply(ctx, r.subjectID, parentID, authorLabel, body, opts...)
}

// Thread returns the current thread for subjectID, empty if it has no comments yet.
func (e *Engine) Thread(ctx context.Context, subjectID string) (*domain.Thread, error) {
	return e.manager.LoadOrStart(ctx, subjectID)
}

// Like activates the inert like affordance on a node. Nothing is persisted.
func (e *Engine) Like(ctx context.Context, subjectID, nodeID string) error {
	st, err := e.manager.Open(ctx, subjectID)
	if err != nil {
		return err
	}
	return st.Like(ctx, nodeID)
}

// Entries returns the render sequence of subjectID in pre-order.
// view may be nil when no composers are open.
func (e *Engine) Entries(ctx context.Context, subjectID string, view render.ComposerView) ([]render.Entry, error) {
	t, err := e.Thread(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return render.Flatten(t.Roots, view, e.renderOpts()...), nil
}

// Mermaid returns a flowchart of subjectID.
func (e *Engine) Mermaid(ctx context.Context, subjectID string, view render.ComposerView) (string, error) {
	t, err := e.Thread(ctx, subjectID)
	if err != nil {
		return "", err
	}
	return render.Mermaid(t, view), nil
}

// Subjects lists the subjects with persisted threads.
func (e *Engine) Subjects(ctx context.Context) ([]string, error) {
	return e.manager.List(ctx)
}

// Delete removes a subject's thread.
func (e *Engine) Delete(ctx context.Context, subjectID string) error {
	return e.manager.Delete(ctx, subjectID)
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

func (e *Engine) renderOpts() []render.Option {
	if e.indentCap > 0 {
		return []render.Option{render.WithIndentCap(e.indentCap)}
	}
	return nil
}

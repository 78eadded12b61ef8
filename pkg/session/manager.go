package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/thread"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates thread access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.ThreadStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker    ports.DistributedLocker
	lockTTL   time.Duration
	logger    *slog.Logger
	storeOpts []thread.Option
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithStoreOptions are applied to every thread.Store the Manager hydrates.
func WithStoreOptions(opts ...thread.Option) Option {
	return func(m *Manager) {
		m.storeOpts = append(m.storeOpts, opts...)
	}
}

// NewManager creates a new Manager over the given persistence store.
func NewManager(store ports.ThreadStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release(subjectID) after unlocking.
func (m *Manager) acquire(subjectID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[subjectID]
	if !exists {
		entry = &lockEntry{}
		m.locks[subjectID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(subjectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[subjectID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, subjectID)
	}
}

// Load retrieves an existing thread from the store.
func (m *Manager) Load(ctx context.Context, subjectID string) (*domain.Thread, error) {
	var t *domain.Thread
	err := m.WithLock(ctx, subjectID, func(ctx context.Context) error {
		var err error
		t, err = m.store.Load(ctx, subjectID)
		return err
	})
	return t, err
}

// LoadOrStart loads a thread, or returns a new empty one if the subject has none yet.
// Empty threads are not persisted; the first committed reply creates them.
func (m *Manager) LoadOrStart(ctx context.Context, subjectID string) (*domain.Thread, error) {
	var t *domain.Thread
	err := m.WithLock(ctx, subjectID, func(ctx context.Context) error {
		var err error
		t, err = m.loadOrStart(ctx, subjectID)
		return err
	})
	return t, err
}

func (m *Manager) loadOrStart(ctx context.Context, subjectID string) (*domain.Thread, error) {
	t, err := m.store.Load(ctx, subjectID)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, domain.ErrThreadNotFound) {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	return domain.NewThread(subjectID), nil
}

// Open hydrates a thread.Store for the subject without holding the lock afterwards.
// The returned store is a private working copy; use Update to persist changes.
func (m *Manager) Open(ctx context.Context, subjectID string) (*thread.Store, error) {
	t, err := m.LoadOrStart(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return thread.Hydrate(t, m.storeOpts...)
}

// Update runs fn against a hydrated thread.Store and saves the result, all under the subject's lock.
// If fn fails nothing is saved. The thread is saved whenever fn succeeds.
func (m *Manager) Update(ctx context.Context, subjectID string, fn func(context.Context, *thread.Store) error) error {
	return m.UpdateAndPublish(ctx, subjectID, fn, nil)
}

// UpdateAndPublish is Update followed by publish, still under the subject's lock.
// publish only runs once the save succeeded. If it fails, the stored thread is
// restored to what it was before fn ran and the error is returned wrapped in
// domain.ErrPersistence.
func (m *Manager) UpdateAndPublish(ctx context.Context, subjectID string, fn func(context.Context, *thread.Store) error, publish func(context.Context) error) error {
	return m.WithLock(ctx, subjectID, func(ctx context.Context) error {
		prev, err := m.store.Load(ctx, subjectID)
		existed := err == nil
		if err != nil && !errors.Is(err, domain.ErrThreadNotFound) {
			return fmt.Errorf("failed to load thread: %w", err)
		}
		if !existed {
			prev = domain.NewThread(subjectID)
		}

		st, err := thread.Hydrate(prev, m.storeOpts...)
		if err != nil {
			return err
		}
		if err := fn(ctx, st); err != nil {
			return err
		}
		if err := m.store.Save(ctx, subjectID, st.Snapshot()); err != nil {
			m.logger.Error("failed to save thread", "subject", subjectID, "err", err)
			return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		if publish == nil {
			return nil
		}

		if err := publish(ctx); err != nil {
			m.logger.Warn("publish failed, restoring thread", "subject", subjectID, "err", err)
			if rbErr := m.restore(ctx, subjectID, prev, existed); rbErr != nil {
				m.logger.Error("failed to restore thread", "subject", subjectID, "err", rbErr)
				return fmt.Errorf("%w: %w", domain.ErrPersistence, errors.Join(err, rbErr))
			}
			return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return nil
	})
}

// restore puts back the thread seen before an update. A subject that had no
// thread is deleted again, since empty threads are never persisted.
func (m *Manager) restore(ctx context.Context, subjectID string, prev *domain.Thread, existed bool) error {
	if !existed {
		return m.store.Delete(ctx, subjectID)
	}
	return m.store.Save(ctx, subjectID, prev)
}

// Save persists the thread.
func (m *Manager) Save(ctx context.Context, subjectID string, t *domain.Thread) error {
	return m.WithLock(ctx, subjectID, func(ctx context.Context) error {
		return m.store.Save(ctx, subjectID, t)
	})
}

// Delete removes the thread from the store.
func (m *Manager) Delete(ctx context.Context, subjectID string) error {
	return m.WithLock(ctx, subjectID, func(ctx context.Context) error {
		return m.store.Delete(ctx, subjectID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying thread store.
func (m *Manager) Store() ports.ThreadStore {
	return m.store
}

// WithLock executes a function while holding the lock for the subject.
func (m *Manager) WithLock(ctx context.Context, subjectID string, fn func(context.Context) error) error {
	entry := m.acquire(subjectID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(subjectID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, subjectID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"subject", subjectID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

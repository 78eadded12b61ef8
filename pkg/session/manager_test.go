package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/aretw0/tendril/pkg/thread"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke lost updates if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s *SlowStore) Save(ctx context.Context, subjectID string, t *domain.Thread) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, subjectID, t)
}

func (s *SlowStore) Load(ctx context.Context, subjectID string) (*domain.Thread, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, subjectID)
}

// failingStore loads normally but refuses to save.
type failingStore struct {
	*memory.Store
}

func (failingStore) Save(ctx context.Context, subjectID string, t *domain.Thread) error {
	return errors.New("disk full")
}

func TestManager_UpdateSerializesWriters(t *testing.T) {
	store := &SlowStore{Store: memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	writers := 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := manager.Update(ctx, id, func(ctx context.Context, st *thread.Store) error {
				_, err := st.AddReply(ctx, domain.RootID, fmt.Sprintf("user-%d", n), "hello")
				return err
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	th, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, th.Roots, writers, "every concurrent reply must survive")

	seen := make(map[string]bool)
	for _, r := range th.Roots {
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
}

func TestManager_LoadOrStart(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	ctx := context.Background()

	th, err := manager.LoadOrStart(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", th.SubjectID)
	assert.Empty(t, th.Roots)

	// Empty threads are not persisted.
	_, err = store.Load(ctx, "fresh")
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)

	_, err = manager.Load(ctx, "fresh")
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)
}

func TestManager_UpdateFailureSavesNothing(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	ctx := context.Background()

	err := manager.Update(ctx, "post-1", func(ctx context.Context, st *thread.Store) error {
		_, err := st.AddReply(ctx, "c9", "Ana", "orphan")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrParentNotFound)

	list, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestManager_UpdateSaveFailureIsPersistenceError(t *testing.T) {
	manager := session.NewManager(failingStore{Store: memory.NewStore()})

	err := manager.Update(context.Background(), "post-1", func(ctx context.Context, st *thread.Store) error {
		_, err := st.AddReply(ctx, domain.RootID, "Ana", "hello")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestManager_UpdateAndPublish(t *testing.T) {
	ctx := context.Background()
	addRoot := func(body string) func(context.Context, *thread.Store) error {
		return func(ctx context.Context, st *thread.Store) error {
			_, err := st.AddReply(ctx, domain.RootID, "Ana", body)
			return err
		}
	}

	t.Run("Publish Runs After Save", func(t *testing.T) {
		store := memory.NewStore()
		manager := session.NewManager(store)

		err := manager.UpdateAndPublish(ctx, "post-1", addRoot("hello"), func(ctx context.Context) error {
			saved, err := store.Load(ctx, "post-1")
			require.NoError(t, err)
			assert.Equal(t, 1, saved.Count(), "the thread is saved before publishing")
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Save Failure Skips Publish", func(t *testing.T) {
		manager := session.NewManager(failingStore{Store: memory.NewStore()})
		published := false

		err := manager.UpdateAndPublish(ctx, "post-1", addRoot("hello"), func(context.Context) error {
			published = true
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.False(t, published)
	})

	t.Run("Publish Failure Restores Previous Thread", func(t *testing.T) {
		store := memory.NewStore()
		manager := session.NewManager(store)
		require.NoError(t, manager.Update(ctx, "post-1", addRoot("first")))

		offline := errors.New("offline")
		err := manager.UpdateAndPublish(ctx, "post-1", addRoot("second"), func(context.Context) error { return offline })
		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.ErrorIs(t, err, offline)

		saved, err := store.Load(ctx, "post-1")
		require.NoError(t, err)
		require.Len(t, saved.Roots, 1)
		assert.Equal(t, "first", saved.Roots[0].Body)
	})

	t.Run("Publish Failure On New Subject Leaves Nothing", func(t *testing.T) {
		store := memory.NewStore()
		manager := session.NewManager(store)

		err := manager.UpdateAndPublish(ctx, "post-2", addRoot("hello"), func(context.Context) error { return errors.New("offline") })
		assert.ErrorIs(t, err, domain.ErrPersistence)

		_, err = store.Load(ctx, "post-2")
		assert.ErrorIs(t, err, domain.ErrThreadNotFound)
	})
}

func TestManager_StoreOptionsApplyToHydratedThreads(t *testing.T) {
	journal := memory.NewJournal()
	clock := func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	manager := session.NewManager(memory.NewStore(),
		session.WithStoreOptions(thread.WithCommitSink(journal), thread.WithClock(clock)),
	)
	ctx := context.Background()

	require.NoError(t, manager.Update(ctx, "post-1", func(ctx context.Context, st *thread.Store) error {
		_, err := st.AddReply(ctx, domain.RootID, "Ana", "hello")
		return err
	}))

	commits := journal.Commits()
	require.Len(t, commits, 1)
	assert.Equal(t, "post-1", commits[0].SubjectID)

	st, err := manager.Open(ctx, "post-1")
	require.NoError(t, err)
	node, ok := st.FindNode("c1")
	require.True(t, ok)
	assert.Equal(t, clock(), node.CreatedAt)
}

func TestManager_DistributedLocker(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewFromClient(client)
	locker := redis.NewLocker(client, redis.DefaultPrefix, redis.WithPollInterval(5*time.Millisecond))
	manager := session.NewManager(store, session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	var inside bool
	err = manager.WithLock(ctx, "post-1", func(ctx context.Context) error {
		inside = true
		assert.True(t, mr.Exists(redis.DefaultPrefix+"lock:post-1"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, inside)
	assert.False(t, mr.Exists(redis.DefaultPrefix+"lock:post-1"), "lock must be released")
}

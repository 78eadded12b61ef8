package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunThreadStoreContract runs a suite of tests to verify that a ThreadStore implementation
// adheres to the defined interface contract.
func RunThreadStoreContract(t *testing.T, store ThreadStore) {
	ctx := context.Background()
	subjectID := "contract-test-subject-" + time.Now().Format("20060102150405")
	created := time.Date(2025, 7, 16, 22, 26, 20, 0, time.UTC)

	newThread := func(id string) *domain.Thread {
		th := domain.NewThread(id)
		th.Roots = append(th.Roots, domain.CommentNode{
			ID:          "c1",
			AuthorLabel: "Alice",
			AvatarRef:   "avatars/alice.png",
			Body:        "Hello",
			CreatedAt:   created,
			Children: []domain.CommentNode{
				{ID: "c1-1", AuthorLabel: "Bob", Body: "Nice!", CreatedAt: created, Depth: 1},
				{ID: "c1-2", AuthorLabel: "Carol", Body: "Agreed", CreatedAt: created, Depth: 1},
			},
		})
		return th
	}

	t.Run("Save and Load", func(t *testing.T) {
		thread := newThread(subjectID)

		err := store.Save(ctx, subjectID, thread)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, subjectID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, subjectID, loaded.SubjectID)
		require.Len(t, loaded.Roots, 1)

		root := loaded.Roots[0]
		assert.Equal(t, "c1", root.ID)
		assert.Equal(t, "avatars/alice.png", root.AvatarRef)
		assert.True(t, created.Equal(root.CreatedAt), "CreatedAt should survive a round trip")
		require.Len(t, root.Children, 2)
		// Children order is part of the thread, not a storage detail.
		assert.Equal(t, "c1-1", root.Children[0].ID)
		assert.Equal(t, "c1-2", root.Children[1].ID)
		assert.Equal(t, 1, root.Children[1].Depth)
		assert.NoError(t, loaded.Validate())
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, subjectID)
		require.NoError(t, err)
		loaded.Roots[0].Children = nil

		again, err := store.Load(ctx, subjectID)
		require.NoError(t, err)
		assert.Len(t, again.Roots[0].Children, 2, "mutating a loaded thread must not affect the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+subjectID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, subjectID, newThread(subjectID))
		require.NoError(t, err)

		err = store.Delete(ctx, subjectID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, subjectID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound, "Load after Delete should return ErrThreadNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := subjectID + "-1"
		id2 := subjectID + "-2"
		_ = store.Save(ctx, id1, newThread(id1))
		_ = store.Save(ctx, id2, newThread(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		subjects, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, subjects, id1)
		assert.Contains(t, subjects, id2)
	})
}

package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// ThreadStore defines the interface for hydrating and persisting threads.
// It is the loadThread(subjectID) extension point: the engine works without one.
type ThreadStore interface {
	// Save persists the thread for a given subject ID.
	Save(ctx context.Context, subjectID string, thread *domain.Thread) error

	// Load retrieves the thread for a given subject ID.
	// Returns domain.ErrThreadNotFound if the subject has no thread.
	Load(ctx context.Context, subjectID string) (*domain.Thread, error)

	// Delete removes the thread for a given subject ID.
	Delete(ctx context.Context, subjectID string) error

	// List returns the subject IDs that have a stored thread.
	List(ctx context.Context) ([]string, error)
}

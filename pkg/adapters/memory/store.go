package memory

import (
	"context"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
)

// Store implements ports.ThreadStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Thread
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Thread),
	}
}

// Save persists a deep copy of the thread.
func (s *Store) Save(ctx context.Context, subjectID string, thread *domain.Thread) error {
	copied := thread.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[subjectID] = copied
	return nil
}

// Load retrieves a copy of the thread so callers can't mutate store state by pointer.
func (s *Store) Load(ctx context.Context, subjectID string) (*domain.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, ok := s.data[subjectID]
	if !ok {
		return nil, domain.ErrThreadNotFound
	}
	return thread.Clone(), nil
}

// Delete removes the thread.
func (s *Store) Delete(ctx context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, subjectID)
	return nil
}

// List returns the stored subjects.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjects := make([]string, 0, len(s.data))
	for id := range s.data {
		subjects = append(subjects, id)
	}
	return subjects, nil
}

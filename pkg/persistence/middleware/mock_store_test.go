package middleware_test

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.Thread
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Thread),
	}
}

func (s *MockStore) Save(ctx context.Context, subjectID string, thread *domain.Thread) error {
	s.data[subjectID] = thread.Clone()
	return nil
}

func (s *MockStore) Load(ctx context.Context, subjectID string) (*domain.Thread, error) {
	thread, ok := s.data[subjectID]
	if !ok {
		return nil, domain.ErrThreadNotFound
	}
	return thread.Clone(), nil
}

func (s *MockStore) Delete(ctx context.Context, subjectID string) error {
	delete(s.data, subjectID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.ThreadStore = (*MockStore)(nil)

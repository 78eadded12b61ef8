package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// MockStore is a minimal ThreadStore used to exercise the contract suite itself.
type MockStore struct {
	data map[string]*domain.Thread
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Thread),
	}
}

func (m *MockStore) Save(ctx context.Context, subjectID string, thread *domain.Thread) error {
	// Deep copy to simulate serialization
	m.data[subjectID] = thread.Clone()
	return nil
}

func (m *MockStore) Load(ctx context.Context, subjectID string) (*domain.Thread, error) {
	thread, ok := m.data[subjectID]
	if !ok {
		return nil, domain.ErrThreadNotFound
	}
	return thread.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, subjectID string) error {
	delete(m.data, subjectID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestThreadStore_Contract(t *testing.T) {
	ports.RunThreadStoreContract(t, NewMockStore())
}

func TestCommitSinkFunc(t *testing.T) {
	var got string
	sink := ports.CommitSinkFunc(func(ctx context.Context, subjectID, parentID string, node domain.CommentNode) error {
		got = subjectID + "/" + parentID + "/" + node.ID
		return nil
	})

	if err := sink.Commit(context.Background(), "post-1", "c1", domain.CommentNode{ID: "c1-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "post-1/c1/c1-1" {
		t.Errorf("expected forwarded arguments, got %q", got)
	}
}

package memory

import (
	"context"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
)

// Commit is one reply received by a Journal.
type Commit struct {
	SubjectID string
	ParentID  string
	Node      domain.CommentNode
}

// Journal implements ports.CommitSink by recording every commit in order.
// It stands in for a comments service in tests and local runs.
type Journal struct {
	mu      sync.Mutex
	commits []Commit
	fail    error
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Commit records the reply, or returns the configured failure.
func (j *Journal) Commit(ctx context.Context, subjectID, parentID string, node domain.CommentNode) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.fail != nil {
		return j.fail
	}
	j.commits = append(j.commits, Commit{SubjectID: subjectID, ParentID: parentID, Node: node.Clone()})
	return nil
}

// FailWith makes subsequent commits return err. A nil err restores normal operation.
func (j *Journal) FailWith(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fail = err
}

// Commits returns the recorded commits in arrival order.
func (j *Journal) Commits() []Commit {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Commit, len(j.commits))
	copy(out, j.commits)
	return out
}

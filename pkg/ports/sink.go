package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// CommitSink receives every reply before it is appended to the in-memory tree.
// A non-nil error aborts the commit and leaves the tree unchanged.
type CommitSink interface {
	Commit(ctx context.Context, subjectID, parentID string, node domain.CommentNode) error
}

// CommitSinkFunc adapts a function to the CommitSink interface.
type CommitSinkFunc func(ctx context.Context, subjectID, parentID string, node domain.CommentNode) error

// Commit calls f.
func (f CommitSinkFunc) Commit(ctx context.Context, subjectID, parentID string, node domain.CommentNode) error {
	return f(ctx, subjectID, parentID, node)
}

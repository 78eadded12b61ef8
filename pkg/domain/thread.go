package domain

import "fmt"

// Thread is the full set of comments attached to one discussion subject.
type Thread struct {
	SubjectID string        `json:"subject_id" yaml:"subject_id"`
	Roots     []CommentNode `json:"roots" yaml:"roots"`
}

// NewThread creates an empty thread for a subject.
func NewThread(subjectID string) *Thread {
	return &Thread{
		SubjectID: subjectID,
		Roots:     []CommentNode{},
	}
}

// Clone returns a deep copy of the thread.
func (t *Thread) Clone() *Thread {
	if t == nil {
		return nil
	}
	out := &Thread{
		SubjectID: t.SubjectID,
		Roots:     make([]CommentNode, len(t.Roots)),
	}
	for i, r := range t.Roots {
		out.Roots[i] = r.Clone()
	}
	return out
}

// Validate checks the identity, depth and body invariants of a thread.
// It is used on hydration, where data comes from outside the engine.
func (t *Thread) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil thread", ErrInvalidThread)
	}
	seen := make(map[string]struct{})
	var check func(nodes []CommentNode, depth int) error
	check = func(nodes []CommentNode, depth int) error {
		for _, n := range nodes {
			if n.ID == "" || n.ID == RootID {
				return fmt.Errorf("%w: reserved or empty id %q", ErrInvalidThread, n.ID)
			}
			if _, dup := seen[n.ID]; dup {
				return fmt.Errorf("%w: duplicate id %q", ErrInvalidThread, n.ID)
			}
			seen[n.ID] = struct{}{}
			if n.Depth != depth {
				return fmt.Errorf("%w: node %q has depth %d, expected %d", ErrInvalidThread, n.ID, n.Depth, depth)
			}
			if IsBlank(n.Body) {
				return fmt.Errorf("%w: node %q has an empty body", ErrInvalidThread, n.ID)
			}
			if err := check(n.Children, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return check(t.Roots, 0)
}

// Count returns the number of nodes in the thread.
func (t *Thread) Count() int {
	var count func(nodes []CommentNode) int
	count = func(nodes []CommentNode) int {
		total := len(nodes)
		for _, n := range nodes {
			total += count(n.Children)
		}
		return total
	}
	return count(t.Roots)
}

package render

import (
	"iter"
	"slices"

	"github.com/aretw0/tendril/pkg/domain"
)

// Entry is one row of the display sequence.
type Entry struct {
	// Node is the comment without its children.
	Node domain.CommentNode `json:"node"`

	// Depth is the stored depth of the node.
	Depth int `json:"depth"`

	// Indent is Depth clamped to the configured indentation cap.
	Indent int `json:"indent"`

	ComposerOpen bool   `json:"composer_open"`
	Draft        string `json:"draft,omitempty"`
}

// ComposerView exposes composer state per node. *composer.State satisfies it.
type ComposerView interface {
	Lookup(nodeID string) (open bool, draft string)
}

// Option configures a traversal.
type Option func(*config)

type config struct {
	indentCap int // negative means uncapped
}

// WithIndentCap clamps Entry.Indent to at most n levels. Nodes are never dropped.
func WithIndentCap(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.indentCap = n
		}
	}
}

// Walk returns a lazy pre-order sequence over roots and their replies.
// A nil view reports every composer as closed.
func Walk(roots []domain.CommentNode, view ComposerView, opts ...Option) iter.Seq[Entry] {
	cfg := config{indentCap: -1}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(yield func(Entry) bool) {
		var visit func(nodes []domain.CommentNode) bool
		visit = func(nodes []domain.CommentNode) bool {
			for i := range nodes {
				if !yield(cfg.entry(nodes[i], view)) {
					return false
				}
				if !visit(nodes[i].Children) {
					return false
				}
			}
			return true
		}
		visit(roots)
	}
}

// Flatten collects Walk into a slice.
func Flatten(roots []domain.CommentNode, view ComposerView, opts ...Option) []Entry {
	return slices.Collect(Walk(roots, view, opts...))
}

func (c config) entry(n domain.CommentNode, view ComposerView) Entry {
	e := Entry{
		Node:   n.Leaf(),
		Depth:  n.Depth,
		Indent: n.Depth,
	}
	if c.indentCap >= 0 && e.Indent > c.indentCap {
		e.Indent = c.indentCap
	}
	if view != nil {
		e.ComposerOpen, e.Draft = view.Lookup(n.ID)
	}
	return e
}

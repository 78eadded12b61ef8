package domain

import (
	"strings"
	"time"
)

// RootID is the sentinel parent ID used to add a top-level comment.
const RootID = "ROOT"

// CommentNode is one comment or reply in a thread.
type CommentNode struct {
	ID          string `json:"id" yaml:"id"`
	AuthorLabel string `json:"author" yaml:"author"`

	// AvatarRef is an opaque reference forwarded to the presentation layer.
	// Empty means no avatar. It is never dereferenced by the engine.
	AvatarRef string `json:"avatar,omitempty" yaml:"avatar,omitempty"`

	Body      string    `json:"body" yaml:"body"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Depth is the distance from the root level (roots are 0).
	Depth int `json:"depth" yaml:"depth"`

	// Children holds replies, oldest first.
	Children []CommentNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Clone returns a deep copy of the node and its subtree.
func (n CommentNode) Clone() CommentNode {
	out := n
	if n.Children != nil {
		out.Children = make([]CommentNode, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Leaf returns a copy of the node without its children.
func (n CommentNode) Leaf() CommentNode {
	n.Children = nil
	return n
}

// IsBlank reports whether a body has no content after trimming whitespace.
func IsBlank(body string) bool {
	return strings.TrimSpace(body) == ""
}

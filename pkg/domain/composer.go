package domain

// Composer is the transient reply editor state attached to one node.
type Composer struct {
	Open  bool   `json:"open"`
	Draft string `json:"draft,omitempty"`
}

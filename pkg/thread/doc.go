/*
Package thread implements the Thread Store: the authoritative, in-memory tree
of comments for one discussion subject.

The store owns the tree exclusively. Every read returns a deep copy and every
mutation returns the created node by value, so callers never hold references
into the canonical tree. Nodes are addressed through a derived index of child
positions, which also yields parent lookups without stored back-pointers.

Replies are append-only: a new node always lands at the end of its parent's
children, and its id is minted from the parent's current child count, probed
against every id already present. This keeps ids unique after a thread is
hydrated from an external source with pre-existing replies.
*/
package thread

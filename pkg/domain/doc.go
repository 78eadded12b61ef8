/*
Package domain contains the core models of the Tendril comment engine.

It defines the thread tree, the transient composer state and the lifecycle
events emitted on mutation. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - CommentNode: One comment or reply, owning its ordered replies.
  - Thread: The ordered root comments of one discussion subject.
  - Composer: Per-node reply editor state (open flag and draft text).
  - LifecycleHooks: Callbacks for observability (metrics, logging).
*/
package domain

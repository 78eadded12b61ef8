/*
Package ports defines the driven ports (interfaces) for the Tendril engine.

These interfaces decouple the comment engine from persistence and transport,
so the same in-memory semantics hold with or without a backing store.

# Key Interfaces

  - ThreadStore: Hydrates and persists a Thread per discussion subject.
  - CommitSink: Side-channel that receives each reply before it is committed.
  - DistributedLocker: Provides distributed locking for concurrent writers of one thread.
*/
package ports

package domain

import "errors"

// ErrParentNotFound is returned when a reply targets a node that is not in the thread.
var ErrParentNotFound = errors.New("parent not found")

// ErrEmptyBody is returned when a reply body is empty after trimming whitespace.
var ErrEmptyBody = errors.New("empty body")

// ErrNodeNotFound is returned when an operation references an unknown node.
var ErrNodeNotFound = errors.New("node not found")

// ErrThreadNotFound is returned when a subject has no stored thread.
var ErrThreadNotFound = errors.New("thread not found")

// ErrPersistence wraps failures reported by an external commit sink or store.
// The in-memory thread is left unchanged when it is returned.
var ErrPersistence = errors.New("persistence failure")

// ErrInvalidThread is returned when hydrated data breaks an identity or depth invariant.
var ErrInvalidThread = errors.New("invalid thread")

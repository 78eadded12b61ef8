/*
Package session serializes access to threads held in a ports.ThreadStore.

A Manager hands out one logical owner per subject at a time: a ref-counted
in-process mutex, optionally backed by a distributed lock. Update performs the
load, hydrate, mutate and save cycle under that lock so concurrent replies to
the same subject never lose each other.
*/
package session

// Package domain contains the progress entities shared by every layer: the
// per-user streak state, stacks, per-item mastery records and comprehension
// checks, together with the error categories callers branch on.
//
// Subpackages hold the pure state machines (clock, srs, ledger, lifecycle,
// weekly). They take explicit instants and return new snapshots; persistence
// and concurrency live in the store and service layers.
package domain

// Package store defines interfaces for persisting the four progress
// aggregates: user streak state, item mastery records, stacks and
// comprehension checks.
//
// Every method that mutates an aggregate uses optimistic concurrency: the
// caller passes the entity as it was read, and Update fails with
// ErrVersionConflict if another writer got there first. The GetForUpdate
// variants additionally take a row lock and must be called inside a
// transaction obtained from a Transactor.
package store

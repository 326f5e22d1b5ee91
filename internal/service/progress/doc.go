// Package progress orchestrates the mastery, streak, stack and weekly
// components over a store.Transactor.
//
// Every operation runs in a single transaction that locks the user's streak
// state first and then, in order, the item, the stack and the checks it
// touches. There are no background jobs: day rollover, streak loss and
// overdue comprehension checks are materialized at the start of each
// operation, reads included, and persisted with it.
//
// Writes use optimistic versioning. A transaction that loses a race is
// re-run with exponential backoff; once the retry budget is spent the
// caller receives a domain.ConflictError. Events are emitted only after
// the transaction committed.
package progress

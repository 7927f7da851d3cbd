package storage

import "errors"

// ErrMandateNotFound is returned when no mandate exists for the given ID.
var ErrMandateNotFound = errors.New("mandate not found")

// ErrExecutionNotFound is returned when no execution matches the lookup.
var ErrExecutionNotFound = errors.New("execution not found")

// ErrExecutionExists is returned when an execution with the same idempotency
// key has already been committed on the mandate.
var ErrExecutionExists = errors.New("execution already exists for idempotency key")

// ErrExecutionNotPending is returned when finalizing an execution that has
// already left the pending state.
var ErrExecutionNotPending = errors.New("execution is not pending")

// ErrStoreConflict is returned when a mutation could not be committed after
// exhausting optimistic-concurrency retries. Safe to retry with the same
// idempotency key.
var ErrStoreConflict = errors.New("store conflict: too many concurrent mutations")

// ErrStoreUnavailable is returned when the backing store could not be
// reached before the caller's deadline. The caller must not assume the
// mutation committed.
var ErrStoreUnavailable = errors.New("store unavailable")

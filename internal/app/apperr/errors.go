package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrStale marks a status report that cannot advance the transaction:
	// a duplicate, an out-of-order delivery, or any report against a
	// terminal state. Callers treat it as a no-op, not a failure.
	ErrStale = errors.New("stale status report")

	// ErrPaymentIDMismatch marks a report whose gateway payment id differs
	// from the one already recorded on the transaction.
	ErrPaymentIDMismatch = errors.New("payment id mismatch")

	// ErrUnmappedStatus marks a gateway status string with no internal
	// state mapping.
	ErrUnmappedStatus = errors.New("unmapped gateway status")

	// ErrVersionConflict is returned by CompareAndSwap when the stored
	// version no longer matches the expected one.
	ErrVersionConflict = errors.New("version conflict")

	ErrShuttingDown = errors.New("shutting down")
)

package datastore

import "errors"

// Store error types used by callers to distinguish failure modes.
var (
	// ErrStoreUnavailable indicates the backing store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrWriteRejected indicates the store refused a write.
	ErrWriteRejected = errors.New("store write rejected")
)

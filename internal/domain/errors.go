package domain

import "errors"

var ErrNotFound = errors.New("not found")

// ErrPoolClosed is returned by every pool operation after DisposeAll/Close.
var ErrPoolClosed = errors.New("player pool closed")

// ErrPoolExhausted is returned when acquiring a new key at capacity and
// every resident entry is protected from eviction.
var ErrPoolExhausted = errors.New("player pool exhausted")

// ErrAcquisitionCancelled is returned to callers of a cancelled acquisition.
// It is not an error condition for the pool itself; any handle produced after
// cancellation is disposed instead of being inserted.
var ErrAcquisitionCancelled = errors.New("acquisition cancelled")

var ErrInvalidTransition = errors.New("invalid state transition")

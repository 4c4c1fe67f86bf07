package iotmodels

import "errors"

// Sentinel errors shared across repositories and controllers. Callers
// classify failures with errors.Is and map them to response codes.
var (
	// ErrNotFound indicates a referenced device/user/record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation, e.g. a duplicate
	// device address on create or update.
	ErrConflict = errors.New("already exists")

	// ErrValidation indicates malformed or missing request fields.
	ErrValidation = errors.New("invalid request")
)

package errors

import "errors"

var (
	// ErrNotFound is returned for missing snapshots, versions, and predictions.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned for input outside its documented domain. Never retryable.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateVersion is returned when a (model_type, version_name) pair already exists.
	ErrDuplicateVersion = errors.New("model version already registered")
	// ErrConflict is returned after losing a concurrent-write race. Callers may retry;
	// the failed attempt leaves no partial state behind.
	ErrConflict = errors.New("write conflict")
	// ErrInference is returned when the external inference call fails or produces
	// out-of-domain output. Propagated verbatim, never coerced.
	ErrInference = errors.New("inference failed")
	// ErrConsistency is returned when a restore would break the parent/child
	// active-state invariant.
	ErrConsistency = errors.New("consistency violation")
)

package mapping

import (
	"errors"
	"fmt"
)

// ErrMappingFailed is the kind shared by every serialization and
// deserialization failure. Mapping failures are local and non-retriable;
// they are surfaced immediately, never retried.
var ErrMappingFailed = errors.New("record mapping failed")

// ErrCollectionNotFound is returned when a collection name has no mapping
// configured in the registry.
var ErrCollectionNotFound = errors.New("collection not found")

// MappingError wraps a serialization or deserialization failure with the
// collection it occurred in.
type MappingError struct {
	Collection string
	Reason     string
	Cause      error
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("mapping failed for collection %q: %s: %v", e.Collection, e.Reason, e.Cause)
	}
	return fmt.Sprintf("mapping failed for collection %q: %s", e.Collection, e.Reason)
}

// Unwrap returns the underlying error.
func (e *MappingError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches ErrMappingFailed.
func (e *MappingError) Is(target error) bool {
	return errors.Is(target, ErrMappingFailed)
}

// NewMappingError creates a new MappingError.
func NewMappingError(collection, reason string, cause error) *MappingError {
	return &MappingError{
		Collection: collection,
		Reason:     reason,
		Cause:      cause,
	}
}

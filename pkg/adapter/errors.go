package adapter

import (
	"errors"
	"fmt"

	"github.com/documap/documap/pkg/mapping"
	"github.com/documap/documap/pkg/query"
)

// Standard adapter errors. These are the stable kinds callers match with
// errors.Is; concrete wrappers below carry the context.
var (
	// ErrConnectionFailed is returned when a connection attempt fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionClosed is returned when attempting to use a connection after disconnect
	ErrConnectionClosed = errors.New("connection is closed")

	// ErrUniqueViolation is returned when a write breaks a uniqueness constraint
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a write breaks a reference constraint
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrNotNullViolation is returned when a write omits a required field
	ErrNotNullViolation = errors.New("not null constraint violation")

	// ErrCheckViolation is returned when a write fails a document validation rule
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrInvalidCommand is the catch-all kind for write-time store errors
	// with no specific mapping
	ErrInvalidCommand = errors.New("invalid command")

	// ErrInvalidQuery is the kind for read-time store errors
	ErrInvalidQuery = errors.New("invalid query")

	// ErrDriverNotFound is returned when no driver is registered for a store type
	ErrDriverNotFound = errors.New("driver not found")
)

// commandErrorKinds lists the kinds a write-time error may already carry
// when it reaches the translation boundary. Initialized once, never
// mutated at runtime.
var commandErrorKinds = []error{
	ErrUniqueViolation,
	ErrForeignKeyViolation,
	ErrNotNullViolation,
	ErrCheckViolation,
	ErrConnectionFailed,
	ErrConnectionClosed,
	ErrInvalidCommand,
	mapping.ErrMappingFailed,
	mapping.ErrCollectionNotFound,
	query.ErrInvalidArgument,
}

// queryErrorKinds is the read-time counterpart of commandErrorKinds.
var queryErrorKinds = []error{
	ErrConnectionFailed,
	ErrConnectionClosed,
	ErrInvalidQuery,
	mapping.ErrMappingFailed,
	mapping.ErrCollectionNotFound,
	query.ErrInvalidArgument,
}

// CommandError wraps a failed write operation with the collection and
// operation it belonged to. The underlying kind stays reachable through
// errors.Is.
type CommandError struct {
	Collection string
	Operation  string
	Cause      error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s on %q failed: %v", e.Operation, e.Collection, e.Cause)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Cause
}

// QueryError wraps a failed read operation.
type QueryError struct {
	Collection string
	Operation  string
	Cause      error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s on %q failed: %v", e.Operation, e.Collection, e.Cause)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// ConnectionError is returned when a connection could not be established.
type ConnectionError struct {
	StoreType StoreType
	Host      string
	Port      int
	Cause     error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s at %s:%d: %v", e.StoreType, e.Host, e.Port, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	if errors.Is(target, ErrConnectionFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(storeType StoreType, host string, port int, cause error) *ConnectionError {
	return &ConnectionError{
		StoreType: storeType,
		Host:      host,
		Port:      port,
		Cause:     cause,
	}
}

// WrapCommandError is the single translation boundary for write-time
// failures. An error already carrying a taxonomy kind passes through with
// its kind intact; anything else is folded into ErrInvalidCommand. Nothing
// is retried here: a single failed attempt is a single reported failure.
func WrapCommandError(collection, operation string, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return err
	}

	for _, kind := range commandErrorKinds {
		if errors.Is(err, kind) {
			return &CommandError{Collection: collection, Operation: operation, Cause: err}
		}
	}
	return &CommandError{
		Collection: collection,
		Operation:  operation,
		Cause:      fmt.Errorf("%w: %v", ErrInvalidCommand, err),
	}
}

// WrapQueryError translates read-time failures analogously; unrecognized
// errors fold into ErrInvalidQuery.
func WrapQueryError(collection, operation string, err error) error {
	if err == nil {
		return nil
	}

	var qryErr *QueryError
	if errors.As(err, &qryErr) {
		return err
	}

	for _, kind := range queryErrorKinds {
		if errors.Is(err, kind) {
			return &QueryError{Collection: collection, Operation: operation, Cause: err}
		}
	}
	return &QueryError{
		Collection: collection,
		Operation:  operation,
		Cause:      fmt.Errorf("%w: %v", ErrInvalidQuery, err),
	}
}

// IsUniqueViolation checks if an error is a uniqueness violation.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// IsConstraintViolation checks if an error is any write-rejection kind.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation) ||
		errors.Is(err, ErrForeignKeyViolation) ||
		errors.Is(err, ErrNotNullViolation) ||
		errors.Is(err, ErrCheckViolation)
}

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionFailed) || errors.Is(err, ErrConnectionClosed)
}

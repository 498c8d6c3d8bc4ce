package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/documap/documap/pkg/adapter"
)

// serverErrorKinds maps server error codes onto taxonomy kinds. The table
// is read-only after initialization; classification never mutates it.
var serverErrorKinds = map[int]error{
	11000: adapter.ErrUniqueViolation, // DuplicateKey
	11001: adapter.ErrUniqueViolation, // legacy duplicate key on update
	12582: adapter.ErrUniqueViolation, // legacy duplicate key variant
	121:   adapter.ErrCheckViolation,  // DocumentValidationFailure
}

// classifyError translates a driver error into the corresponding taxonomy
// kind, preserving the original as the wrapped cause. Errors with no
// specific kind are returned unchanged; the core folds them into the
// generic command or query kind at its translation boundary.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%w: %v", adapter.ErrConnectionClosed, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", adapter.ErrConnectionFailed, err)
	}

	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if kind := classifyCode(we.Code, we.Message); kind != nil {
				return fmt.Errorf("%w: %s", kind, we.Message)
			}
		}
		if writeErr.WriteConcernError != nil {
			return fmt.Errorf("%w: %s", adapter.ErrConnectionFailed, writeErr.WriteConcernError.Message)
		}
		return err
	}

	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		for _, we := range bulkErr.WriteErrors {
			if kind := classifyCode(we.Code, we.Message); kind != nil {
				return fmt.Errorf("%w: %s", kind, we.Message)
			}
		}
		return err
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if kind := classifyCode(int(cmdErr.Code), cmdErr.Message); kind != nil {
			return fmt.Errorf("%w: %s", kind, cmdErr.Message)
		}
		return err
	}

	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", adapter.ErrUniqueViolation, err)
	}
	return err
}

// classifyCode resolves a server error code to a taxonomy kind, nil when
// the code has no specific kind. Validation failures mentioning a required
// field are surfaced as the not-null kind.
func classifyCode(code int, message string) error {
	kind, ok := serverErrorKinds[code]
	if !ok {
		return nil
	}
	if kind == adapter.ErrCheckViolation && strings.Contains(strings.ToLower(message), "required") {
		return adapter.ErrNotNullViolation
	}
	return kind
}

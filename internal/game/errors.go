package game

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure category. Use errors.Is to classify.
var (
	// ErrValidation covers illegal actions, costs, targets and timing. The state is unchanged.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound covers unknown players and actions. The state is unchanged.
	ErrNotFound = errors.New("not found")
	// ErrInconsistentState covers requests that do not match the pending interaction.
	ErrInconsistentState = errors.New("inconsistent state")
	// ErrInvalidSelection is an exchange selection of the wrong size or content.
	ErrInvalidSelection = fmt.Errorf("%w: invalid selection", ErrInconsistentState)
	// ErrInvariantViolation means the engine reached a state that should be impossible.
	ErrInvariantViolation = errors.New("invariant violation")
)

// RuleError is returned by every engine operation that rejects its input.
type RuleError struct {
	Op     string
	Kind   error
	Reason string
}

func (e *RuleError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Reason)
}

// Unwrap exposes the sentinel kind to errors.Is.
func (e *RuleError) Unwrap() error {
	return e.Kind
}

func validationError(op, format string, args ...interface{}) error {
	return &RuleError{Op: op, Kind: ErrValidation, Reason: fmt.Sprintf(format, args...)}
}

func notFoundError(op, format string, args ...interface{}) error {
	return &RuleError{Op: op, Kind: ErrNotFound, Reason: fmt.Sprintf(format, args...)}
}

func inconsistentError(op, format string, args ...interface{}) error {
	return &RuleError{Op: op, Kind: ErrInconsistentState, Reason: fmt.Sprintf(format, args...)}
}

func selectionError(op, format string, args ...interface{}) error {
	return &RuleError{Op: op, Kind: ErrInvalidSelection, Reason: fmt.Sprintf(format, args...)}
}

func invariantError(op, format string, args ...interface{}) error {
	return &RuleError{Op: op, Kind: ErrInvariantViolation, Reason: fmt.Sprintf(format, args...)}
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or out-of-range input. Callers can always
	// recover by correcting the input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidStateTransition marks a lifecycle change that would move an
	// alert or report backwards or out of a terminal state.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrNotFound marks a referenced lake or entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoData is returned by the normalizer when a lake has no readings at all.
	// It is a handled state: the caller decides whether to bootstrap defaults.
	ErrNoData = errors.New("no sensor data")
)

// ValidationError describes which field was rejected and why.
type ValidationError struct {
	Field   string
	Message string
	Err     error // optional cause, e.g. ErrNotFound for an unknown lake
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransitionError reports a rejected lifecycle change.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s cannot move from %q to %q", e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

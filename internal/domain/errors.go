package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for the engine. Callers match with errors.Is.
var (
	// ErrValidation marks a malformed parameter set or option. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrIntegration marks a quadrature failure. The assembler recovers from it
	// with a point approximation, so it only surfaces in logs and direct calls.
	ErrIntegration = errors.New("integration failed")

	// ErrNumericalOverflow marks an operator whose norm exceeds MaxOperatorNorm.
	ErrNumericalOverflow = errors.New("numerical overflow")

	// ErrState marks an externally supplied state that is not normalized.
	ErrState = errors.New("invalid state")

	// ErrInsufficientMemory marks an engine whose dense operators cannot fit in memory.
	ErrInsufficientMemory = errors.New("insufficient memory")
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e ValidationError) Unwrap() error {
	return ErrValidation
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e ValidationErrors) Unwrap() error {
	return ErrValidation
}

// OrNil returns nil for an empty list so callers can return it directly.
func (e ValidationErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// OperatorError wraps a failure raised while assembling H(t).
type OperatorError struct {
	Time float64
	Err  error
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("operator at t=%g: %v", e.Time, e.Err)
}

func (e *OperatorError) Unwrap() error {
	return e.Err
}

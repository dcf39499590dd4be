package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks input rejected by a business rule.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a uniqueness rule is violated.
	ErrConflict = errors.New("conflict")
	// ErrCardInUse is returned when deleting a card that still has debts.
	ErrCardInUse = errors.New("card has linked debts")
)

// ValidationError carries the user-facing message of a failed rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFound wraps ErrNotFound with the entity and id that were looked up.
func NotFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

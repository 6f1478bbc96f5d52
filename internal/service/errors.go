package service

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a referenced show, customer or ticket
// does not exist.
type NotFoundError struct {
	Resource string // "Show", "Customer" or "Ticket"
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// ValidationError reports a missing or out-of-range input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// CapacityError reports a booking that asked for more seats than the
// show had available at the time of the request.
type CapacityError struct {
	Available int
	Requested int
}

func (e *CapacityError) Error() string {
	return "Not enough seats available"
}

// ErrConflict is returned when a record cannot be deleted because
// tickets still reference it.
var ErrConflict = errors.New("record is referenced by existing tickets")

func notFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// service package to distinguish between different failure scenarios
// without inspecting driver errors.
package repository

import "errors"

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ErrCustomerNotFound indicates that a customer was not located in the DB.
var ErrCustomerNotFound = errors.New("customer not found")

// ErrTicketNotFound indicates that a ticket was not located in the DB.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrInsufficientSeats is returned by the booking path when the
// conditional seat decrement matched no row: the show has fewer
// available seats than requested.  Nothing has been written.
var ErrInsufficientSeats = errors.New("insufficient seats")

// ErrConflict is returned when a delete cannot be performed because of
// dependent records, such as deleting a show that still has tickets.
var ErrConflict = errors.New("conflict")

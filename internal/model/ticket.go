package model

import "time"

// TicketStatus is the booking state of a ticket.
type TicketStatus string

const (
	StatusReserved  TicketStatus = "reserved"
	StatusConfirmed TicketStatus = "confirmed"
	StatusCancelled TicketStatus = "cancelled"
)

// PaymentStatus tracks the money side of a ticket.  No payment is
// processed by this service; staff record the outcome by hand.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusReserved, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// statusTransitions lists the moves allowed through a ticket update.
// Cancellation is absent on purpose: it returns seats to the show and
// only the ledger's cancel path does that.
var statusTransitions = map[TicketStatus][]TicketStatus{
	StatusReserved:  {StatusReserved, StatusConfirmed},
	StatusConfirmed: {StatusConfirmed, StatusReserved},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPending, PaymentPaid},
	PaymentPaid:     {PaymentPaid, PaymentRefunded},
	PaymentRefunded: {PaymentRefunded},
}

// CanTransition reports whether a ticket in status s may be edited
// into status to.
func (s TicketStatus) CanTransition(to TicketStatus) bool {
	for _, t := range statusTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether payment status p may move to to.
func (p PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, t := range paymentTransitions[p] {
		if t == to {
			return true
		}
	}
	return false
}

// Ticket records one customer's booking of NumberOfTickets seats for a
// show.  TotalPrice is fixed at booking time from the show's price.
//
// Fields:
//  ID              – opaque identifier (UUID string).
//  ShowID          – show being booked.
//  CustomerID      – customer who holds the booking.
//  SeatNumbers     – free-text seat labels in the order given.
//  NumberOfTickets – seats taken from the show's pool (≥ 1).
//  TotalPrice      – ticket price × NumberOfTickets.
//  BookingDate     – when the booking was made.
//  Status          – reserved, confirmed or cancelled.
//  PaymentStatus   – pending, paid or refunded.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Ticket struct {
	ID              string        `json:"id"`              // tickets.id
	ShowID          string        `json:"showId"`          // tickets.show_id
	CustomerID      string        `json:"customerId"`      // tickets.customer_id
	SeatNumbers     []string      `json:"seatNumbers"`     // tickets.seat_numbers (JSON array)
	NumberOfTickets int           `json:"numberOfTickets"` // tickets.number_of_tickets
	TotalPrice      float64       `json:"totalPrice"`      // tickets.total_price
	BookingDate     time.Time     `json:"bookingDate"`     // tickets.booking_date
	Status          TicketStatus  `json:"status"`          // tickets.status
	PaymentStatus   PaymentStatus `json:"paymentStatus"`   // tickets.payment_status
	CreatedAt       time.Time     `json:"createdAt"`       // tickets.created_at
	UpdatedAt       time.Time     `json:"updatedAt"`       // tickets.updated_at
}

// TicketDetail is a ticket joined with the records it references.
// Show or Customer is nil when the listing did not ask for it or when
// the referenced record no longer exists.
type TicketDetail struct {
	Ticket
	Show     *Show     `json:"show,omitempty"`
	Customer *Customer `json:"customer,omitempty"`
}

// TicketFilter narrows a ledger listing.  Search is a case-insensitive
// substring matched against the customer's first name, last name and
// email.
type TicketFilter struct {
	Search string
}

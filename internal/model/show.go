package model

import "time"

// DefaultVenue is assigned to shows created without an explicit venue.
const DefaultVenue = "Medallion Theatre"

// DefaultTotalSeats is the seat pool size used when a show is created
// without totalSeats.
const DefaultTotalSeats = 100

// MaxPrice is the largest amount a DECIMAL(10,2) price column holds.
// Ticket prices and ticket totals are whole cents no larger than this.
const MaxPrice = 99999999.99

// Show represents a single scheduled performance with a fixed seat
// pool.  AvailableSeats is a denormalised counter: it always equals
// TotalSeats minus the seats held by tickets still present in the
// ledger, and it is only moved by the ticket ledger or by an explicit
// catalog update performed under the show's row lock.
//
// Fields:
//  ID             – opaque identifier (UUID string).
//  Title          – title of the production.
//  Date           – calendar date of the performance (UTC midnight).
//  Time           – free-text start time, e.g. "19:30".
//  Description    – optional blurb, empty when not provided.
//  TicketPrice    – price of a single seat, never negative.
//  TotalSeats     – capacity fixed at creation (positive).
//  AvailableSeats – unsold seats, 0 ≤ AvailableSeats ≤ TotalSeats.
//  Venue          – venue name, defaults to DefaultVenue.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Show struct {
	ID             string    `json:"id"`             // shows.id
	Title          string    `json:"title"`          // shows.title
	Date           time.Time `json:"date"`           // shows.show_date
	Time           string    `json:"time"`           // shows.show_time
	Description    string    `json:"description"`    // shows.description
	TicketPrice    float64   `json:"ticketPrice"`    // shows.ticket_price
	TotalSeats     int       `json:"totalSeats"`     // shows.total_seats
	AvailableSeats int       `json:"availableSeats"` // shows.available_seats
	Venue          string    `json:"venue"`          // shows.venue
	CreatedAt      time.Time `json:"createdAt"`      // shows.created_at
	UpdatedAt      time.Time `json:"updatedAt"`      // shows.updated_at
}

// SoldSeats returns the number of seats currently held by tickets.
func (s Show) SoldSeats() int {
	return s.TotalSeats - s.AvailableSeats
}

// ShowFilter narrows a catalog listing.  Search is a case-insensitive
// substring matched against title and venue.
type ShowFilter struct {
	Search string
}

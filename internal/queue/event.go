// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types double as the routing key / queue name of the message.
const (
	TicketBooked    = "ticket.booked"
	TicketCancelled = "ticket.cancelled"
)

// TicketEvent is published after the ledger commits a booking or a
// cancellation.  It carries enough information for downstream
// consumers to log, notify or trigger analytics without querying the
// primary database.
type TicketEvent struct {
	Type            string   `json:"type"`
	TicketID        string   `json:"ticket_id"`
	ShowID          string   `json:"show_id"`
	ShowTitle       string   `json:"show_title"`
	CustomerID      string   `json:"customer_id"`
	CustomerName    string   `json:"customer_name"`
	SeatNumbers     []string `json:"seats"`
	NumberOfTickets int      `json:"number_of_tickets"`
	TotalPrice      float64  `json:"total_price"`
	AvailableSeats  int      `json:"available_seats"`
	OccurredAt      string   `json:"occurred_at"`
}

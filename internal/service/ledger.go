package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/queue"
	"github.com/iliyamo/theatre-box-office/internal/repository"
)

// BookingInput is the payload for booking tickets.
type BookingInput struct {
	ShowID          string              `json:"show" validate:"required"`
	CustomerID      string              `json:"customer" validate:"required"`
	SeatNumbers     []string            `json:"seatNumbers" validate:"dive,required"`
	NumberOfTickets int                 `json:"numberOfTickets" validate:"min=1"`
	Status          model.TicketStatus  `json:"status" validate:"omitempty,oneof=reserved confirmed"`
	PaymentStatus   model.PaymentStatus `json:"paymentStatus" validate:"omitempty,oneof=pending paid"`
}

// TicketPatch carries a partial ticket update.  ShowID, CustomerID and
// NumberOfTickets are accepted only when they repeat the stored value:
// they fix the seat count taken from a show and cannot be edited.
type TicketPatch struct {
	SeatNumbers     []string             `json:"seatNumbers" validate:"omitempty,dive,required"`
	Status          *model.TicketStatus  `json:"status"`
	PaymentStatus   *model.PaymentStatus `json:"paymentStatus"`
	NumberOfTickets *int                 `json:"numberOfTickets"`
	ShowID          *string              `json:"show"`
	CustomerID      *string              `json:"customer"`
}

// Inventory compares a show's seat counter with the seats held in the
// ledger.  Consistent is false when the counter has drifted, e.g.
// after a manual availableSeats overwrite.
type Inventory struct {
	ShowID         string `json:"showId"`
	TotalSeats     int    `json:"totalSeats"`
	AvailableSeats int    `json:"availableSeats"`
	BookedSeats    int    `json:"bookedSeats"`
	Tickets        int    `json:"tickets"`
	Consistent     bool   `json:"consistent"`
}

// Ledger books and cancels tickets while keeping every show's
// available seats equal to its capacity minus the seats of the
// tickets still on the ledger.
type Ledger struct {
	shows     ShowStore
	customers CustomerStore
	tickets   TicketStore
	events    EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

// NewLedger wires the ledger.  A nil publisher disables events.
func NewLedger(shows ShowStore, customers CustomerStore, tickets TicketStore, events EventPublisher, log *zap.Logger) *Ledger {
	if events == nil {
		events = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		shows:     shows,
		customers: customers,
		tickets:   tickets,
		events:    events,
		log:       log.Named("ledger"),
		now:       time.Now,
	}
}

// Book takes seats from a show for a customer.  Checks run cheapest
// first: the show, its remaining capacity, then the customer.  The
// store performs the seat decrement and the ticket insert atomically
// and refuses the decrement if a concurrent booking got there first,
// in which case a CapacityError with the fresh availability is
// returned and nothing is written.
func (l *Ledger) Book(ctx context.Context, in BookingInput) (*model.TicketDetail, error) {
	in.ShowID = strings.TrimSpace(in.ShowID)
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	in.SeatNumbers = trimAll(in.SeatNumbers)
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	show, err := l.shows.GetByID(ctx, in.ShowID)
	if err != nil {
		return nil, translateShowErr(err)
	}
	if show.AvailableSeats < in.NumberOfTickets {
		return nil, &CapacityError{Available: show.AvailableSeats, Requested: in.NumberOfTickets}
	}
	if _, err := l.customers.GetByID(ctx, in.CustomerID); err != nil {
		return nil, translateCustomerErr(err)
	}

	total := roundCents(show.TicketPrice * float64(in.NumberOfTickets))
	if total > model.MaxPrice {
		return nil, invalid("numberOfTickets", "totalPrice would exceed %.2f", model.MaxPrice)
	}

	t := &model.Ticket{
		ShowID:          show.ID,
		CustomerID:      in.CustomerID,
		SeatNumbers:     in.SeatNumbers,
		NumberOfTickets: in.NumberOfTickets,
		TotalPrice:      total,
		Status:          in.Status,
		PaymentStatus:   in.PaymentStatus,
	}
	if t.SeatNumbers == nil {
		t.SeatNumbers = []string{}
	}
	if t.Status == "" {
		t.Status = model.StatusReserved
	}
	if t.PaymentStatus == "" {
		t.PaymentStatus = model.PaymentPending
	}

	if err := l.tickets.Book(ctx, t); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientSeats):
			return nil, l.capacityError(ctx, show.ID, in.NumberOfTickets)
		case errors.Is(err, repository.ErrShowNotFound):
			return nil, notFound("Show")
		case errors.Is(err, repository.ErrCustomerNotFound):
			return nil, notFound("Customer")
		default:
			return nil, fmt.Errorf("book ticket: %w", err)
		}
	}

	detail, err := l.Get(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	l.log.Info("ticket booked",
		zap.String("ticket_id", t.ID),
		zap.String("show_id", t.ShowID),
		zap.String("customer_id", t.CustomerID),
		zap.Int("number_of_tickets", t.NumberOfTickets),
	)
	l.publish(ctx, queue.TicketBooked, detail.Ticket, detail.Show, detail.Customer)
	return detail, nil
}

// capacityError re-reads the show so the error reports the
// availability that made the conditional decrement fail.
func (l *Ledger) capacityError(ctx context.Context, showID string, requested int) error {
	show, err := l.shows.GetByID(ctx, showID)
	if err != nil {
		return translateShowErr(err)
	}
	return &CapacityError{Available: show.AvailableSeats, Requested: requested}
}

// Update edits a ticket's seat labels, status or payment status.
// Status changes follow the transition table in package model;
// cancellation is only possible through Cancel.
func (l *Ledger) Update(ctx context.Context, id string, p TicketPatch) (*model.TicketDetail, error) {
	p.SeatNumbers = trimAll(p.SeatNumbers)
	if err := checkStruct(p); err != nil {
		return nil, err
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, invalid("status", "status must be one of: reserved confirmed cancelled")
	}
	if p.PaymentStatus != nil && !p.PaymentStatus.Valid() {
		return nil, invalid("paymentStatus", "paymentStatus must be one of: pending paid refunded")
	}
	_, err := l.tickets.Update(ctx, id, func(t *model.Ticket) error {
		if p.NumberOfTickets != nil && *p.NumberOfTickets != t.NumberOfTickets {
			return invalid("numberOfTickets", "numberOfTickets cannot be changed after booking; cancel and book again")
		}
		if p.ShowID != nil && *p.ShowID != t.ShowID {
			return invalid("show", "show cannot be changed after booking")
		}
		if p.CustomerID != nil && *p.CustomerID != t.CustomerID {
			return invalid("customer", "customer cannot be changed after booking")
		}
		if p.Status != nil {
			if *p.Status == model.StatusCancelled {
				return invalid("status", "use DELETE /api/tickets/%s to cancel a ticket", t.ID)
			}
			if !t.Status.CanTransition(*p.Status) {
				return invalid("status", "status cannot change from %s to %s", t.Status, *p.Status)
			}
			t.Status = *p.Status
		}
		if p.PaymentStatus != nil {
			if !t.PaymentStatus.CanTransition(*p.PaymentStatus) {
				return invalid("paymentStatus", "paymentStatus cannot change from %s to %s", t.PaymentStatus, *p.PaymentStatus)
			}
			t.PaymentStatus = *p.PaymentStatus
		}
		if p.SeatNumbers != nil {
			t.SeatNumbers = p.SeatNumbers
		}
		return nil
	})
	if err != nil {
		return nil, translateTicketErr(err)
	}
	return l.Get(ctx, id)
}

// Cancel returns a ticket's seats to its show and removes the ticket
// from the ledger.  If the show has been removed the seats have
// nowhere to go and only the ticket is deleted.
func (l *Ledger) Cancel(ctx context.Context, id string) error {
	t, show, err := l.tickets.Cancel(ctx, id)
	if err != nil {
		return translateTicketErr(err)
	}
	fields := []zap.Field{
		zap.String("ticket_id", t.ID),
		zap.String("show_id", t.ShowID),
		zap.Int("seats_returned", t.NumberOfTickets),
	}
	if show == nil {
		fields = append(fields, zap.Bool("show_missing", true))
	}
	l.log.Info("ticket cancelled", fields...)
	customer, err := l.customers.GetByID(ctx, t.CustomerID)
	if err != nil {
		customer = nil
	}
	l.publish(ctx, queue.TicketCancelled, *t, show, customer)
	return nil
}

// Get returns a ticket joined with its show and customer.
func (l *Ledger) Get(ctx context.Context, id string) (*model.TicketDetail, error) {
	d, err := l.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, translateTicketErr(err)
	}
	return d, nil
}

// List returns all tickets, newest booking first.
func (l *Ledger) List(ctx context.Context, f model.TicketFilter) ([]model.TicketDetail, error) {
	out, err := l.tickets.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return out, nil
}

// ListByShow returns the tickets of one show with their customers.
func (l *Ledger) ListByShow(ctx context.Context, showID string) ([]model.TicketDetail, error) {
	out, err := l.tickets.ListByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("list tickets of show %s: %w", showID, err)
	}
	return out, nil
}

// Inventory reports whether the show's counter matches the ledger.
func (l *Ledger) Inventory(ctx context.Context, showID string) (*Inventory, error) {
	show, err := l.shows.GetByID(ctx, showID)
	if err != nil {
		return nil, translateShowErr(err)
	}
	count, seats, err := l.tickets.CountByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("count tickets of show %s: %w", showID, err)
	}
	inv := &Inventory{
		ShowID:         show.ID,
		TotalSeats:     show.TotalSeats,
		AvailableSeats: show.AvailableSeats,
		BookedSeats:    seats,
		Tickets:        count,
		Consistent:     show.AvailableSeats == show.TotalSeats-seats,
	}
	if !inv.Consistent {
		l.log.Warn("seat counter drift", zap.String("show_id", show.ID),
			zap.Int("available_seats", show.AvailableSeats), zap.Int("booked_seats", seats))
	}
	return inv, nil
}

func (l *Ledger) publish(ctx context.Context, kind string, t model.Ticket, show *model.Show, customer *model.Customer) {
	ev := queue.TicketEvent{
		Type:            kind,
		TicketID:        t.ID,
		ShowID:          t.ShowID,
		CustomerID:      t.CustomerID,
		SeatNumbers:     t.SeatNumbers,
		NumberOfTickets: t.NumberOfTickets,
		TotalPrice:      t.TotalPrice,
		OccurredAt:      l.now().UTC().Format(time.RFC3339),
	}
	if show != nil {
		ev.ShowTitle = show.Title
		ev.AvailableSeats = show.AvailableSeats
	}
	if customer != nil {
		ev.CustomerName = customer.FullName()
	}
	if err := l.events.Publish(ctx, ev); err != nil {
		l.log.Warn("event not published", zap.String("event", kind), zap.String("ticket_id", t.ID), zap.Error(err))
	}
}

func translateTicketErr(err error) error {
	var verr *ValidationError
	switch {
	case errors.Is(err, repository.ErrTicketNotFound):
		return notFound("Ticket")
	case errors.As(err, &verr):
		return err
	default:
		return fmt.Errorf("ticket store: %w", err)
	}
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

// TicketRepo provides the ticket ledger's storage.  Booking and
// cancellation move the owning show's available_seats in the same
// transaction that writes the ticket row, so the counter and the
// ledger can never be observed out of step.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `t.id, t.show_id, t.customer_id, t.seat_numbers, t.number_of_tickets, t.total_price,
                       t.booking_date, t.status, t.payment_status, t.created_at, t.updated_at`

const detailSelect = `SELECT ` + ticketColumns + `,
                             s.id, s.title, s.show_date, s.show_time, s.description, s.ticket_price,
                             s.total_seats, s.available_seats, s.venue, s.created_at, s.updated_at,
                             c.id, c.first_name, c.last_name, c.email, c.phone, c.created_at, c.updated_at
                      FROM tickets t
                      LEFT JOIN shows s ON s.id = t.show_id
                      LEFT JOIN customers c ON c.id = t.customer_id`

func scanTicket(rs rowScanner) (*model.Ticket, error) {
	var t model.Ticket
	var seats []byte
	var status, payment string
	if err := rs.Scan(
		&t.ID, &t.ShowID, &t.CustomerID, &seats, &t.NumberOfTickets, &t.TotalPrice,
		&t.BookingDate, &status, &payment, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = model.TicketStatus(status)
	t.PaymentStatus = model.PaymentStatus(payment)
	if err := decodeSeats(seats, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeSeats(raw []byte, t *model.Ticket) error {
	t.SeatNumbers = []string{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &t.SeatNumbers); err != nil {
		return fmt.Errorf("decode seat_numbers of ticket %s: %w", t.ID, err)
	}
	return nil
}

func encodeSeats(seats []string) ([]byte, error) {
	if seats == nil {
		seats = []string{}
	}
	return json.Marshal(seats)
}

// nullableShow and nullableCustomer receive the LEFT JOIN side of a
// detail row; all columns are NULL when the referenced record is gone.
type nullableShow struct {
	id, title, timeOfDay, description, venue sql.NullString
	date, createdAt, updatedAt               sql.NullTime
	price                                    sql.NullFloat64
	total, available                         sql.NullInt64
}

func (n *nullableShow) dest() []any {
	return []any{&n.id, &n.title, &n.date, &n.timeOfDay, &n.description, &n.price,
		&n.total, &n.available, &n.venue, &n.createdAt, &n.updatedAt}
}

func (n *nullableShow) model() *model.Show {
	if !n.id.Valid {
		return nil
	}
	return &model.Show{
		ID:             n.id.String,
		Title:          n.title.String,
		Date:           n.date.Time,
		Time:           n.timeOfDay.String,
		Description:    n.description.String,
		TicketPrice:    n.price.Float64,
		TotalSeats:     int(n.total.Int64),
		AvailableSeats: int(n.available.Int64),
		Venue:          n.venue.String,
		CreatedAt:      n.createdAt.Time,
		UpdatedAt:      n.updatedAt.Time,
	}
}

type nullableCustomer struct {
	id, firstName, lastName, email, phone sql.NullString
	createdAt, updatedAt                  sql.NullTime
}

func (n *nullableCustomer) dest() []any {
	return []any{&n.id, &n.firstName, &n.lastName, &n.email, &n.phone, &n.createdAt, &n.updatedAt}
}

func (n *nullableCustomer) model() *model.Customer {
	if !n.id.Valid {
		return nil
	}
	return &model.Customer{
		ID:        n.id.String,
		FirstName: n.firstName.String,
		LastName:  n.lastName.String,
		Email:     n.email.String,
		Phone:     n.phone.String,
		CreatedAt: n.createdAt.Time,
		UpdatedAt: n.updatedAt.Time,
	}
}

func scanDetail(rs rowScanner) (*model.TicketDetail, error) {
	var d model.TicketDetail
	var seats []byte
	var status, payment string
	var ns nullableShow
	var nc nullableCustomer
	dest := []any{
		&d.ID, &d.ShowID, &d.CustomerID, &seats, &d.NumberOfTickets, &d.TotalPrice,
		&d.BookingDate, &status, &payment, &d.CreatedAt, &d.UpdatedAt,
	}
	dest = append(dest, ns.dest()...)
	dest = append(dest, nc.dest()...)
	if err := rs.Scan(dest...); err != nil {
		return nil, err
	}
	d.Status = model.TicketStatus(status)
	d.PaymentStatus = model.PaymentStatus(payment)
	if err := decodeSeats(seats, &d.Ticket); err != nil {
		return nil, err
	}
	d.Show = ns.model()
	d.Customer = nc.model()
	return &d, nil
}

// Book takes t.NumberOfTickets seats from the show and inserts the
// ticket in one transaction.  The seat decrement is a conditional
// UPDATE that only matches while enough seats remain, so concurrent
// bookings can never oversell.  When it matches nothing the
// transaction is rolled back and ErrShowNotFound or
// ErrInsufficientSeats is returned.  ErrCustomerNotFound is returned
// when the customer row disappeared after the caller looked it up.
// ID, BookingDate and timestamps are filled in on success.
func (r *TicketRepo) Book(ctx context.Context, t *model.Ticket) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.BookingDate, t.CreatedAt, t.UpdatedAt = now, now, now
	seats, err := encodeSeats(t.SeatNumbers)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const take = `UPDATE shows
                  SET available_seats = available_seats - ?, updated_at = ?
                  WHERE id = ? AND available_seats >= ?`
	res, err := tx.ExecContext(ctx, take, t.NumberOfTickets, now, t.ShowID, t.NumberOfTickets)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var available int
		err := tx.QueryRowContext(ctx, `SELECT available_seats FROM shows WHERE id = ?`, t.ShowID).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrShowNotFound
		}
		if err != nil {
			return err
		}
		return ErrInsufficientSeats
	}

	const ins = `INSERT INTO tickets (id, show_id, customer_id, seat_numbers, number_of_tickets, total_price,
                                      booking_date, status, payment_status, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins,
		t.ID, t.ShowID, t.CustomerID, seats, t.NumberOfTickets, t.TotalPrice,
		t.BookingDate, string(t.Status), string(t.PaymentStatus), t.CreatedAt, t.UpdatedAt,
	); err != nil {
		if isMissingReference(err) {
			return ErrCustomerNotFound
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns the ticket joined with its show and customer.
func (r *TicketRepo) GetByID(ctx context.Context, id string) (*model.TicketDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, detailSelect+` WHERE t.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return d, nil
}

// List returns every ticket joined with show and customer, newest
// booking first.  A non-empty f.Search keeps tickets whose customer's
// first name, last name or email contains it.
func (r *TicketRepo) List(ctx context.Context, f model.TicketFilter) ([]model.TicketDetail, error) {
	q := detailSelect
	args := []any{}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		q += ` WHERE (LOWER(c.first_name) LIKE ? OR LOWER(c.last_name) LIKE ? OR c.email LIKE ?)`
		like := "%" + term + "%"
		args = append(args, like, like, like)
	}
	q += ` ORDER BY t.booking_date DESC`
	return r.queryDetails(ctx, q, args...)
}

// ListByShow returns the tickets of one show joined with their
// customers.  The show itself is not repeated on each entry.
func (r *TicketRepo) ListByShow(ctx context.Context, showID string) ([]model.TicketDetail, error) {
	details, err := r.queryDetails(ctx, detailSelect+` WHERE t.show_id = ? ORDER BY t.booking_date DESC`, showID)
	if err != nil {
		return nil, err
	}
	for i := range details {
		details[i].Show = nil
	}
	return details, nil
}

func (r *TicketRepo) queryDetails(ctx context.Context, q string, args ...any) ([]model.TicketDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TicketDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update locks the ticket row, lets apply edit it and persists the
// editable columns (seat labels, status, payment status).  Seat counts
// and references are never written here.
func (r *TicketRepo) Update(ctx context.Context, id string, apply func(*model.Ticket) error) (*model.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	t, err := scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = ? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if err := apply(t); err != nil {
		return nil, err
	}
	seats, err := encodeSeats(t.SeatNumbers)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt = time.Now().UTC()
	const upd = `UPDATE tickets SET seat_numbers = ?, status = ?, payment_status = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, seats, string(t.Status), string(t.PaymentStatus), t.UpdatedAt, t.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return t, nil
}

// Cancel returns the ticket's seats to its show and deletes the
// ticket, atomically.  When the show no longer exists the seat return
// is skipped.  The returned show reflects the counter after the
// return and is nil when the show is gone.  The counter is capped at
// total_seats so a manual overwrite cannot push it past capacity.
func (r *TicketRepo) Cancel(ctx context.Context, id string) (*model.Ticket, *model.Show, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	t, err := scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = ? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrTicketNotFound
		}
		return nil, nil, err
	}
	now := time.Now().UTC()
	const give = `UPDATE shows
                  SET available_seats = LEAST(total_seats, available_seats + ?), updated_at = ?
                  WHERE id = ?`
	res, err := tx.ExecContext(ctx, give, t.NumberOfTickets, now, t.ShowID)
	if err != nil {
		return nil, nil, err
	}
	var show *model.Show
	if n, _ := res.RowsAffected(); n > 0 {
		show, err = scanShow(tx.QueryRowContext(ctx, `SELECT `+showColumns+` FROM shows WHERE id = ?`, t.ShowID))
		if err != nil {
			return nil, nil, err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, t.ID); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true
	return t, show, nil
}

// CountByShow returns how many tickets and seats are booked for a show.
func (r *TicketRepo) CountByShow(ctx context.Context, showID string) (tickets int, seats int, err error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(number_of_tickets), 0) FROM tickets WHERE show_id = ?`
	err = r.db.QueryRowContext(ctx, q, showID).Scan(&tickets, &seats)
	return tickets, seats, err
}

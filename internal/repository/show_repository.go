// Package repository contains data access logic for the box office.
// This file holds the show repository.  Shows carry the seat counter
// that the ticket repository moves; every write that touches
// available_seats happens either as a single conditional UPDATE or
// inside a transaction holding the show's row lock.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors for sentinel comparisons
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

const showColumns = `id, title, show_date, show_time, description, ticket_price, total_seats, available_seats, venue, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanShow(rs rowScanner) (*model.Show, error) {
	var s model.Show
	if err := rs.Scan(
		&s.ID, &s.Title, &s.Date, &s.Time, &s.Description, &s.TicketPrice,
		&s.TotalSeats, &s.AvailableSeats, &s.Venue, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

// Create inserts a new show.  An ID is generated when the caller left
// it empty and both timestamps are set to the current UTC time.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	const q = `INSERT INTO shows (` + showColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.Title, s.Date, s.Time, s.Description, s.TicketPrice,
		s.TotalSeats, s.AvailableSeats, s.Venue, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// GetByID retrieves a show by its ID.  It returns ErrShowNotFound if
// there is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id string) (*model.Show, error) {
	const q = `SELECT ` + showColumns + ` FROM shows WHERE id = ?`
	s, err := scanShow(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns shows ordered by date then time ascending.  When
// f.Search is set only shows whose title or venue contains it
// (case-insensitive) are returned.  An empty result is an empty slice.
func (r *ShowRepo) List(ctx context.Context, f model.ShowFilter) ([]model.Show, error) {
	where := "1=1"
	args := []any{}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		where = "(LOWER(title) LIKE ? OR LOWER(venue) LIKE ?)"
		like := "%" + term + "%"
		args = append(args, like, like)
	}
	q := `SELECT ` + showColumns + ` FROM shows WHERE ` + where + ` ORDER BY show_date ASC, show_time ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Show, 0)
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update loads the show under a row lock, lets apply mutate it and
// writes every column back in the same transaction.  Bookings and
// cancellations against the show wait for the lock, so apply sees the
// live seat counter.  An error from apply rolls the transaction back
// and is returned unchanged.
func (r *ShowRepo) Update(ctx context.Context, id string, apply func(*model.Show) error) (*model.Show, error) {
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

	const sel = `SELECT ` + showColumns + ` FROM shows WHERE id = ? FOR UPDATE`
	s, err := scanShow(tx.QueryRowContext(ctx, sel, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	if err := apply(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = time.Now().UTC()
	const upd = `UPDATE shows
               SET title = ?, show_date = ?, show_time = ?, description = ?, ticket_price = ?,
                   total_seats = ?, available_seats = ?, venue = ?, updated_at = ?
               WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd,
		s.Title, s.Date, s.Time, s.Description, s.TicketPrice,
		s.TotalSeats, s.AvailableSeats, s.Venue, s.UpdatedAt,
		s.ID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return s, nil
}

// Delete removes a show.  The deletion occurs within a transaction so
// the ticket check and the delete see the same state.  If the show
// does not exist, ErrShowNotFound is returned.  If any tickets still
// reference the show, the deletion is aborted and ErrConflict is
// returned.
func (r *ShowRepo) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// Ensure rollback or commit at the end
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM shows WHERE id = ? FOR UPDATE`, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrShowNotFound
		}
		return err
	}
	var ticketCount int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE show_id = ?`, id).Scan(&ticketCount); err != nil {
		return err
	}
	if ticketCount > 0 {
		return ErrConflict
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM shows WHERE id = ?`, id); err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

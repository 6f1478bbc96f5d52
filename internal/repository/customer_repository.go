package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

const customerColumns = `id, first_name, last_name, email, phone, created_at, updated_at`

func scanCustomer(rs rowScanner) (*model.Customer, error) {
	var c model.Customer
	if err := rs.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CustomerRepo manages persistence for customer contact records.
type CustomerRepo struct {
	db *sql.DB
}

// NewCustomerRepo returns a new CustomerRepo bound to the given database.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// Create inserts a customer, generating an ID when none is set.
func (r *CustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	const q = `INSERT INTO customers (` + customerColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetByID returns ErrCustomerNotFound when no row matches.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`
	c, err := scanCustomer(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns customers newest first.  A non-empty search keeps only
// customers whose first name, last name or email contains it.
func (r *CustomerRepo) List(ctx context.Context, search string) ([]model.Customer, error) {
	where := "1=1"
	args := []any{}
	if term := strings.ToLower(strings.TrimSpace(search)); term != "" {
		where = "(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR email LIKE ?)"
		like := "%" + term + "%"
		args = append(args, like, like, like)
	}
	q := `SELECT ` + customerColumns + ` FROM customers WHERE ` + where + ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update loads the customer under a row lock, applies the mutation and
// writes it back in one transaction.
func (r *CustomerRepo) Update(ctx context.Context, id string, apply func(*model.Customer) error) (*model.Customer, error) {
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
	const sel = `SELECT ` + customerColumns + ` FROM customers WHERE id = ? FOR UPDATE`
	c, err := scanCustomer(tx.QueryRowContext(ctx, sel, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if err := apply(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now().UTC()
	const upd = `UPDATE customers SET first_name = ?, last_name = ?, email = ?, phone = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, c.FirstName, c.LastName, c.Email, c.Phone, c.UpdatedAt, c.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return c, nil
}

// Delete removes a customer that holds no tickets.  It returns
// ErrCustomerNotFound for an unknown ID and ErrConflict while tickets
// still reference the customer.
func (r *CustomerRepo) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM customers WHERE id = ? FOR UPDATE`, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCustomerNotFound
		}
		return err
	}
	var ticketCount int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE customer_id = ?`, id).Scan(&ticketCount); err != nil {
		return err
	}
	if ticketCount > 0 {
		return ErrConflict
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id); err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/repository"
)

// CustomerInput is the payload for registering a customer.
type CustomerInput struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
}

// CustomerPatch carries a partial customer update.
type CustomerPatch struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

// Directory manages customer contact records.
type Directory struct {
	customers CustomerStore
	log       *zap.Logger
}

// NewDirectory returns a Directory backed by customers.
func NewDirectory(customers CustomerStore, log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{customers: customers, log: log.Named("directory")}
}

func (in *CustomerInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
}

// Create registers a customer.  Email is stored lower-case.
func (d *Directory) Create(ctx context.Context, in CustomerInput) (*model.Customer, error) {
	in.normalize()
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	c := &model.Customer{FirstName: in.FirstName, LastName: in.LastName, Email: in.Email, Phone: in.Phone}
	if err := d.customers.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	d.log.Info("customer created", zap.String("customer_id", c.ID))
	return c, nil
}

// Get returns a customer or a NotFoundError.
func (d *Directory) Get(ctx context.Context, id string) (*model.Customer, error) {
	c, err := d.customers.GetByID(ctx, id)
	if err != nil {
		return nil, translateCustomerErr(err)
	}
	return c, nil
}

// List returns customers, optionally filtered by a name/email substring.
func (d *Directory) List(ctx context.Context, search string) ([]model.Customer, error) {
	out, err := d.customers.List(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

// Update applies p and re-validates the whole record.
func (d *Directory) Update(ctx context.Context, id string, p CustomerPatch) (*model.Customer, error) {
	c, err := d.customers.Update(ctx, id, func(c *model.Customer) error {
		in := CustomerInput{FirstName: c.FirstName, LastName: c.LastName, Email: c.Email, Phone: c.Phone}
		if p.FirstName != nil {
			in.FirstName = *p.FirstName
		}
		if p.LastName != nil {
			in.LastName = *p.LastName
		}
		if p.Email != nil {
			in.Email = *p.Email
		}
		if p.Phone != nil {
			in.Phone = *p.Phone
		}
		in.normalize()
		if err := checkStruct(in); err != nil {
			return err
		}
		c.FirstName, c.LastName, c.Email, c.Phone = in.FirstName, in.LastName, in.Email, in.Phone
		return nil
	})
	if err != nil {
		return nil, translateCustomerErr(err)
	}
	return c, nil
}

// Delete removes a customer without tickets.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if err := d.customers.Delete(ctx, id); err != nil {
		return translateCustomerErr(err)
	}
	d.log.Info("customer deleted", zap.String("customer_id", id))
	return nil
}

func translateCustomerErr(err error) error {
	var verr *ValidationError
	switch {
	case errors.Is(err, repository.ErrCustomerNotFound):
		return notFound("Customer")
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	case errors.As(err, &verr):
		return err
	default:
		return fmt.Errorf("customer store: %w", err)
	}
}

// Package service holds the box-office business logic: the show
// catalog, the customer directory and the ticket ledger.  Services
// depend on the storage interfaces below; the MySQL repositories in
// package repository satisfy them.
package service

import (
	"context"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/queue"
)

// ShowStore persists shows.  Update must run apply under a lock that
// excludes concurrent seat movements on the same show.
type ShowStore interface {
	Create(ctx context.Context, s *model.Show) error
	GetByID(ctx context.Context, id string) (*model.Show, error)
	List(ctx context.Context, f model.ShowFilter) ([]model.Show, error)
	Update(ctx context.Context, id string, apply func(*model.Show) error) (*model.Show, error)
	Delete(ctx context.Context, id string) error
}

// CustomerStore persists customer records.
type CustomerStore interface {
	Create(ctx context.Context, c *model.Customer) error
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	List(ctx context.Context, search string) ([]model.Customer, error)
	Update(ctx context.Context, id string, apply func(*model.Customer) error) (*model.Customer, error)
	Delete(ctx context.Context, id string) error
}

// TicketStore persists the ledger.  Book and Cancel must move the
// show's seat counter atomically with the ticket write.
type TicketStore interface {
	Book(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id string) (*model.TicketDetail, error)
	List(ctx context.Context, f model.TicketFilter) ([]model.TicketDetail, error)
	ListByShow(ctx context.Context, showID string) ([]model.TicketDetail, error)
	Update(ctx context.Context, id string, apply func(*model.Ticket) error) (*model.Ticket, error)
	Cancel(ctx context.Context, id string) (*model.Ticket, *model.Show, error)
	CountByShow(ctx context.Context, showID string) (tickets int, seats int, err error)
}

// EventPublisher receives ledger events after they are committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.TicketEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.TicketEvent) error { return nil }

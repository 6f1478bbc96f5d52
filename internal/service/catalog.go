package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/repository"
)

// ShowInput is the payload for creating a show.
type ShowInput struct {
	Title       string   `json:"title" validate:"required"`
	Date        string   `json:"date" validate:"required"`
	Time        string   `json:"time" validate:"required"`
	Description string   `json:"description"`
	TicketPrice *float64 `json:"ticketPrice" validate:"required,gte=0,lte=99999999.99,cents"`
	TotalSeats  *int     `json:"totalSeats" validate:"omitempty,gt=0"`
	Venue       string   `json:"venue"`
}

// ShowPatch carries the fields of a partial show update; nil fields
// are left untouched.
type ShowPatch struct {
	Title          *string  `json:"title"`
	Date           *string  `json:"date"`
	Time           *string  `json:"time"`
	Description    *string  `json:"description"`
	TicketPrice    *float64 `json:"ticketPrice" validate:"omitempty,gte=0,lte=99999999.99,cents"`
	TotalSeats     *int     `json:"totalSeats" validate:"omitempty,gt=0"`
	AvailableSeats *int     `json:"availableSeats" validate:"omitempty,gte=0"`
	Venue          *string  `json:"venue"`
}

// Catalog manages show listings and guards the seat counter against
// edits that would break 0 ≤ availableSeats ≤ totalSeats.
type Catalog struct {
	shows ShowStore
	log   *zap.Logger
}

// NewCatalog returns a Catalog backed by shows.
func NewCatalog(shows ShowStore, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{shows: shows, log: log.Named("catalog")}
}

// Create validates in and stores a new show whose available seats
// equal its capacity.
func (c *Catalog) Create(ctx context.Context, in ShowInput) (*model.Show, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Time = strings.TrimSpace(in.Time)
	in.Venue = strings.TrimSpace(in.Venue)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	date, err := parseShowDate(in.Date)
	if err != nil {
		return nil, err
	}
	total := model.DefaultTotalSeats
	if in.TotalSeats != nil {
		total = *in.TotalSeats
	}
	venue := in.Venue
	if venue == "" {
		venue = model.DefaultVenue
	}
	s := &model.Show{
		Title:          in.Title,
		Date:           date,
		Time:           in.Time,
		Description:    in.Description,
		TicketPrice:    *in.TicketPrice,
		TotalSeats:     total,
		AvailableSeats: total,
		Venue:          venue,
	}
	if err := c.shows.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create show: %w", err)
	}
	c.log.Info("show created", zap.String("show_id", s.ID), zap.String("title", s.Title), zap.Int("total_seats", s.TotalSeats))
	return s, nil
}

// Get returns a show or a NotFoundError.
func (c *Catalog) Get(ctx context.Context, id string) (*model.Show, error) {
	s, err := c.shows.GetByID(ctx, id)
	if err != nil {
		return nil, translateShowErr(err)
	}
	return s, nil
}

// List returns shows by date ascending.
func (c *Catalog) List(ctx context.Context, f model.ShowFilter) ([]model.Show, error) {
	shows, err := c.shows.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list shows: %w", err)
	}
	return shows, nil
}

// Update applies p to the show.  A new capacity moves the available
// seats by the same amount so sold seats stay sold; an explicit
// availableSeats overwrite is applied last.  The result must satisfy
// 0 ≤ availableSeats ≤ totalSeats.
func (c *Catalog) Update(ctx context.Context, id string, p ShowPatch) (*model.Show, error) {
	if err := checkStruct(p); err != nil {
		return nil, err
	}
	var date *time.Time
	if p.Date != nil {
		d, err := parseShowDate(*p.Date)
		if err != nil {
			return nil, err
		}
		date = &d
	}
	s, err := c.shows.Update(ctx, id, func(s *model.Show) error {
		if p.Title != nil {
			title := strings.TrimSpace(*p.Title)
			if title == "" {
				return invalid("title", "title is required")
			}
			s.Title = title
		}
		if date != nil {
			s.Date = *date
		}
		if p.Time != nil {
			t := strings.TrimSpace(*p.Time)
			if t == "" {
				return invalid("time", "time is required")
			}
			s.Time = t
		}
		if p.Description != nil {
			s.Description = *p.Description
		}
		if p.TicketPrice != nil {
			s.TicketPrice = *p.TicketPrice
		}
		if p.Venue != nil {
			s.Venue = strings.TrimSpace(*p.Venue)
			if s.Venue == "" {
				s.Venue = model.DefaultVenue
			}
		}
		if p.TotalSeats != nil {
			sold := s.SoldSeats()
			if *p.TotalSeats < sold {
				return invalid("totalSeats", "totalSeats cannot be lower than the %d seats already booked", sold)
			}
			s.AvailableSeats = *p.TotalSeats - sold
			s.TotalSeats = *p.TotalSeats
		}
		if p.AvailableSeats != nil {
			if *p.AvailableSeats > s.TotalSeats {
				return invalid("availableSeats", "availableSeats cannot exceed totalSeats (%d)", s.TotalSeats)
			}
			s.AvailableSeats = *p.AvailableSeats
		}
		return nil
	})
	if err != nil {
		return nil, translateShowErr(err)
	}
	if p.AvailableSeats != nil {
		c.log.Warn("available seats overwritten", zap.String("show_id", s.ID), zap.Int("available_seats", s.AvailableSeats))
	}
	return s, nil
}

// Delete removes a show that has no tickets.  Shows with tickets are
// kept and ErrConflict is returned so the ledger never points at a
// missing show.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.shows.Delete(ctx, id); err != nil {
		return translateShowErr(err)
	}
	c.log.Info("show deleted", zap.String("show_id", id))
	return nil
}

func translateShowErr(err error) error {
	var verr *ValidationError
	switch {
	case errors.Is(err, repository.ErrShowNotFound):
		return notFound("Show")
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	case errors.As(err, &verr):
		return err
	default:
		return fmt.Errorf("show store: %w", err)
	}
}

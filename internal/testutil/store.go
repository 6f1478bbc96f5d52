// Package testutil provides in-memory stand-ins for the MySQL
// repositories and the event publisher.  They follow the repository
// contracts, including the sentinel errors and the atomic seat
// movement of Book and Cancel, so service and handler tests exercise
// the same paths as production.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/queue"
	"github.com/iliyamo/theatre-box-office/internal/repository"
)

// Store is one in-memory database shared by the three store views.
// A single mutex plays the role of the row locks.
type Store struct {
	mu        sync.Mutex
	shows     map[string]model.Show
	customers map[string]model.Customer
	tickets   map[string]model.Ticket
	seq       int64
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		shows:     map[string]model.Show{},
		customers: map[string]model.Customer{},
		tickets:   map[string]model.Ticket{},
	}
}

// Shows returns the show store view.
func (s *Store) Shows() *ShowStore { return &ShowStore{s} }

// Customers returns the customer store view.
func (s *Store) Customers() *CustomerStore { return &CustomerStore{s} }

// Tickets returns the ticket store view.
func (s *Store) Tickets() *TicketStore { return &TicketStore{s} }

// tick returns strictly increasing timestamps so orderings by time are
// deterministic.
func (s *Store) tick() time.Time {
	s.seq++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

// Show returns a copy of the stored show, bypassing the services.
func (s *Store) Show(id string) (model.Show, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.shows[id]
	return v, ok
}

// TicketCount returns the number of tickets on the ledger.
func (s *Store) TicketCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

// PutShow stores sh as is.  Tests use it to set up inconsistent
// counters that the services would refuse to produce.
func (s *Store) PutShow(sh model.Show) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows[sh.ID] = sh
}

// ShowStore implements service.ShowStore.
type ShowStore struct{ s *Store }

func (v *ShowStore) Create(_ context.Context, sh *model.Show) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if sh.ID == "" {
		sh.ID = uuid.NewString()
	}
	now := v.s.tick()
	sh.CreatedAt, sh.UpdatedAt = now, now
	v.s.shows[sh.ID] = *sh
	return nil
}

func (v *ShowStore) GetByID(_ context.Context, id string) (*model.Show, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	sh, ok := v.s.shows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	return &sh, nil
}

func (v *ShowStore) List(_ context.Context, f model.ShowFilter) ([]model.Show, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.Show, 0, len(v.s.shows))
	for _, sh := range v.s.shows {
		if term != "" && !strings.Contains(strings.ToLower(sh.Title), term) &&
			!strings.Contains(strings.ToLower(sh.Venue), term) {
			continue
		}
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (v *ShowStore) Update(_ context.Context, id string, apply func(*model.Show) error) (*model.Show, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	sh, ok := v.s.shows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	if err := apply(&sh); err != nil {
		return nil, err
	}
	sh.UpdatedAt = v.s.tick()
	v.s.shows[id] = sh
	return &sh, nil
}

func (v *ShowStore) Delete(_ context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.shows[id]; !ok {
		return repository.ErrShowNotFound
	}
	for _, t := range v.s.tickets {
		if t.ShowID == id {
			return repository.ErrConflict
		}
	}
	delete(v.s.shows, id)
	return nil
}

// CustomerStore implements service.CustomerStore.
type CustomerStore struct{ s *Store }

func (v *CustomerStore) Create(_ context.Context, c *model.Customer) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := v.s.tick()
	c.CreatedAt, c.UpdatedAt = now, now
	v.s.customers[c.ID] = *c
	return nil
}

func (v *CustomerStore) GetByID(_ context.Context, id string) (*model.Customer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c, ok := v.s.customers[id]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	return &c, nil
}

func matchesCustomer(c model.Customer, term string) bool {
	if term == "" {
		return true
	}
	for _, f := range []string{c.FirstName, c.LastName, c.Email} {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func (v *CustomerStore) List(_ context.Context, search string) ([]model.Customer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]model.Customer, 0, len(v.s.customers))
	for _, c := range v.s.customers {
		if matchesCustomer(c, term) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (v *CustomerStore) Update(_ context.Context, id string, apply func(*model.Customer) error) (*model.Customer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c, ok := v.s.customers[id]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	if err := apply(&c); err != nil {
		return nil, err
	}
	c.UpdatedAt = v.s.tick()
	v.s.customers[id] = c
	return &c, nil
}

func (v *CustomerStore) Delete(_ context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.customers[id]; !ok {
		return repository.ErrCustomerNotFound
	}
	for _, t := range v.s.tickets {
		if t.CustomerID == id {
			return repository.ErrConflict
		}
	}
	delete(v.s.customers, id)
	return nil
}

// TicketStore implements service.TicketStore.
type TicketStore struct{ s *Store }

// Book performs the conditional decrement and the insert under one
// lock, matching the repository's single transaction.
func (v *TicketStore) Book(_ context.Context, t *model.Ticket) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	sh, ok := v.s.shows[t.ShowID]
	if !ok {
		return repository.ErrShowNotFound
	}
	if sh.AvailableSeats < t.NumberOfTickets {
		return repository.ErrInsufficientSeats
	}
	if _, ok := v.s.customers[t.CustomerID]; !ok {
		return repository.ErrCustomerNotFound
	}
	now := v.s.tick()
	sh.AvailableSeats -= t.NumberOfTickets
	sh.UpdatedAt = now
	v.s.shows[sh.ID] = sh

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.BookingDate, t.CreatedAt, t.UpdatedAt = now, now, now
	t.SeatNumbers = append([]string{}, t.SeatNumbers...)
	v.s.tickets[t.ID] = *t
	return nil
}

func (v *TicketStore) detail(t model.Ticket, withShow bool) model.TicketDetail {
	d := model.TicketDetail{Ticket: t}
	if sh, ok := v.s.shows[t.ShowID]; ok && withShow {
		d.Show = &sh
	}
	if c, ok := v.s.customers[t.CustomerID]; ok {
		d.Customer = &c
	}
	return d
}

func (v *TicketStore) GetByID(_ context.Context, id string) (*model.TicketDetail, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	d := v.detail(t, true)
	return &d, nil
}

func (v *TicketStore) list(keep func(model.Ticket) bool, withShow bool) []model.TicketDetail {
	out := make([]model.TicketDetail, 0)
	for _, t := range v.s.tickets {
		if keep(t) {
			out = append(out, v.detail(t, withShow))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingDate.After(out[j].BookingDate) })
	return out
}

func (v *TicketStore) List(_ context.Context, f model.TicketFilter) ([]model.TicketDetail, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	term := strings.ToLower(strings.TrimSpace(f.Search))
	return v.list(func(t model.Ticket) bool {
		c, ok := v.s.customers[t.CustomerID]
		if !ok {
			return term == ""
		}
		return matchesCustomer(c, term)
	}, true), nil
}

func (v *TicketStore) ListByShow(_ context.Context, showID string) ([]model.TicketDetail, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.list(func(t model.Ticket) bool { return t.ShowID == showID }, false), nil
}

func (v *TicketStore) Update(_ context.Context, id string, apply func(*model.Ticket) error) (*model.Ticket, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	t.SeatNumbers = append([]string{}, t.SeatNumbers...)
	if err := apply(&t); err != nil {
		return nil, err
	}
	t.UpdatedAt = v.s.tick()
	v.s.tickets[id] = t
	return &t, nil
}

func (v *TicketStore) Cancel(_ context.Context, id string) (*model.Ticket, *model.Show, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.tickets[id]
	if !ok {
		return nil, nil, repository.ErrTicketNotFound
	}
	var show *model.Show
	if sh, ok := v.s.shows[t.ShowID]; ok {
		sh.AvailableSeats += t.NumberOfTickets
		if sh.AvailableSeats > sh.TotalSeats {
			sh.AvailableSeats = sh.TotalSeats
		}
		sh.UpdatedAt = v.s.tick()
		v.s.shows[sh.ID] = sh
		show = &sh
	}
	delete(v.s.tickets, id)
	return &t, show, nil
}

func (v *TicketStore) CountByShow(_ context.Context, showID string) (int, int, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var n, seats int
	for _, t := range v.s.tickets {
		if t.ShowID == showID {
			n++
			seats += t.NumberOfTickets
		}
	}
	return n, seats, nil
}

// Events records published ticket events.  Set Err to make Publish fail.
type Events struct {
	mu     sync.Mutex
	events []queue.TicketEvent
	Err    error
}

func (e *Events) Publish(_ context.Context, ev queue.TicketEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return e.Err
	}
	e.events = append(e.events, ev)
	return nil
}

// Published returns a copy of the recorded events.
func (e *Events) Published() []queue.TicketEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]queue.TicketEvent(nil), e.events...)
}

package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var (
	ticketCols = []string{"id", "show_id", "customer_id", "seat_numbers", "number_of_tickets", "total_price",
		"booking_date", "status", "payment_status", "created_at", "updated_at"}
	showCols = []string{"id", "title", "show_date", "show_time", "description", "ticket_price",
		"total_seats", "available_seats", "venue", "created_at", "updated_at"}
	customerCols = []string{"id", "first_name", "last_name", "email", "phone", "created_at", "updated_at"}
	stamp        = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
)

func detailCols() []string {
	cols := append([]string{}, ticketCols...)
	for _, c := range showCols {
		cols = append(cols, "s_"+c)
	}
	for _, c := range customerCols {
		cols = append(cols, "c_"+c)
	}
	return cols
}

func newTicket() *model.Ticket {
	return &model.Ticket{
		ShowID:          "s1",
		CustomerID:      "c1",
		SeatNumbers:     []string{"A1", "A2"},
		NumberOfTickets: 2,
		TotalPrice:      40,
		Status:          model.StatusReserved,
		PaymentStatus:   model.PaymentPending,
	}
}

func TestTicketRepo_BookTakesSeatsAndInserts(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE shows SET available_seats = available_seats - ?, updated_at = ? WHERE id = ? AND available_seats >= ?")).
		WithArgs(2, sqlmock.AnyArg(), "s1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO tickets")).
		WithArgs(sqlmock.AnyArg(), "s1", "c1", []byte(`["A1","A2"]`), 2, 40.0,
			sqlmock.AnyArg(), "reserved", "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tk := newTicket()
	require.NoError(t, NewTicketRepo(db).Book(context.Background(), tk))
	assert.NotEmpty(t, tk.ID)
	assert.False(t, tk.BookingDate.IsZero())
}

func TestTicketRepo_BookInsufficientSeats(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE shows SET available_seats = available_seats - ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT available_seats FROM shows WHERE id = ?")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"available_seats"}).AddRow(1))
	mock.ExpectRollback()

	err := NewTicketRepo(db).Book(context.Background(), newTicket())
	assert.ErrorIs(t, err, ErrInsufficientSeats)
}

func TestTicketRepo_BookUnknownShow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE shows SET available_seats = available_seats - ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT available_seats FROM shows WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"available_seats"}))
	mock.ExpectRollback()

	err := NewTicketRepo(db).Book(context.Background(), newTicket())
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestTicketRepo_BookUnknownCustomerRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE shows SET available_seats = available_seats - ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO tickets")).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "foreign key"})
	mock.ExpectRollback()

	err := NewTicketRepo(db).Book(context.Background(), newTicket())
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func ticketRow(rows *sqlmock.Rows) *sqlmock.Rows {
	return rows.AddRow("t1", "s1", "c1", []byte(`["A1","A2"]`), 2, 40.0, stamp, "reserved", "pending", stamp, stamp)
}

func TestTicketRepo_CancelReturnsSeats(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM tickets t WHERE t.id = ? FOR UPDATE")).
		WithArgs("t1").
		WillReturnRows(ticketRow(sqlmock.NewRows(ticketCols)))
	mock.ExpectExec(q("SET available_seats = LEAST(total_seats, available_seats + ?)")).
		WithArgs(2, sqlmock.AnyArg(), "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("FROM shows WHERE id = ?")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(showCols).
			AddRow("s1", "Hamlet", stamp, "19:30", "", 20.0, 50, 50, "Medallion Theatre", stamp, stamp))
	mock.ExpectExec(q("DELETE FROM tickets WHERE id = ?")).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tk, show, err := NewTicketRepo(db).Cancel(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, tk.SeatNumbers)
	require.NotNil(t, show)
	assert.Equal(t, 50, show.AvailableSeats)
}

func TestTicketRepo_CancelWithoutShow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM tickets t WHERE t.id = ? FOR UPDATE")).
		WillReturnRows(ticketRow(sqlmock.NewRows(ticketCols)))
	mock.ExpectExec(q("SET available_seats = LEAST(total_seats, available_seats + ?)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("DELETE FROM tickets WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tk, show, err := NewTicketRepo(db).Cancel(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", tk.ID)
	assert.Nil(t, show)
}

func TestTicketRepo_CancelUnknown(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM tickets t WHERE t.id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(ticketCols))
	mock.ExpectRollback()

	_, _, err := NewTicketRepo(db).Cancel(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketRepo_GetByIDToleratesMissingShow(t *testing.T) {
	db, mock := newMock(t)
	row := []driver.Value{"t1", "s1", "c1", []byte(`[]`), 1, 20.0, stamp, "confirmed", "paid", stamp, stamp}
	for range showCols {
		row = append(row, nil)
	}
	row = append(row, "c1", "Jane", "Doe", "jane@x.com", "555-1111", stamp, stamp)
	rows := sqlmock.NewRows(detailCols())
	rows.AddRow(row...)
	mock.ExpectQuery(q("LEFT JOIN shows s ON s.id = t.show_id")).
		WithArgs("t1").
		WillReturnRows(rows)

	d, err := NewTicketRepo(db).GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, d.Show)
	require.NotNil(t, d.Customer)
	assert.Equal(t, "Jane Doe", d.Customer.FullName())
	assert.Equal(t, model.StatusConfirmed, d.Status)
	assert.Equal(t, []string{}, d.SeatNumbers)
}

func TestTicketRepo_ListSearchFiltersByCustomer(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("WHERE (LOWER(c.first_name) LIKE ? OR LOWER(c.last_name) LIKE ? OR c.email LIKE ?) ORDER BY t.booking_date DESC")).
		WithArgs("%jane%", "%jane%", "%jane%").
		WillReturnRows(sqlmock.NewRows(detailCols()))

	out, err := NewTicketRepo(db).List(context.Background(), model.TicketFilter{Search: " Jane "})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestTicketRepo_CountByShow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("SELECT COUNT(*), COALESCE(SUM(number_of_tickets), 0) FROM tickets WHERE show_id = ?")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"n", "seats"}).AddRow(3, 7))

	n, seats, err := NewTicketRepo(db).CountByShow(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 7, seats)
}

func TestShowRepo_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM shows WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(showCols))

	_, err := NewShowRepo(db).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestShowRepo_DeleteWithTicketsConflicts(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT 1 FROM shows WHERE id = ? FOR UPDATE")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM tickets WHERE show_id = ?")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	assert.ErrorIs(t, NewShowRepo(db).Delete(context.Background(), "s1"), ErrConflict)
}

func TestShowRepo_DeleteCommits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT 1 FROM shows WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM tickets WHERE show_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(q("DELETE FROM shows WHERE id = ?")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, NewShowRepo(db).Delete(context.Background(), "s1"))
}

func TestShowRepo_UpdateApplyErrorRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM shows WHERE id = ? FOR UPDATE")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(showCols).
			AddRow("s1", "Hamlet", stamp, "19:30", "", 20.0, 50, 40, "Medallion Theatre", stamp, stamp))
	mock.ExpectRollback()

	_, err := NewShowRepo(db).Update(context.Background(), "s1", func(s *model.Show) error {
		assert.Equal(t, 10, s.SoldSeats())
		return ErrConflict
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestShowRepo_ListSearch(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("WHERE (LOWER(title) LIKE ? OR LOWER(venue) LIKE ?) ORDER BY show_date ASC, show_time ASC")).
		WithArgs("%ham%", "%ham%").
		WillReturnRows(sqlmock.NewRows(showCols).
			AddRow("s1", "Hamlet", stamp, "19:30", "", 20.0, 50, 50, "Medallion Theatre", stamp, stamp))

	out, err := NewShowRepo(db).List(context.Background(), model.ShowFilter{Search: "HAM"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Hamlet", out[0].Title)
}

func TestCustomerRepo_DeleteForeignKeyBackstop(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT 1 FROM customers WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM tickets WHERE customer_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(q("DELETE FROM customers WHERE id = ?")).
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "row is referenced"})
	mock.ExpectRollback()

	assert.ErrorIs(t, NewCustomerRepo(db).Delete(context.Background(), "c1"), ErrConflict)
}

func TestCustomerRepo_CreateAssignsID(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO customers")).
		WithArgs(sqlmock.AnyArg(), "Jane", "Doe", "jane@x.com", "555-1111", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := &model.Customer{FirstName: "Jane", LastName: "Doe", Email: "jane@x.com", Phone: "555-1111"}
	require.NoError(t, NewCustomerRepo(db).Create(context.Background(), c))
	assert.Len(t, c.ID, 36)
}

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to TicketStatus
		ok       bool
	}{
		{StatusReserved, StatusReserved, true},
		{StatusReserved, StatusConfirmed, true},
		{StatusConfirmed, StatusReserved, true},
		{StatusReserved, StatusCancelled, false},
		{StatusConfirmed, StatusCancelled, false},
		{StatusCancelled, StatusReserved, false},
		{TicketStatus("unknown"), StatusReserved, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		ok       bool
	}{
		{PaymentPending, PaymentPaid, true},
		{PaymentPending, PaymentRefunded, false},
		{PaymentPaid, PaymentRefunded, true},
		{PaymentPaid, PaymentPending, false},
		{PaymentRefunded, PaymentPaid, false},
		{PaymentRefunded, PaymentRefunded, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, TicketStatus("").Valid())
	assert.True(t, PaymentRefunded.Valid())
	assert.False(t, PaymentStatus("free").Valid())
}

func TestShowSoldSeats(t *testing.T) {
	assert.Equal(t, 30, Show{TotalSeats: 100, AvailableSeats: 70}.SoldSeats())
}

func TestCustomerJSONIncludesFullName(t *testing.T) {
	bs, err := json.Marshal(Customer{ID: "c1", FirstName: "Jane", LastName: "Doe", Email: "jane@x.com"})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(bs, &got))
	assert.Equal(t, "Jane Doe", got["fullName"])
	assert.Equal(t, "Jane", got["firstName"])
	assert.Equal(t, "c1", got["id"])
}

func TestTicketDetailJSONShape(t *testing.T) {
	d := TicketDetail{
		Ticket:   Ticket{ID: "t1", ShowID: "s1", CustomerID: "c1", SeatNumbers: []string{"A1"}, NumberOfTickets: 1},
		Show:     &Show{ID: "s1", Title: "Hamlet"},
		Customer: nil,
	}
	bs, err := json.Marshal(d)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(bs, &got))
	assert.Equal(t, "t1", got["id"])
	assert.Equal(t, "s1", got["showId"])
	assert.Contains(t, got, "show")
	assert.NotContains(t, got, "customer")
}

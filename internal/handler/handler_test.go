package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/handler"
	"github.com/iliyamo/theatre-box-office/internal/router"
	"github.com/iliyamo/theatre-box-office/internal/service"
	"github.com/iliyamo/theatre-box-office/internal/testutil"
)

func newServer() *echo.Echo {
	st := testutil.NewStore()
	log := zap.NewNop()
	catalog := service.NewCatalog(st.Shows(), log)
	directory := service.NewDirectory(st.Customers(), log)
	ledger := service.NewLedger(st.Shows(), st.Customers(), st.Tickets(), &testutil.Events{}, log)
	return router.New(router.Handlers{
		Shows:     handler.NewShowHandler(catalog, ledger, log),
		Customers: handler.NewCustomerHandler(directory, log),
		Tickets:   handler.NewTicketHandler(ledger, log),
	}, log)
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func seed(t *testing.T, e *echo.Echo, seats int) (showID, customerID string) {
	t.Helper()
	rec, show := do(t, e, http.MethodPost, "/api/shows",
		`{"title":"Hamlet","date":"2025-06-01","time":"19:30","ticketPrice":20,"totalSeats":`+itoa(seats)+`}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, cust := do(t, e, http.MethodPost, "/api/customers",
		`{"firstName":"Jane","lastName":"Doe","email":"jane@x.com","phone":"555-1111"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return show["id"].(string), cust["id"].(string)
}

func itoa(n int) string {
	bs, _ := json.Marshal(n)
	return string(bs)
}

func TestIndexAndHealth(t *testing.T) {
	e := newServer()

	rec, body := do(t, e, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Theatre Ticket Management System API", body["message"])
	assert.Contains(t, body["endpoints"], "tickets")

	rec, _ = do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestBookTicketFlow(t *testing.T) {
	e := newServer()
	showID, customerID := seed(t, e, 50)

	rec, ticket := do(t, e, http.MethodPost, "/api/tickets",
		`{"show":"`+showID+`","customer":"`+customerID+`","seatNumbers":["A1","A2"],"numberOfTickets":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 40, ticket["totalPrice"])
	assert.Equal(t, "reserved", ticket["status"])
	assert.Equal(t, "pending", ticket["paymentStatus"])
	require.IsType(t, map[string]any{}, ticket["show"])
	assert.Equal(t, "Hamlet", ticket["show"].(map[string]any)["title"])
	assert.Equal(t, "Jane Doe", ticket["customer"].(map[string]any)["fullName"])

	_, show := do(t, e, http.MethodGet, "/api/shows/"+showID, "")
	assert.EqualValues(t, 48, show["availableSeats"])

	_, inv := do(t, e, http.MethodGet, "/api/shows/"+showID+"/inventory", "")
	assert.Equal(t, true, inv["consistent"])
	assert.EqualValues(t, 2, inv["bookedSeats"])

	id := ticket["id"].(string)
	rec, up := do(t, e, http.MethodPut, "/api/tickets/"+id, `{"status":"confirmed","paymentStatus":"paid"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", up["status"])

	rec, body := do(t, e, http.MethodDelete, "/api/tickets/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ticket cancelled successfully", body["message"])

	rec, body = do(t, e, http.MethodGet, "/api/tickets/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Ticket not found", body["message"])

	_, show = do(t, e, http.MethodGet, "/api/shows/"+showID, "")
	assert.EqualValues(t, 50, show["availableSeats"])
}

func TestBookTicketErrors(t *testing.T) {
	e := newServer()
	showID, customerID := seed(t, e, 3)

	tests := []struct {
		name   string
		body   string
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "malformed body",
			body:   `{"show":`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Invalid request body", body["message"])
			},
		},
		{
			name:   "unknown show",
			body:   `{"show":"nope","customer":"` + customerID + `","numberOfTickets":1}`,
			status: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Show not found", body["message"])
			},
		},
		{
			name:   "unknown customer",
			body:   `{"show":"` + showID + `","customer":"nope","numberOfTickets":1}`,
			status: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Customer not found", body["message"])
			},
		},
		{
			name:   "over capacity",
			body:   `{"show":"` + showID + `","customer":"` + customerID + `","numberOfTickets":4}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Not enough seats available", body["message"])
				assert.EqualValues(t, 3, body["availableSeats"])
			},
		},
		{
			name:   "zero tickets",
			body:   `{"show":"` + showID + `","customer":"` + customerID + `","numberOfTickets":0}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "numberOfTickets", body["field"])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, e, http.MethodPost, "/api/tickets", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			tt.check(t, body)
		})
	}
}

func TestDeleteReferencedRecordsConflict(t *testing.T) {
	e := newServer()
	showID, customerID := seed(t, e, 10)
	rec, ticket := do(t, e, http.MethodPost, "/api/tickets",
		`{"show":"`+showID+`","customer":"`+customerID+`","numberOfTickets":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = do(t, e, http.MethodDelete, "/api/shows/"+showID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec, _ = do(t, e, http.MethodDelete, "/api/customers/"+customerID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, e, http.MethodDelete, "/api/tickets/"+ticket["id"].(string), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, e, http.MethodDelete, "/api/shows/"+showID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Show deleted successfully", body["message"])
	rec, body = do(t, e, http.MethodDelete, "/api/customers/"+customerID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Customer deleted successfully", body["message"])
}

func TestListsReturnArrays(t *testing.T) {
	e := newServer()
	for _, path := range []string{"/api/shows", "/api/customers", "/api/tickets", "/api/tickets/show/unknown"} {
		t.Run(path, func(t *testing.T) {
			rec, _ := do(t, e, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
		})
	}
}

func TestCustomerValidationNamesField(t *testing.T) {
	e := newServer()
	rec, body := do(t, e, http.MethodPost, "/api/customers",
		`{"firstName":"Jane","lastName":"Doe","email":"not-an-email","phone":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", body["field"])

	rec, body = do(t, e, http.MethodGet, "/api/customers/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Customer not found", body["message"])
}

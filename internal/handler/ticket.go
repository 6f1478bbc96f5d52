package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/service"
)

// TicketHandler serves /api/tickets.  Every ticket in a response is
// expanded with its show and customer.
type TicketHandler struct {
	ledger *service.Ledger
	log    *zap.Logger
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(ledger *service.Ledger, log *zap.Logger) *TicketHandler {
	if ledger == nil || log == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{ledger: ledger, log: log.Named("tickets")}
}

// List handles GET /api/tickets.  ?search= matches customer name or email.
func (h *TicketHandler) List(c echo.Context) error {
	out, err := h.ledger.List(c.Request().Context(), model.TicketFilter{Search: c.QueryParam("search")})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
	t, err := h.ledger.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// ListByShow handles GET /api/tickets/show/:showId.  An unknown show
// yields an empty list.
func (h *TicketHandler) ListByShow(c echo.Context) error {
	out, err := h.ledger.ListByShow(c.Request().Context(), c.Param("showId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Book handles POST /api/tickets.
func (h *TicketHandler) Book(c echo.Context) error {
	var in service.BookingInput
	if err := bind(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	t, err := h.ledger.Book(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Update handles PUT /api/tickets/:id.
func (h *TicketHandler) Update(c echo.Context) error {
	var p service.TicketPatch
	if err := bind(c, &p); err != nil {
		return writeError(c, h.log, err)
	}
	t, err := h.ledger.Update(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Cancel handles DELETE /api/tickets/:id.  The seats go back to the show.
func (h *TicketHandler) Cancel(c echo.Context) error {
	if err := h.ledger.Cancel(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Ticket cancelled successfully"})
}

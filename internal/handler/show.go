package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/service"
)

// ShowHandler serves /api/shows.
type ShowHandler struct {
	catalog *service.Catalog
	ledger  *service.Ledger
	log     *zap.Logger
}

// NewShowHandler constructs a ShowHandler and panics if a dependency is nil.
func NewShowHandler(catalog *service.Catalog, ledger *service.Ledger, log *zap.Logger) *ShowHandler {
	if catalog == nil || ledger == nil || log == nil {
		panic("nil dependency passed to NewShowHandler")
	}
	return &ShowHandler{catalog: catalog, ledger: ledger, log: log.Named("shows")}
}

// List handles GET /api/shows.  ?search= narrows by title or venue.
func (h *ShowHandler) List(c echo.Context) error {
	shows, err := h.catalog.List(c.Request().Context(), model.ShowFilter{Search: c.QueryParam("search")})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, shows)
}

// Get handles GET /api/shows/:id.
func (h *ShowHandler) Get(c echo.Context) error {
	s, err := h.catalog.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Create handles POST /api/shows.
func (h *ShowHandler) Create(c echo.Context) error {
	var in service.ShowInput
	if err := bind(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	s, err := h.catalog.Create(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// Update handles PUT /api/shows/:id.  Only the fields present in the
// body change.
func (h *ShowHandler) Update(c echo.Context) error {
	var p service.ShowPatch
	if err := bind(c, &p); err != nil {
		return writeError(c, h.log, err)
	}
	s, err := h.catalog.Update(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Delete handles DELETE /api/shows/:id.  Shows with tickets answer 409.
func (h *ShowHandler) Delete(c echo.Context) error {
	if err := h.catalog.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Show deleted successfully"})
}

// Inventory handles GET /api/shows/:id/inventory and reports whether
// the show's seat counter agrees with its tickets.
func (h *ShowHandler) Inventory(c echo.Context) error {
	inv, err := h.ledger.Inventory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, inv)
}

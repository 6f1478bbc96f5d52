package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/service"
)

// CustomerHandler serves /api/customers.
type CustomerHandler struct {
	directory *service.Directory
	log       *zap.Logger
}

// NewCustomerHandler constructs a CustomerHandler.
func NewCustomerHandler(directory *service.Directory, log *zap.Logger) *CustomerHandler {
	if directory == nil || log == nil {
		panic("nil dependency passed to NewCustomerHandler")
	}
	return &CustomerHandler{directory: directory, log: log.Named("customers")}
}

func (h *CustomerHandler) List(c echo.Context) error {
	out, err := h.directory.List(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CustomerHandler) Get(c echo.Context) error {
	cust, err := h.directory.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, cust)
}

func (h *CustomerHandler) Create(c echo.Context) error {
	var in service.CustomerInput
	if err := bind(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	cust, err := h.directory.Create(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, cust)
}

func (h *CustomerHandler) Update(c echo.Context) error {
	var p service.CustomerPatch
	if err := bind(c, &p); err != nil {
		return writeError(c, h.log, err)
	}
	cust, err := h.directory.Update(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, cust)
}

// Delete handles DELETE /api/customers/:id.  Customers holding
// tickets answer 409.
func (h *CustomerHandler) Delete(c echo.Context) error {
	if err := h.directory.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Customer deleted successfully"})
}

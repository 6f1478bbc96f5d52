// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/handler"
	"github.com/iliyamo/theatre-box-office/internal/middleware"
)

// Handlers bundles the resource handlers mounted under /api.
type Handlers struct {
	Shows     *handler.ShowHandler
	Customers *handler.CustomerHandler
	Tickets   *handler.TicketHandler
}

// New builds the echo instance with the global middleware stack and
// every route.  api is applied to the /api group only, so health
// checks are never cached or throttled.
func New(h Handlers, log *zap.Logger, api ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	RegisterRoutes(e)
	g := e.Group("/api", api...)
	RegisterShows(g, h.Shows)
	RegisterCustomers(g, h.Customers)
	RegisterTickets(g, h.Tickets)
	return e
}

// RegisterRoutes registers the unauthenticated service endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Index)
	e.GET("/healthz", handler.Health)
}

// RegisterShows mounts the show catalog.
func RegisterShows(g *echo.Group, h *handler.ShowHandler) {
	g.GET("/shows", h.List)
	g.GET("/shows/:id", h.Get)
	g.GET("/shows/:id/inventory", h.Inventory)
	g.POST("/shows", h.Create)
	g.PUT("/shows/:id", h.Update)
	g.DELETE("/shows/:id", h.Delete)
}

// RegisterCustomers mounts the customer directory.
func RegisterCustomers(g *echo.Group, h *handler.CustomerHandler) {
	g.GET("/customers", h.List)
	g.GET("/customers/:id", h.Get)
	g.POST("/customers", h.Create)
	g.PUT("/customers/:id", h.Update)
	g.DELETE("/customers/:id", h.Delete)
}

// RegisterTickets mounts the ticket ledger.  /tickets/show/:showId is
// a static prefix and does not clash with /tickets/:id.
func RegisterTickets(g *echo.Group, h *handler.TicketHandler) {
	g.GET("/tickets", h.List)
	g.GET("/tickets/show/:showId", h.ListByShow)
	g.GET("/tickets/:id", h.Get)
	g.POST("/tickets", h.Book)
	g.PUT("/tickets/:id", h.Update)
	g.DELETE("/tickets/:id", h.Cancel)
}

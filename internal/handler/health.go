// Package handler contains the HTTP handlers of the box office API.
// Handlers decode requests, call the services and translate service
// errors into status codes; they hold no business rules.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a liveness endpoint for load balancers and monitoring.  It
// returns a plain text "ok" with a 200 status.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Index handles GET / and lists the resource collections.
func Index(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Theatre Ticket Management System API",
		"endpoints": echo.Map{
			"shows":     "/api/shows",
			"tickets":   "/api/tickets",
			"customers": "/api/customers",
		},
	})
}

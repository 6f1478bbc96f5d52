package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/service"
)

// writeError maps a service error onto a status code and a
// {"message": ...} body.  Unknown errors become 500 and are logged.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var (
		nf     *service.NotFoundError
		ve     *service.ValidationError
		capErr *service.CapacityError
	)
	switch {
	case errors.Is(err, errInvalidBody):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, echo.Map{"message": nf.Error()})
	case errors.As(err, &capErr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message":        capErr.Error(),
			"availableSeats": capErr.Available,
		})
	case errors.As(err, &ve):
		body := echo.Map{"message": ve.Message}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"message": "Cannot delete: tickets still reference this record"})
	default:
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
	}
}

var errInvalidBody = errors.New("invalid request body")

// bind decodes the request body into v.  Path and query parameters
// are not bound.
func bind(c echo.Context, v any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return errInvalidBody
	}
	return nil
}

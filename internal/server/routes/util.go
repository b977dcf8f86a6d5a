// Package routes holds the HTTP handlers for the knowledge-graph API.
package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/pkg/leaselock"
	"github.com/lattice-kb/lattice/pkg/logger"
	"github.com/lattice-kb/lattice/pkg/store"
)

// respondError maps storage sentinels to HTTP statuses. Unknown errors
// log and return 500 without leaking detail.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, leaselock.ErrBusy):
		return c.JSON(http.StatusConflict, map[string]string{"error": "maintenance already running for this scope"})
	case errors.Is(err, store.ErrDependency):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		logger.Error("[API] Request failed", "path", c.Path(), "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}

// bindAndValidate binds the request body into data and runs validation.
func bindAndValidate(c echo.Context, data any) error {
	if err := c.Bind(data); err != nil {
		return err
	}
	return c.Validate(data)
}

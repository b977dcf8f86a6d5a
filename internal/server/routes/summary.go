package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/internal/server/middleware"
)

// GetSummaryHandler returns the scope's stored context summary.
func GetSummaryHandler(c echo.Context) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	app := c.(*middleware.AppContext).App
	result, err := app.Summaries.Get(c.Request().Context(), scope)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// GenerateSummaryHandler recomputes the scope's summary from the graph.
func GenerateSummaryHandler(c echo.Context) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	app := c.(*middleware.AppContext).App
	result, err := app.Summaries.Generate(c.Request().Context(), scope)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// DeleteSummaryHandler drops the scope's summary if it has one.
func DeleteSummaryHandler(c echo.Context) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	app := c.(*middleware.AppContext).App
	existed, err := app.Summaries.Delete(c.Request().Context(), scope)
	if err != nil {
		return respondError(c, err)
	}
	if !existed {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No summary for this scope"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Summary deleted"})
}

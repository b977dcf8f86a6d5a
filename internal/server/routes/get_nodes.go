package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/pkg/store"
)

// GetNodeHandler fetches one node by ID.
func GetNodeHandler(c echo.Context) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	app := c.(*middleware.AppContext).App
	node, err := app.Store.GetNode(c.Request().Context(), scope, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, node)
}

// GetNodeByKeyHandler fetches one node by its merge key.
func GetNodeByKeyHandler(c echo.Context) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	app := c.(*middleware.AppContext).App
	node, err := app.Store.GetNodeByKey(c.Request().Context(), scope, c.Param("key"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, node)
}

// GetNeighboursHandler lists a node's active outgoing edges, best first.
func GetNeighboursHandler(c echo.Context) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	minWeight, _ := strconv.ParseFloat(c.QueryParam("min_weight"), 64)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	app := c.(*middleware.AppContext).App
	edges, err := app.Store.Neighbours(c.Request().Context(), scope, c.Param("id"), store.NeighbourQuery{
		MinWeight: minWeight,
		Limit:     limit,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"edges": edges})
}

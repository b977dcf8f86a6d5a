package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/pkg/common"
)

// UpsertEdgeHandler merges one edge observation into the scope's graph.
// Re-observing an archived edge brings it back to active.
func UpsertEdgeHandler(c echo.Context) error {
	type upsertEdgeBody struct {
		SrcID      string            `json:"src_id" validate:"required"`
		DstID      string            `json:"dst_id" validate:"required"`
		RelType    string            `json:"rel_type" validate:"required"`
		Weight     *float64          `json:"weight"`
		Properties common.Properties `json:"properties"`
	}

	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	data := new(upsertEdgeBody)
	if err := bindAndValidate(c, data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	id, err := app.Store.UpsertEdge(ctx, common.EdgeUpsert{
		Scope:      scope,
		SrcID:      data.SrcID,
		DstID:      data.DstID,
		RelType:    data.RelType,
		Weight:     data.Weight,
		Properties: data.Properties,
	})
	if err != nil {
		return respondError(c, err)
	}

	edge, err := app.Store.GetEdge(ctx, scope, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, edge)
}

// GetEdgeHandler fetches one edge by ID.
func GetEdgeHandler(c echo.Context) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	app := c.(*middleware.AppContext).App
	edge, err := app.Store.GetEdge(c.Request().Context(), scope, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, edge)
}

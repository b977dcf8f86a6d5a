package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/pkg/common"
)

// UpsertNodeHandler merges one node observation into the scope's graph.
func UpsertNodeHandler(c echo.Context) error {
	type upsertNodeBody struct {
		NodeKey     string              `json:"node_key" validate:"required"`
		Type        common.ArtifactType `json:"type" validate:"required"`
		Name        string              `json:"name" validate:"required"`
		Description string              `json:"description"`
		Properties  common.Properties   `json:"properties"`
		Embedding   []float32           `json:"embedding"`
		Status      common.NodeStatus   `json:"status"`
	}

	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	data := new(upsertNodeBody)
	if err := bindAndValidate(c, data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	id, err := app.Store.UpsertNode(ctx, common.NodeUpsert{
		Scope:       scope,
		NodeKey:     data.NodeKey,
		Type:        data.Type,
		Name:        data.Name,
		Description: data.Description,
		Properties:  data.Properties,
		Embedding:   data.Embedding,
		Status:      data.Status,
	})
	if err != nil {
		return respondError(c, err)
	}

	node, err := app.Store.GetNode(ctx, scope, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, node)
}

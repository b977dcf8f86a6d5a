package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/pkg/common"
)

type evidenceBody struct {
	ChunkID string   `json:"chunk_id" validate:"required"`
	Quote   string   `json:"quote"`
	Score   *float64 `json:"score"`
}

// AddNodeEvidenceHandler records a chunk as evidence for a node. The same
// (node, chunk) pair updates in place instead of duplicating.
func AddNodeEvidenceHandler(c echo.Context) error {
	return addEvidence(c, true)
}

// AddEdgeEvidenceHandler records a chunk as evidence for an edge.
func AddEdgeEvidenceHandler(c echo.Context) error {
	return addEvidence(c, false)
}

func addEvidence(c echo.Context, forNode bool) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	data := new(evidenceBody)
	if err := bindAndValidate(c, data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	in := common.EvidenceUpsert{
		Scope:     scope,
		SubjectID: c.Param("id"),
		ChunkID:   data.ChunkID,
		Quote:     data.Quote,
		Score:     data.Score,
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	var id string
	if forNode {
		id, err = app.Store.AddNodeEvidence(ctx, in)
	} else {
		id, err = app.Store.AddEdgeEvidence(ctx, in)
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"id": id})
}

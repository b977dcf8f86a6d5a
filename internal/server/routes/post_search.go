package routes

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/store"
)

// SearchNodesHandler ranks the scope's active embedded nodes against a
// query. Callers pass either free text (embedded server-side) or a raw
// embedding. With expand=true, results grow by one hop of strong edges.
func SearchNodesHandler(c echo.Context) error {
	type searchBody struct {
		Query     string    `json:"query"`
		Embedding []float32 `json:"embedding"`
		TopK      int       `json:"top_k"`

		Expand        bool     `json:"expand"`
		MaxNeighbours int      `json:"max_neighbours"`
		MinEdgeWeight *float64 `json:"min_edge_weight"`
	}

	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	data := new(searchBody)
	if err := bindAndValidate(c, data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if data.Query == "" && len(data.Embedding) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query or embedding required"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	embedding := data.Embedding
	if len(embedding) == 0 {
		embedding, err = app.Embeddings.GenerateEmbedding(ctx, data.Query)
		if err != nil {
			return respondError(c, fmt.Errorf("%w: failed to embed query: %v", store.ErrDependency, err))
		}
	}

	if !data.Expand {
		hits, err := app.Store.SearchNodes(ctx, scope, embedding, data.TopK)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"results": hits})
	}

	cfg := kg.DefaultRetrieveConfig()
	if data.TopK > 0 {
		cfg.TopK = data.TopK
	}
	if data.MaxNeighbours > 0 {
		cfg.MaxNeighbours = data.MaxNeighbours
	}
	if data.MinEdgeWeight != nil {
		cfg.MinEdgeWeight = *data.MinEdgeWeight
	}

	retriever := kg.NewRetriever(app.Store, app.Embeddings)
	results, err := retriever.RetrieveByEmbedding(ctx, scope, embedding, cfg)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

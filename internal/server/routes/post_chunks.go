package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/pkg/common"
)

// UpsertChunkHandler refreshes or creates one chunk of a document.
// Identity is (document, chunk_index); optional fields left out keep
// their stored values.
func UpsertChunkHandler(c echo.Context) error {
	type upsertChunkBody struct {
		DocumentID    string         `json:"document_id" validate:"required"`
		ChunkIndex    int            `json:"chunk_index"`
		Content       string         `json:"content" validate:"required"`
		PageStart     *int           `json:"page_start"`
		PageEnd       *int           `json:"page_end"`
		ContentTokens *int           `json:"content_tokens"`
		Metadata      map[string]any `json:"metadata"`
		Embedding     []float32      `json:"embedding"`
	}

	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	data := new(upsertChunkBody)
	if err := bindAndValidate(c, data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	id, err := app.Store.UpsertChunk(ctx, common.ChunkUpsert{
		TenantID:      scope.TenantID,
		DocumentID:    data.DocumentID,
		ChunkIndex:    data.ChunkIndex,
		Content:       data.Content,
		PageStart:     data.PageStart,
		PageEnd:       data.PageEnd,
		ContentTokens: data.ContentTokens,
		Metadata:      data.Metadata,
		Embedding:     data.Embedding,
	})
	if err != nil {
		return respondError(c, err)
	}

	chunk, err := app.Store.GetChunk(ctx, scope.TenantID, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, chunk)
}

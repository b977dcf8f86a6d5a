package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/pkg/store"
)

// ListChunksHandler pages through the scope's embedded chunks, optionally
// narrowed to one document.
func ListChunksHandler(c echo.Context) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	app := c.(*middleware.AppContext).App
	chunks, err := app.Store.FetchChunks(c.Request().Context(), store.ChunkQuery{
		TenantID:   scope.TenantID,
		ClientID:   scope.ClientID,
		DocumentID: c.QueryParam("document_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"chunks": chunks})
}

// GetChunkHandler fetches one chunk by ID.
func GetChunkHandler(c echo.Context) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	app := c.(*middleware.AppContext).App
	chunk, err := app.Store.GetChunk(c.Request().Context(), scope.TenantID, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, chunk)
}

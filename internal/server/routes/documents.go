package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/logger"
)

// CreateDocumentHandler registers a document row directly, for callers
// that manage their own chunking.
func CreateDocumentHandler(c echo.Context) error {
	type createDocumentBody struct {
		SourceType string         `json:"source_type" validate:"required"`
		SourceURI  string         `json:"source_uri"`
		Title      string         `json:"title"`
		Metadata   map[string]any `json:"metadata"`
	}

	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	data := new(createDocumentBody)
	if err := bindAndValidate(c, data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	document, err := app.Store.CreateDocument(c.Request().Context(), common.DocumentInput{
		Scope:      scope,
		SourceType: data.SourceType,
		SourceURI:  data.SourceURI,
		Title:      data.Title,
		Metadata:   data.Metadata,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, document)
}

// GetDocumentHandler fetches one document by ID.
func GetDocumentHandler(c echo.Context) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	app := c.(*middleware.AppContext).App
	document, err := app.Store.GetDocument(c.Request().Context(), scope.TenantID, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, document)
}

// DeleteDocumentHandler removes a document, its chunks and the evidence
// rows pointing at them.
func DeleteDocumentHandler(c echo.Context) error {
	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	id := c.Param("id")

	if err := app.Store.DeleteDocument(ctx, scope.TenantID, id); err != nil {
		return respondError(c, err)
	}

	logger.Info("[API] Deleted document", "tenant", scope.TenantID, "document", id)

	return c.JSON(http.StatusOK, map[string]string{"message": "Document deleted"})
}

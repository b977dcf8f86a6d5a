package routes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/lattice-kb/lattice/internal/queue"
	"github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/internal/storage"
	"github.com/lattice-kb/lattice/pkg/ingest"
	"github.com/lattice-kb/lattice/pkg/logger"
)

// IngestFileHandler accepts a multipart upload, archives it to the object
// store and enqueues the ingest run.
func IngestFileHandler(c echo.Context) error {
	type ingestResponse struct {
		Message string `json:"message"`
		FileKey string `json:"file_key,omitempty"`
	}

	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ingestResponse{Message: "Missing file upload"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ingestResponse{Message: "Unreadable file upload"})
	}
	defer src.Close()

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	key, err := gonanoid.New()
	if err != nil {
		return respondError(c, err)
	}

	objectKey, err := storage.PutFile(
		ctx, app.S3,
		scope.TenantID+"/"+scope.ClientID,
		fileHeader.Filename, key,
		src,
	)
	if err != nil {
		return respondError(c, err)
	}

	maxTokens, _ := strconv.Atoi(c.FormValue("max_tokens"))
	msg := queue.IngestMsg{
		TenantID:   scope.TenantID,
		ClientID:   scope.ClientID,
		SourceType: ingest.SourceFile,
		FileKey:    objectKey,
		FileName:   fileHeader.Filename,
		Title:      c.FormValue("title"),
		MaxTokens:  maxTokens,
		BuildGraph: c.FormValue("build_graph") != "false",
		PruneAfter: c.FormValue("prune_after") == "true",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return respondError(c, err)
	}
	if err := queue.PublishFIFO(app.Queue, queue.IngestQueue, body); err != nil {
		return respondError(c, err)
	}

	logger.Info("[API] Queued file ingest",
		"tenant", scope.TenantID, "client", scope.ClientID, "file", objectKey)

	return c.JSON(http.StatusAccepted, ingestResponse{
		Message: "Ingest queued",
		FileKey: objectKey,
	})
}

// IngestWebHandler enqueues a web page ingest.
func IngestWebHandler(c echo.Context) error {
	type ingestWebBody struct {
		URL        string         `json:"url" validate:"required,url"`
		Title      string         `json:"title"`
		Metadata   map[string]any `json:"metadata"`
		MaxTokens  int            `json:"max_tokens"`
		BuildGraph *bool          `json:"build_graph"`
		PruneAfter bool           `json:"prune_after"`
	}

	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	data := new(ingestWebBody)
	if err := bindAndValidate(c, data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	buildGraph := true
	if data.BuildGraph != nil {
		buildGraph = *data.BuildGraph
	}

	msg := queue.IngestMsg{
		TenantID:   scope.TenantID,
		ClientID:   scope.ClientID,
		SourceType: ingest.SourceWeb,
		SourceURI:  data.URL,
		Title:      data.Title,
		Metadata:   data.Metadata,
		MaxTokens:  data.MaxTokens,
		BuildGraph: buildGraph,
		PruneAfter: data.PruneAfter,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return respondError(c, err)
	}

	app := c.(*middleware.AppContext).App
	if err := queue.PublishFIFO(app.Queue, queue.IngestQueue, body); err != nil {
		return respondError(c, err)
	}

	logger.Info("[API] Queued web ingest",
		"tenant", scope.TenantID, "client", scope.ClientID, "url", data.URL)

	return c.JSON(http.StatusAccepted, map[string]string{"message": "Ingest queued"})
}

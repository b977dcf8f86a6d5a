package server

import (
	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Ingest
	apiRoutes.POST("/ingest/file", routes.IngestFileHandler, middleware.RequirePermission("ingest.run"))
	apiRoutes.POST("/ingest/web", routes.IngestWebHandler, middleware.RequirePermission("ingest.run"))

	// Documents and chunks
	apiRoutes.POST("/documents", routes.CreateDocumentHandler, middleware.RequirePermission("ingest.run"))
	apiRoutes.GET("/documents/:id", routes.GetDocumentHandler, middleware.RequirePermission("document.view"))
	apiRoutes.DELETE("/documents/:id", routes.DeleteDocumentHandler, middleware.RequirePermission("document.delete"))
	apiRoutes.POST("/chunks", routes.UpsertChunkHandler, middleware.RequirePermission("ingest.run"))
	apiRoutes.GET("/chunks", routes.ListChunksHandler, middleware.RequirePermission("document.view"))
	apiRoutes.GET("/chunks/:id", routes.GetChunkHandler, middleware.RequirePermission("document.view"))

	// Knowledge graph
	apiRoutes.POST("/kg/nodes", routes.UpsertNodeHandler, middleware.RequirePermission("kg.write"))
	apiRoutes.GET("/kg/nodes/:id", routes.GetNodeHandler, middleware.RequirePermission("kg.read"))
	apiRoutes.GET("/kg/nodes/key/:key", routes.GetNodeByKeyHandler, middleware.RequirePermission("kg.read"))
	apiRoutes.GET("/kg/nodes/:id/neighbours", routes.GetNeighboursHandler, middleware.RequirePermission("kg.read"))
	apiRoutes.POST("/kg/nodes/:id/evidence", routes.AddNodeEvidenceHandler, middleware.RequirePermission("kg.write"))
	apiRoutes.POST("/kg/edges", routes.UpsertEdgeHandler, middleware.RequirePermission("kg.write"))
	apiRoutes.GET("/kg/edges/:id", routes.GetEdgeHandler, middleware.RequirePermission("kg.read"))
	apiRoutes.POST("/kg/edges/:id/evidence", routes.AddEdgeEvidenceHandler, middleware.RequirePermission("kg.write"))
	apiRoutes.POST("/kg/search", routes.SearchNodesHandler, middleware.RequirePermission("kg.read"))
	apiRoutes.POST("/kg/prune", routes.PruneHandler, middleware.RequirePermission("kg.maintain"))

	// Context summary
	apiRoutes.GET("/summary", routes.GetSummaryHandler, middleware.RequirePermission("summary.view"))
	apiRoutes.POST("/summary", routes.GenerateSummaryHandler, middleware.RequirePermission("summary.write"))
	apiRoutes.DELETE("/summary", routes.DeleteSummaryHandler, middleware.RequirePermission("summary.write"))
}

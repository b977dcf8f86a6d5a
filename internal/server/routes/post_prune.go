package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/internal/queue"
	"github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/logger"
)

// PruneHandler runs graph maintenance for the scope. Synchronous by
// default; async=true enqueues the run for the worker instead.
func PruneHandler(c echo.Context) error {
	type pruneBody struct {
		Options common.PruneOptions `json:"options"`
		Async   bool                `json:"async"`
	}

	scope, err := middleware.ScopeFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	data := new(pruneBody)
	if err := bindAndValidate(c, data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App

	if data.Async {
		body, err := json.Marshal(queue.PruneMsg{
			TenantID: scope.TenantID,
			ClientID: scope.ClientID,
			Options:  data.Options,
		})
		if err != nil {
			return respondError(c, err)
		}
		if err := queue.PublishFIFO(app.Queue, queue.PruneQueue, body); err != nil {
			return respondError(c, err)
		}
		logger.Info("[API] Queued prune",
			"tenant", scope.TenantID, "client", scope.ClientID)
		return c.JSON(http.StatusAccepted, map[string]string{"message": "Prune queued"})
	}

	result, err := app.Maintainer.Prune(c.Request().Context(), scope, data.Options)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

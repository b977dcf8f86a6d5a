package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/lattice-kb/lattice/pkg/ai"
	"github.com/lattice-kb/lattice/pkg/ingest"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/store"
	"github.com/lattice-kb/lattice/pkg/summary"
)

// AppUser is the authenticated caller. TenantID comes from the token;
// master-key callers pick their tenant per request.
type AppUser struct {
	Subject     string
	TenantID    string
	Role        string
	Permissions []string
}

// App bundles the process-wide dependencies handlers reach through the
// request context.
type App struct {
	DBConn     *pgxpool.Pool
	Queue      *amqp091.Channel
	Key        *keyfunc.Keyfunc
	S3         *s3.Client
	Store      store.Storage
	Embeddings ai.EmbeddingClient
	Chat       ai.ChatClient
	Pipeline   *ingest.Pipeline
	Maintainer *kg.Maintainer
	Summaries  *summary.Generator

	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

// AppContextMiddleware attaches the shared App to every request.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app, nil})
		}
	}
}

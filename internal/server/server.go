// Package server boots the HTTP API: database, migrations, queues, object
// store and AI clients, then the echo router.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/lattice-kb/lattice/internal/queue"
	mid "github.com/lattice-kb/lattice/internal/server/middleware"
	"github.com/lattice-kb/lattice/internal/storage"
	"github.com/lattice-kb/lattice/internal/util"
	"github.com/lattice-kb/lattice/pkg/ai"
	oai "github.com/lattice-kb/lattice/pkg/ai/ollama"
	gai "github.com/lattice-kb/lattice/pkg/ai/openai"
	"github.com/lattice-kb/lattice/pkg/ingest"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/leaselock"
	"github.com/lattice-kb/lattice/pkg/logger"
	pgstore "github.com/lattice-kb/lattice/pkg/store/pgx"
	"github.com/lattice-kb/lattice/pkg/summary"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// NewAIClients builds the embedding and chat clients selected by
// AI_ADAPTER ("openai" by default, "ollama" as the alternative).
func NewAIClients() (ai.EmbeddingClient, ai.ChatClient) {
	switch util.GetEnv("AI_ADAPTER") {
	case "ollama":
		client, err := oai.NewClient(oai.NewClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 2)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client, client
	default:
		client := gai.NewClient(gai.NewClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentEmbeddingRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
		})
		return client, client
	}
}

// RunMigrations applies the SQL migrations before the server accepts
// traffic.
func RunMigrations() {
	m, err := migrate.New(
		util.GetEnvString("MIGRATIONS_URL", "file://migrations"),
		util.GetEnv("DATABASE_URL"),
	)
	if err != nil {
		logger.Fatal("Failed to load migrations", "err", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("Failed to run migrations", "err", err)
	}
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	jwksUrl := util.GetEnv("AUTH_URL") + "/jwks"
	k, err := keyfunc.NewDefault([]string{jwksUrl})
	if err != nil {
		logger.Fatal("Failed to load jwks keys", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	RunMigrations()

	poolCfg, err := pgxpool.ParseConfig(util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Invalid DATABASE_URL", "err", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	conn, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	s3 := storage.NewS3Client(ctx)

	embeddings, chat := NewAIClients()

	st := pgstore.New(conn)
	locks := leaselock.New(conn, leaselock.Options{})
	maintainer := kg.NewMaintainer(st, locks)
	pipeline := ingest.NewPipeline(ingest.NewPipelineParams{
		Store:      st,
		Embeddings: embeddings,
		S3:         s3,
		Maintainer: maintainer,
	})
	summaries := summary.NewGenerator(summary.NewGeneratorParams{
		Store:      st,
		Chat:       chat,
		Embeddings: embeddings,
	})

	app := &mid.App{
		DBConn:       conn,
		Queue:        ch,
		Key:          &k,
		S3:           s3,
		Store:        st,
		Embeddings:   embeddings,
		Chat:         chat,
		Pipeline:     pipeline,
		Maintainer:   maintainer,
		Summaries:    summaries,
		MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1G"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

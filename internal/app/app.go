package app

import (
	"context"
	"database/sql"
	"log/slog"

	_ "github.com/lib/pq"

	"HealthMetricsETL/internal/config"
	"HealthMetricsETL/internal/domain"
	"HealthMetricsETL/internal/infrastructure/diseasesh"
	"HealthMetricsETL/internal/infrastructure/storage"
	"HealthMetricsETL/internal/logging"
	"HealthMetricsETL/internal/query"
	"HealthMetricsETL/internal/usecase"
)

// Application wires configuration to adapters and use cases.
type Application struct {
	cfg        config.Config
	db         *sql.DB
	repository *storage.PostgresRepository
	pipeline   *usecase.Pipeline
}

// New builds a runnable application instance and verifies the database is
// reachable so connectivity problems surface before any command runs.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, &domain.StorageError{Kind: domain.StorageConnectionFailure, Op: "open database", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &domain.StorageError{Kind: domain.StorageConnectionFailure, Op: "ping database", Err: err}
	}

	catalog := query.NewCatalog()
	repository := storage.NewPostgresRepository(db, catalog, baseLogger.With("component", "storage"))
	source := diseasesh.NewClient(cfg.API, baseLogger.With("component", "fetcher"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Repository: repository,
		Catalog:    catalog,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:        cfg,
		db:         db,
		repository: repository,
		pipeline:   pipeline,
	}, nil
}

// Pipeline exposes the ingest/query orchestrator.
func (a *Application) Pipeline() *usecase.Pipeline { return a.pipeline }

// Repository exposes table lifecycle operations.
func (a *Application) Repository() *storage.PostgresRepository { return a.repository }

// Close releases the database connection.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/maxsupply/internal/config"
	httpcontroller "github.com/vadim/maxsupply/internal/controller/http"
	"github.com/vadim/maxsupply/internal/database"
	capacitydao "github.com/vadim/maxsupply/internal/domain/capacity/dao"
	capacitypolicy "github.com/vadim/maxsupply/internal/domain/capacity/policy"
	"github.com/vadim/maxsupply/internal/domain/capacity/scheduler"
	capacityservice "github.com/vadim/maxsupply/internal/domain/capacity/service"
	worksheetdao "github.com/vadim/maxsupply/internal/domain/worksheet/dao"
	worksheetpolicy "github.com/vadim/maxsupply/internal/domain/worksheet/policy"
	worksheetservice "github.com/vadim/maxsupply/internal/domain/worksheet/service"
	"github.com/vadim/maxsupply/internal/httpx/upstream/backend"
	"github.com/vadim/maxsupply/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	// Infrastructure
	pool    *pgxpool.Pool
	storage *storage.S3Storage

	// Domain policies (interfaces for HTTP handlers)
	capacityPolicy  *capacitypolicy.Policy
	worksheetPolicy *worksheetpolicy.Policy

	// Background recompute of the default dashboard
	refresher *scheduler.Refresher
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))

	// Initialize router with middleware
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	if err := app.initDomains(ctx); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	if err := app.registerRoutes(); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("registering routes: %w", err)
	}

	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// initInfrastructure connects to PostgreSQL and object storage
func (a *App) initInfrastructure(ctx context.Context) error {
	if a.cfg.Database.PostgresDSN != "" {
		pool, err := database.NewPostgresPool(ctx, a.cfg.Database.PostgresDSN, database.PoolConfig{
			MaxConns:     a.cfg.Database.MaxConns,
			MinConns:     a.cfg.Database.MinConns,
			ConnLifetime: a.cfg.Database.ConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		a.pool = pool
	}

	if a.cfg.S3.Enabled {
		s3Storage, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:        a.cfg.S3.Endpoint,
			AccessKeyID:     a.cfg.S3.AccessKeyID,
			SecretAccessKey: a.cfg.S3.SecretAccessKey,
			Bucket:          a.cfg.S3.Bucket,
			Region:          a.cfg.S3.Region,
			PublicURL:       a.cfg.S3.PublicURL,
		})
		if err != nil {
			return fmt.Errorf("creating s3 storage: %w", err)
		}
		a.storage = s3Storage
	}

	return nil
}

// initDomains initializes domain layers (DAO, Service, Policy)
func (a *App) initDomains(ctx context.Context) error {
	jobs, err := a.jobRepository()
	if err != nil {
		return err
	}

	aggregator, err := capacityservice.NewAggregator(a.cfg.Capacity.Daily(), a.logger)
	if err != nil {
		return fmt.Errorf("creating aggregator: %w", err)
	}
	capacitySvc := capacityservice.New(jobs, aggregator)

	a.capacityPolicy = capacitypolicy.New(capacitySvc)

	if a.cfg.Refresh.Enabled {
		a.refresher = scheduler.New(capacitySvc, scheduler.Config{
			Debounce: a.cfg.Refresh.Debounce,
			Interval: a.cfg.Refresh.Interval,
		}, a.logger)
		a.capacityPolicy.WithRefresher(a.refresher)
	}

	if a.storage != nil {
		a.capacityPolicy.WithSnapshotStore(&snapshotStoreAdapter{storage: a.storage})
	}

	// Worksheets live in PostgreSQL only
	if a.pool != nil {
		worksheetSvc := worksheetservice.New(
			worksheetdao.NewWorksheetPostgres(a.pool),
			worksheetdao.NewPatternSizePostgres(a.pool),
		)
		a.worksheetPolicy = worksheetpolicy.New(worksheetSvc)
	} else {
		a.logger.Warn("worksheet endpoints disabled, DATABASE_URL is not set")
	}

	return nil
}

// jobRepository picks the job store configured by JOBS_SOURCE
func (a *App) jobRepository() (capacityservice.JobRepository, error) {
	switch a.cfg.Jobs.Source {
	case config.JobsSourcePostgres:
		if a.pool == nil {
			return nil, fmt.Errorf("jobs source %q requires DATABASE_URL", a.cfg.Jobs.Source)
		}
		return capacitydao.NewJobPostgres(a.pool), nil
	case config.JobsSourceBackend:
		return backend.New(a.cfg.Backend.BaseURL,
			backend.WithTimeout(a.cfg.Backend.Timeout),
			backend.WithToken(a.cfg.Backend.Token),
		), nil
	default:
		return nil, fmt.Errorf("unknown jobs source %q", a.cfg.Jobs.Source)
	}
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() error {
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	// Swagger UI documentation
	swaggerHandler, err := httpcontroller.NewSwaggerHandler("MaxSupply Capacity API", OpenAPISpec)
	if err != nil {
		return err
	}
	swaggerHandler.RegisterRoutes(a.router)

	a.router.Route("/api/v1", func(r chi.Router) {
		httpcontroller.NewCapacityHandler(a.capacityPolicy, a.logger).RegisterRoutes(r)

		if a.worksheetPolicy != nil {
			httpcontroller.NewWorksheetHandler(a.worksheetPolicy, a.logger).RegisterRoutes(r)
		}
	})

	return nil
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler reports ready once the database answers
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if a.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.pool.Ping(ctx); err != nil {
			a.logger.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	if a.refresher != nil {
		a.refresher.Start(ctx)
	}

	// Channel to receive errors from server
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address(), "jobs_source", a.cfg.Jobs.Source)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if a.refresher != nil {
		a.refresher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	a.closeInfrastructure()

	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// snapshotStoreAdapter adapts storage.S3Storage to capacitypolicy.SnapshotStore
type snapshotStoreAdapter struct {
	storage *storage.S3Storage
}

func (a *snapshotStoreAdapter) PutSnapshot(ctx context.Context, in capacitypolicy.PutSnapshotInput) (*capacitypolicy.PutSnapshotOutput, error) {
	out, err := a.storage.PutDocument(ctx, storage.PutDocumentInput{
		Prefix:      in.Prefix,
		Body:        in.Body,
		ContentType: in.ContentType,
	})
	if err != nil {
		return nil, err
	}
	return &capacitypolicy.PutSnapshotOutput{
		Key: out.Key,
		URL: out.URL,
	}, nil
}

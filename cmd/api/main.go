package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"homeguard/internal/auth"
	"homeguard/internal/blobstore"
	"homeguard/internal/config"
	"homeguard/internal/database"
	"homeguard/internal/database/migration"
	handlers "homeguard/internal/http/handler"
	"homeguard/internal/http/middleware"
	"homeguard/internal/logging"
	"homeguard/internal/notifier"
	tracing "homeguard/internal/otel"
	"homeguard/internal/repository"
	"homeguard/internal/repository/memory"
	"homeguard/internal/repository/postgres"
	"homeguard/internal/service"
	"homeguard/internal/storage"
)

type repos struct {
	users  repository.UserRepository
	ledger repository.LedgerRepository
	blobs  repository.BlobRepository
	db     database.Pinger
	close  func() error
}

// alwaysUp stands in for the database ping when records live in memory.
type alwaysUp struct{}

func (alwaysUp) PingContext(context.Context) error { return nil }

func openRepos(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*repos, error) {
	if cfg.Driver == "memory" {
		log.Warn("database_in_memory", "component", "database")
		return &repos{
			users:  memory.NewUserRepo(),
			ledger: memory.NewLedgerRepo(),
			blobs:  memory.NewBlobRepo(),
			db:     alwaysUp{},
			close:  func() error { return nil },
		}, nil
	}

	db, err := database.NewPostgres(cfg)
	if err != nil {
		return nil, err
	}
	if err := migration.EnsureMigrated(ctx, db, log, cfg.Host); err != nil {
		_ = db.Close()
		return nil, err
	}
	return postgresRepos(db), nil
}

func postgresRepos(db *sql.DB) *repos {
	return &repos{
		users:  postgres.NewUserPostgres(db),
		ledger: postgres.NewLedgerPostgres(db),
		blobs:  postgres.NewBlobPostgres(db),
		db:     db,
		close:  db.Close,
	}
}

// storageConnector returns the dial function retried until blob storage is up.
func storageConnector(cfg config.StorageConfig) func(context.Context) (storage.Storage, error) {
	switch cfg.Driver {
	case "memory":
		return func(context.Context) (storage.Storage, error) { return storage.NewMemory(), nil }
	case "s3":
		client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
		return func(ctx context.Context) (storage.Storage, error) { return storage.NewS3(ctx, cfg, client) }
	default:
		transport := otelhttp.NewTransport(http.DefaultTransport)
		return func(ctx context.Context) (storage.Storage, error) { return storage.NewMinIO(ctx, cfg.MinIO, transport) }
	}
}

// @title HomeGuard API
// @version 1.0
// @description Accounts, per-user file storage and unknown-face alerts for a home camera.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.TimeLocation(), logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logger)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	rs, err := openRepos(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer rs.close()

	// The API serves before blob storage is reachable; file routes answer 503
	// until the bucket is attached.
	bucket := blobstore.New(rs.blobs, cfg.Blob.ChunkSize, cfg.Blob.FindBatch, logger)
	go func() {
		if err := bucket.AttachWhenReady(ctx, cfg.Storage.InitRetryInterval, storageConnector(cfg.Storage)); err != nil {
			logger.Warn("blob_storage_attach_abandoned", "error_message", err.Error())
		}
	}()

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("failed to initialize tokens: %v", err)
	}
	mailer, err := notifier.NewSMTP(cfg.SMTP, logger)
	if err != nil {
		log.Fatalf("failed to initialize notifier: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    64 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(metrics.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:       rs.db,
		Blobs:    bucket,
		Tokens:   tokens,
		Users:    service.NewUserService(rs.users, rs.ledger, tokens),
		Files:    service.NewFileService(bucket, rs.ledger, logger),
		Alerts:   service.NewAlertService(mailer, cfg.Alert),
		Gatherer: reg,
	})

	go func() {
		<-ctx.Done()
		logger.Info("server_shutdown", "status", "in_progress")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("server_shutdown_failed", "error_message", err.Error())
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("server_listening", "addr", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Error("tracing_shutdown_failed", "error_message", err.Error())
	}
}

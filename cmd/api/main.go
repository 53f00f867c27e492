package main

import (
	"context"
	"log"
	"strings"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ectdforge/docs"
	"ectdforge/internal/config"
	"ectdforge/internal/database"
	"ectdforge/internal/export"
	handlers "ectdforge/internal/http/handler"
	"ectdforge/internal/http/middleware"
	"ectdforge/internal/logger"
	"ectdforge/internal/otel"
	"ectdforge/internal/repository/postgres"
	"ectdforge/internal/service"
	"ectdforge/internal/storage"
	"ectdforge/internal/validation"
)

// @title eCTD Forge API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	shutdownTracing, err := otel.Init(context.Background(), zlog)
	if err != nil {
		zlog.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	vault, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		zlog.Fatal("failed to initialize object storage", zap.Error(err))
	}

	repo := postgres.NewSubmissionPostgres(db, zlog)
	if err := repo.EnsureReady(context.Background()); err != nil {
		zlog.Fatal("submission store not ready", zap.Error(err))
	}

	subSvc := service.NewSubmissionService(repo, vault, zlog)
	validator := validation.NewEngine(repo, vault, zlog)
	exporter := export.NewPipeline(repo, vault, validator, zlog, cfg.Export)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(zlog))

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		zlog.Fatal("failed to register metrics", zap.Error(err))
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.RegisterRoutes(app, repo, subSvc, validator, exporter)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port
	zlog.Info("starting server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

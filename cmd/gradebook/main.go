package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gradebook/internal/config"
	"gradebook/internal/http/apidoc"
	handlers "gradebook/internal/http/handler"
	"gradebook/internal/http/middleware"
	"gradebook/internal/lifecycle"
	"gradebook/internal/logger"
	"gradebook/internal/metrics"
	tracing "gradebook/internal/otel"
	"gradebook/internal/service"
	"gradebook/internal/storage"
)

// @title Gradebook API
// @version 1.0
// @BasePath /
func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.Location())

	if err := run(cfg, log); err != nil {
		log.Log(logger.Fields{
			"component":     "main",
			"event":         "fatal",
			"status":        "error",
			"error_message": err.Error(),
		})
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storeMetrics, err := metrics.NewStorage(reg)
	if err != nil {
		return fmt.Errorf("register storage metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	lc := lifecycle.New(cfg.Storage,
		lifecycle.WithLogger(log),
		lifecycle.WithObserver(storeMetrics),
	)
	if cfg.RevertSteps > 0 {
		_, err := lc.RevertMigrations(ctx, cfg.RevertSteps)
		return err
	}

	var objStore storage.Storage
	if cfg.BackupEnabled {
		objStore, err = storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
	}
	if cfg.RestoreKey != "" {
		if objStore == nil {
			return fmt.Errorf("restore %s: backups are disabled", cfg.RestoreKey)
		}
		restored, err := service.Restore(ctx, objStore, cfg.Storage, cfg.RestoreKey)
		if err != nil {
			return fmt.Errorf("restore %s: %w", cfg.RestoreKey, err)
		}
		log.Log(logger.Fields{
			"component": "main",
			"event":     "backup_restored",
			"status":    "success",
			"key":       restored.Key,
			"size":      restored.Size,
		})
	}

	if _, err := lc.InitializeStorage(ctx); err != nil {
		return err
	}
	defer lc.Close()

	deps := handlers.Deps{
		Storage:   lc,
		Gradebook: service.NewGradebookService(lc),
		Gatherer:  reg,
	}
	if objStore != nil {
		deps.Backups = service.NewBackupService(objStore, lc, service.WithRetention(cfg.BackupRetain))
	}

	apidoc.SwaggerInfo.Host = cfg.AppHost

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, deps)

	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := ":" + cfg.Port
	log.Log(logger.Fields{
		"component":   "main",
		"event":       "server_start",
		"addr":        addr,
		"backups":     deps.Backups != nil,
		"instance_id": lc.InstanceID(),
	})
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

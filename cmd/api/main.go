package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/itop-report/internal/api/http"
	"github.com/spec-kit/itop-report/internal/api/http/handlers"
	"github.com/spec-kit/itop-report/internal/archive"
	"github.com/spec-kit/itop-report/internal/config"
	"github.com/spec-kit/itop-report/internal/domain"
	"github.com/spec-kit/itop-report/internal/events"
	"github.com/spec-kit/itop-report/internal/observability"
	"github.com/spec-kit/itop-report/internal/persistence"
	"github.com/spec-kit/itop-report/internal/render"
	"github.com/spec-kit/itop-report/internal/repository"
	"github.com/spec-kit/itop-report/internal/service"
	"github.com/spec-kit/itop-report/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metrics := observability.NewMetrics()
	metrics.RegisterPgxPoolMetrics(pg.PoolHandle())

	readiness := map[string]handlers.Pinger{"postgres": pg}
	var store repository.ReportStore
	if cfg.Redis.Addr != "" {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		store = redis.ReportStore(cfg.Report.DocumentTTL())
		readiness["redis"] = redis
	} else {
		logger.Info("redis not configured, document links re-run the period")
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(dispatcher, cfg.Notification, logger)
	worker.StartArchiveWorker(dispatcher, archive.NewS3(cfg.Archive, logger), logger)

	source := repository.NewTicketRepository(pg.PoolHandle(), domain.SLAThreshold(cfg.Report.SLAThreshold))
	reports := service.NewReportService(cfg.Report, service.ReportDependencies{
		Source:     source,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	documents := service.NewDocumentService(cfg.Report, service.DocumentDependencies{
		Renderer: render.NewPDFRenderer(render.PDFOptions{
			FontPath:   cfg.Report.FontPath,
			FontFamily: cfg.Report.FontFamily,
		}),
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.App.RequestTimeout() + 30*time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Reports: handlers.NewReportHandler(reports, documents, logger),
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

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

// runtime holds the services a command needs once the ticket store is reachable.
type runtime struct {
	reports   *service.ReportService
	documents *service.DocumentService
	archive   *archive.Archive
	migrate   func(ctx context.Context) error
	close     func()
}

type app struct {
	stdout  io.Writer
	stderr  io.Writer
	connect func(ctx context.Context) (*runtime, error)
}

// NewRootCommand returns the reportctl command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{stdout: os.Stdout, stderr: os.Stderr, connect: connect})
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "reportctl",
		Short:         "Generate iTop ticket reports from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.AddCommand(newExportCmd(a), newSummaryCmd(a), newMigrateCmd(a))
	return cmd
}

// connect wires the same stack as the HTTP server, without the HTTP surface.
func connect(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(dispatcher, cfg.Notification, logger)

	source := repository.NewTicketRepository(pg.PoolHandle(), domain.SLAThreshold(cfg.Report.SLAThreshold))
	return &runtime{
		reports: service.NewReportService(cfg.Report, service.ReportDependencies{
			Source:     source,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		documents: service.NewDocumentService(cfg.Report, service.DocumentDependencies{
			Renderer: render.NewPDFRenderer(render.PDFOptions{
				FontPath:   cfg.Report.FontPath,
				FontFamily: cfg.Report.FontFamily,
			}),
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		archive: archive.NewS3(cfg.Archive, logger),
		migrate: func(ctx context.Context) error {
			return persistence.RunMigrations(ctx, pg.PoolHandle(), logger)
		},
		close: func() {
			pg.Close()
			_ = logger.Sync()
		},
	}, nil
}

func addPeriodFlags(cmd *cobra.Command, start, end *string) {
	cmd.Flags().StringVar(start, "start", "", "first day of the period, YYYY-MM-DD (default: first day of previous month)")
	cmd.Flags().StringVar(end, "end", "", "exclusive end of the period, YYYY-MM-DD (default: first day of current month)")
}

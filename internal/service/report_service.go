package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/itop-report/internal/config"
	"github.com/spec-kit/itop-report/internal/domain"
	"github.com/spec-kit/itop-report/internal/events"
	"github.com/spec-kit/itop-report/internal/observability"
	"github.com/spec-kit/itop-report/internal/repository"
	apperrors "github.com/spec-kit/itop-report/pkg/util"
)

// ReportService runs every rollup of a report once per invocation.
type ReportService struct {
	source     repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.ReportConfig
	now        func() time.Time
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	Source     repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Now        func() time.Time
}

// NewReportService creates the service.
func NewReportService(cfg config.ReportConfig, deps ReportDependencies) *ReportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ReportService{
		source:     deps.Source,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		cfg:        cfg,
		now:        now,
	}
}

// Period parses optional YYYY-MM-DD bounds; empty bounds mean the previous month.
func (s *ReportService) Period(start, end string) (domain.Period, error) {
	period, err := domain.ParsePeriod(start, end, s.now(), time.Local)
	if err != nil {
		return domain.Period{}, apperrors.NewValidationError(err.Error(), map[string]any{
			"start": start,
			"end":   end,
		})
	}
	return period, nil
}

// Build computes every rollup for the period. A failed rollup only marks its own
// section unavailable, except the ticket summary which fails the whole report.
func (s *ReportService) Build(ctx context.Context, period domain.Period, actor events.Actor) (*domain.Report, error) {
	threshold := domain.SLAThreshold(s.cfg.SLAThreshold)
	appService := s.cfg.ApplicationService
	report := &domain.Report{
		ID:           uuid.NewString(),
		Period:       period,
		GeneratedAt:  s.now(),
		SLAThreshold: threshold,
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.MaxParallelQueries > 0 {
		g.SetLimit(s.cfg.MaxParallelQueries)
	}

	g.Go(func() error {
		summary, err := timed(gctx, s, "ticket_summary", func(ctx context.Context) (domain.TicketSummary, error) {
			return TicketSummary(ctx, s.source, period)
		})
		if err != nil {
			return apperrors.NewDataUnavailable("ticket summary", err)
		}
		report.Summary = summary
		return nil
	})
	for _, item := range []struct {
		name  string
		class domain.TicketClass
		dst   *domain.Section[domain.StatusBreakdown]
	}{
		{"requests", domain.TicketClassUserRequest, &report.Requests},
		{"incidents", domain.TicketClassIncident, &report.Incidents},
		{"changes", domain.TicketClassChange, &report.Changes},
	} {
		item := item
		g.Go(collect(gctx, s, item.name, item.dst, func(ctx context.Context) (domain.StatusBreakdown, error) {
			return StatusBreakdown(ctx, s.source, period, item.class)
		}))
	}
	g.Go(collect(gctx, s, "teams", &report.Teams, func(ctx context.Context) ([]domain.GroupTimeStat, error) {
		return TeamTimeStats(ctx, s.source, period)
	}))
	g.Go(collect(gctx, s, "agents", &report.Agents, func(ctx context.Context) ([]domain.GroupTimeStat, error) {
		return AgentTimeStats(ctx, s.source, period)
	}))
	g.Go(collect(gctx, s, "unresolved", &report.Unresolved, func(ctx context.Context) ([]domain.UnresolvedTicket, error) {
		return UnresolvedTicketList(ctx, s.source, period)
	}))
	g.Go(collect(gctx, s, "overdue", &report.Overdue, func(ctx context.Context) ([]domain.OverdueTicket, error) {
		return OverdueTicketList(ctx, s.source, period)
	}))
	g.Go(collect(gctx, s, "infra_kpi", &report.InfraKPI, func(ctx context.Context) (domain.KPITable, error) {
		return InfraKPITable(ctx, s.source, period, appService)
	}))
	g.Go(collect(gctx, s, "app_kpi", &report.AppKPI, func(ctx context.Context) (domain.KPITable, error) {
		return AppKPITable(ctx, s.source, period, appService)
	}))

	if err := g.Wait(); err != nil {
		s.logger.Error("report failed", zap.String("period", period.Label()), zap.Error(err))
		return nil, err
	}

	failed := report.FailedSections()
	s.logger.Info("report generated",
		zap.String("report_id", report.ID),
		zap.String("period", period.Label()),
		zap.Int("total_tickets", report.Summary.Total),
		zap.Strings("failed_sections", failed))
	s.publish(ctx, events.Event{
		Type:     events.EventReportGenerated,
		ReportID: report.ID,
		Actor:    actor,
		Payload: events.ReportGeneratedPayload{
			Period:         period,
			TotalTickets:   report.Summary.Total,
			FailedSections: failed,
		},
	})
	return report, nil
}

func (s *ReportService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// collect runs one section rollup; a failure is recorded on the section and never aborts the group.
func collect[T any](ctx context.Context, s *ReportService, name string, dst *domain.Section[T], fn func(context.Context) (T, error)) func() error {
	return func() error {
		data, err := timed(ctx, s, name, fn)
		if err != nil {
			var zero T
			dst.Data = zero
			dst.Error = "unable to retrieve " + name
			return nil
		}
		dst.Data = data
		return nil
	}
}

func timed[T any](ctx context.Context, s *ReportService, name string, fn func(context.Context) (T, error)) (T, error) {
	if timeout := s.cfg.QueryTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	data, err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.RecordRollup(name, "error", elapsed)
		s.logger.Warn("rollup failed", zap.String("rollup", name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return data, err
	}
	s.metrics.RecordRollup(name, "ok", elapsed)
	s.logger.Debug("rollup done", zap.String("rollup", name), zap.Duration("elapsed", elapsed))
	return data, nil
}

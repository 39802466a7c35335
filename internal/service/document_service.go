package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/itop-report/internal/config"
	"github.com/spec-kit/itop-report/internal/domain"
	"github.com/spec-kit/itop-report/internal/events"
	"github.com/spec-kit/itop-report/internal/observability"
	"github.com/spec-kit/itop-report/internal/render"
	"github.com/spec-kit/itop-report/internal/repository"
	apperrors "github.com/spec-kit/itop-report/pkg/util"
)

// DocumentRenderer turns a report view into document bytes.
type DocumentRenderer interface {
	Render(view render.View) ([]byte, error)
}

// Document is a rendered report ready for download.
type Document struct {
	Name    string
	Content []byte
}

// DocumentService renders reports and keeps them around long enough to be downloaded.
type DocumentService struct {
	renderer   DocumentRenderer
	store      repository.ReportStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.ReportConfig
	now        func() time.Time
}

// DocumentDependencies bundles collaborators for the document service.
type DocumentDependencies struct {
	Renderer   DocumentRenderer
	Store      repository.ReportStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Now        func() time.Time
}

// NewDocumentService creates the service.
func NewDocumentService(cfg config.ReportConfig, deps DocumentDependencies) *DocumentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &DocumentService{
		renderer:   deps.Renderer,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		cfg:        cfg,
		now:        now,
	}
}

// Export renders the report as a PDF document.
func (s *DocumentService) Export(ctx context.Context, report *domain.Report, actor events.Actor) (*Document, error) {
	content, err := s.renderer.Render(render.BuildView(report))
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeRenderFailure) {
			err = apperrors.NewRenderFailure("document could not be rendered", render.FontHint, err)
		}
		s.metrics.RecordDocument("error")
		s.logger.Error("document failed", zap.String("report_id", report.ID), zap.Error(err))
		s.publish(ctx, events.Event{
			Type:     events.EventDocumentFailed,
			ReportID: report.ID,
			Actor:    actor,
			Payload:  events.DocumentFailedPayload{Reason: err.Error(), Hint: apperrors.Hint(err)},
		})
		return nil, err
	}

	doc := &Document{Name: s.cfg.DocumentName, Content: content}
	s.metrics.RecordDocument("ok")
	s.logger.Info("document exported",
		zap.String("report_id", report.ID),
		zap.String("file_name", doc.Name),
		zap.Int("size", len(content)))
	s.publish(ctx, events.Event{
		Type:     events.EventDocumentExported,
		ReportID: report.ID,
		Actor:    actor,
		Payload: events.DocumentExportedPayload{
			Period:   report.Period,
			FileName: doc.Name,
			Size:     len(content),
			Document: content,
		},
	})
	return doc, nil
}

// Remembers reports whether rendered reports can be recalled by id.
func (s *DocumentService) Remembers() bool { return s.store != nil }

// Remember stores the report so a later download renders the same rollups.
func (s *DocumentService) Remember(ctx context.Context, report *domain.Report) error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(ctx, report)
}

// Recall loads a remembered report.
func (s *DocumentService) Recall(ctx context.Context, id string) (*domain.Report, error) {
	if s.store == nil {
		return nil, apperrors.NewNotFound("report", map[string]any{"id": id})
	}
	report, err := s.store.Load(ctx, id)
	if errors.Is(err, repository.ErrReportNotFound) {
		return nil, apperrors.NewNotFound("report", map[string]any{"id": id})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return report, nil
}

func (s *DocumentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

package handlers

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/itop-report/internal/api/dto"
	"github.com/spec-kit/itop-report/internal/domain"
	"github.com/spec-kit/itop-report/internal/events"
	"github.com/spec-kit/itop-report/internal/render"
	"github.com/spec-kit/itop-report/internal/service"
	apperrors "github.com/spec-kit/itop-report/pkg/util"
)

// ReportHandler serves the dashboard, the JSON rollups and the PDF download.
type ReportHandler struct {
	reports   *service.ReportService
	documents *service.DocumentService
	logger    *zap.Logger
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService, documents *service.DocumentService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, documents: documents, logger: logger}
}

// View GET /reports/view.
func (h *ReportHandler) View(c *fiber.Ctx) error {
	report, err := h.build(c)
	if err != nil {
		return err
	}
	var page bytes.Buffer
	opts := render.PageOptions{DocumentURL: h.documentURL(c, report)}
	if err := render.HTML(&page, render.BuildView(report), opts); err != nil {
		return apperrors.NewRenderFailure("report page could not be rendered", "", err)
	}
	c.Type("html", "utf-8")
	return c.Send(page.Bytes())
}

// Report GET /api/reports.
func (h *ReportHandler) Report(c *fiber.Ctx) error {
	report, err := h.build(c)
	if err != nil {
		return err
	}
	failed := report.FailedSections()
	if failed == nil {
		failed = []string{}
	}
	return c.JSON(dto.ReportResponse{
		Data:           report,
		PeriodLabel:    report.Period.Label(),
		FailedSections: failed,
		Links: dto.ReportLinks{
			Document: h.documentURL(c, report),
			View:     "/reports/view?" + periodQuery(report.Period),
		},
	})
}

// Document GET /reports/document renders a fresh report for the requested period.
func (h *ReportHandler) Document(c *fiber.Ctx) error {
	report, err := h.build(c)
	if err != nil {
		return err
	}
	return h.sendDocument(c, report)
}

// StoredDocument GET /reports/:id/document renders a report previously shown on the dashboard.
func (h *ReportHandler) StoredDocument(c *fiber.Ctx) error {
	report, err := h.documents.Recall(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return h.sendDocument(c, report)
}

func (h *ReportHandler) build(c *fiber.Ctx) (*domain.Report, error) {
	var q dto.ReportQuery
	if err := c.QueryParser(&q); err != nil {
		return nil, apperrors.NewValidationError("invalid query", nil)
	}
	if err := q.Validate(); err != nil {
		return nil, apperrors.NewValidationError("start and end must be YYYY-MM-DD", map[string]any{
			"start": q.Start,
			"end":   q.End,
		})
	}
	period, err := h.reports.Period(q.Start, q.End)
	if err != nil {
		return nil, err
	}
	return h.reports.Build(c.UserContext(), period, events.ActorHTTP)
}

// documentURL remembers the report and links its stored download; when the store is
// unavailable the link falls back to re-running the period.
func (h *ReportHandler) documentURL(c *fiber.Ctx, report *domain.Report) string {
	if !h.documents.Remembers() {
		return "/reports/document?" + periodQuery(report.Period)
	}
	if err := h.documents.Remember(c.UserContext(), report); err != nil {
		h.logger.Warn("report not stored", zap.String("report_id", report.ID), zap.Error(err))
		return "/reports/document?" + periodQuery(report.Period)
	}
	return "/reports/" + url.PathEscape(report.ID) + "/document"
}

func (h *ReportHandler) sendDocument(c *fiber.Ctx, report *domain.Report) error {
	doc, err := h.documents.Export(c.UserContext(), report, events.ActorHTTP)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Name))
	c.Type("pdf")
	return c.Send(doc.Content)
}

func periodQuery(p domain.Period) string {
	v := url.Values{}
	v.Set("start", p.Start.Format(domain.DateLayout))
	v.Set("end", p.End.Format(domain.DateLayout))
	return v.Encode()
}

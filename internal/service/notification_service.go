package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/itop-report/internal/config"
	"github.com/spec-kit/itop-report/internal/events"
)

// NotificationService forwards report events to an optional webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	timeout    time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		timeout:    5 * time.Second,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventReportGenerated, n.handleReportGenerated)
	n.dispatcher.Subscribe(events.EventDocumentExported, n.handleDocumentExported)
	n.dispatcher.Subscribe(events.EventDocumentFailed, n.handleDocumentFailed)
}

func (n *NotificationService) handleReportGenerated(ctx context.Context, event events.Event) error {
	n.logger.Info("ReportGenerated", zap.String("report_id", event.ReportID), zap.Any("payload", event.Payload))
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) handleDocumentExported(ctx context.Context, event events.Event) error {
	n.logger.Info("DocumentExported", zap.String("report_id", event.ReportID), zap.Any("payload", event.Payload))
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) handleDocumentFailed(ctx context.Context, event events.Event) error {
	n.logger.Warn("DocumentFailed", zap.String("report_id", event.ReportID), zap.Any("payload", event.Payload))
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}
	agent := fiber.Post(url).JSON(event).Timeout(n.timeout)
	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook %s: %w", event.Type, errs[0])
	}
	if status >= 300 {
		return fmt.Errorf("webhook %s: unexpected status %d", event.Type, status)
	}
	n.logger.Debug("webhook delivered",
		zap.String("report_id", event.ReportID),
		zap.String("event_type", string(event.Type)),
		zap.Int("status", status))
	return nil
}

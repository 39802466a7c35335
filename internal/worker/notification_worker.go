package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/itop-report/internal/config"
	"github.com/spec-kit/itop-report/internal/events"
	"github.com/spec-kit/itop-report/internal/service"
)

// StartNotificationWorker subscribes the report notifications to the dispatcher. Without a
// webhook the events are only logged.
func StartNotificationWorker(dispatcher events.Dispatcher, cfg config.NotificationConfig, logger *zap.Logger) *service.NotificationService {
	if dispatcher == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifications := service.NewNotificationService(dispatcher, logger, cfg)
	notifications.RegisterHandlers()
	if cfg.WebhookURL == "" {
		logger.Info("report notifications logged only, no webhook configured")
	} else {
		logger.Info("report notifications enabled", zap.String("webhook", cfg.WebhookURL))
	}
	return notifications
}

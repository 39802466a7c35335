package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/itop-report/internal/archive"
	"github.com/spec-kit/itop-report/internal/events"
)

// StartArchiveWorker uploads every exported document. A nil archive disables the worker.
func StartArchiveWorker(dispatcher events.Dispatcher, store *archive.Archive, logger *zap.Logger) {
	if dispatcher == nil || store == nil {
		return
	}
	dispatcher.Subscribe(events.EventDocumentExported, func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.DocumentExportedPayload)
		if !ok {
			return fmt.Errorf("archive: unexpected payload %T", event.Payload)
		}
		if _, err := store.Store(ctx, payload.Period, event.ReportID, payload.Document); err != nil {
			logger.Error("archive failed", zap.String("report_id", event.ReportID), zap.Error(err))
			return err
		}
		return nil
	})
}

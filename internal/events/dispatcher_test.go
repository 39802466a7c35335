package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcher_Publish(t *testing.T) {
	d := NewInMemoryDispatcher()
	ctx := context.Background()

	var seen []string
	d.Subscribe(EventDocumentExported, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.ReportID)
		return errors.New("archive offline")
	})
	d.Subscribe(EventDocumentExported, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.ReportID)
		return nil
	})
	d.Subscribe(EventReportGenerated, func(_ context.Context, e Event) error {
		seen = append(seen, "generated")
		return nil
	})

	err := d.Publish(ctx, Event{Type: EventDocumentExported, ReportID: "r1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive offline")
	assert.Equal(t, []string{"first:r1", "second:r1"}, seen)
}

func TestInMemoryDispatcher_NoListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventDocumentFailed}))
}

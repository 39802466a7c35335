package worker

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/itop-report/internal/archive"
	"github.com/spec-kit/itop-report/internal/domain"
	"github.com/spec-kit/itop-report/internal/events"
)

type recordingPutter struct {
	keys []string
}

func (r *recordingPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	r.keys = append(r.keys, aws.ToString(params.Key))
	return &s3.PutObjectOutput{}, nil
}

func TestStartArchiveWorker(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	putter := &recordingPutter{}
	StartArchiveWorker(dispatcher, archive.New(putter, "reports", "itop", nil), zap.NewNop())

	p := domain.Period{
		Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventDocumentExported,
		ReportID: "r1",
		Payload:  events.DocumentExportedPayload{Period: p, FileName: "itop_report.pdf", Document: []byte("%PDF")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"itop/2024-05/r1.pdf"}, putter.keys)

	err = dispatcher.Publish(context.Background(), events.Event{Type: events.EventDocumentExported, Payload: "bogus"})
	assert.Error(t, err)
}

func TestStartArchiveWorker_Disabled(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	StartArchiveWorker(dispatcher, nil, zap.NewNop())

	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventDocumentExported}))
}

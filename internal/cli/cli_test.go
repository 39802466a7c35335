package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/itop-report/internal/archive"
	"github.com/spec-kit/itop-report/internal/config"
	"github.com/spec-kit/itop-report/internal/domain"
	"github.com/spec-kit/itop-report/internal/render"
	"github.com/spec-kit/itop-report/internal/service"
)

type stubSource struct{ records []domain.TicketRecord }

func (s stubSource) Tickets(_ context.Context, _ domain.Period, classes ...domain.TicketClass) ([]domain.TicketRecord, error) {
	var out []domain.TicketRecord
	for _, r := range s.records {
		for _, c := range classes {
			if r.Class == c {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s stubSource) ServiceRefs(context.Context, domain.Period) ([]domain.ServiceRef, error) {
	var out []domain.ServiceRef
	for _, r := range s.records {
		out = append(out, r.ServiceRef())
	}
	return out, nil
}

type recordingPutter struct {
	keys []string
}

func (p *recordingPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.keys = append(p.keys, aws.ToString(in.Key))
	return &s3.PutObjectOutput{}, nil
}

func testApp(t *testing.T, putter *recordingPutter) (*app, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := config.Defaults()
	start := time.Date(2024, 5, 3, 10, 0, 0, 0, time.Local)
	src := stubSource{records: []domain.TicketRecord{
		{Ref: "R-1", Class: domain.TicketClassUserRequest, Status: domain.TicketStatusClosed, StartDate: start, Service: "Network"},
		{Ref: "R-2", Class: domain.TicketClassUserRequest, Status: domain.TicketStatusAssigned, StartDate: start},
		{Ref: "C-3", Class: domain.TicketClassChange, Status: domain.TicketStatusClosed, StartDate: start},
	}}
	now := func() time.Time { return time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local) }

	var arch *archive.Archive
	if putter != nil {
		arch = archive.New(putter, "reports", "itop", zap.NewNop())
	}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	a := &app{
		stdout: stdout,
		stderr: stderr,
		connect: func(context.Context) (*runtime, error) {
			return &runtime{
				reports: service.NewReportService(cfg.Report, service.ReportDependencies{Source: src, Now: now}),
				documents: service.NewDocumentService(cfg.Report, service.DocumentDependencies{
					Renderer: render.NewPDFRenderer(render.PDFOptions{}),
				}),
				archive: arch,
				migrate: func(context.Context) error { return nil },
				close:   func() {},
			}, nil
		},
	}
	return a, stdout, stderr
}

func run(a *app, args ...string) error {
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestExport(t *testing.T) {
	putter := &recordingPutter{}
	a, stdout, _ := testApp(t, putter)
	target := filepath.Join(t.TempDir(), "may.pdf")

	require.NoError(t, run(a, "export", "--start", "2024-05-01", "--end", "2024-06-01", "-o", target, "--archive"))

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF-")))
	assert.Contains(t, stdout.String(), "wrote "+target)
	require.Len(t, putter.keys, 1)
	assert.True(t, strings.HasPrefix(putter.keys[0], "itop/2024-05/"))
	assert.Contains(t, stdout.String(), "archived as "+putter.keys[0])
}

func TestExport_ArchiveDisabled(t *testing.T) {
	a, _, _ := testApp(t, nil)

	err := run(a, "export", "-o", filepath.Join(t.TempDir(), "x.pdf"), "--archive")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARCHIVE_ENABLED")
}

func TestExport_InvalidPeriod(t *testing.T) {
	a, _, _ := testApp(t, nil)

	err := run(a, "export", "--start", "2024-06-01", "--end", "2024-05-01")
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	a, stdout, _ := testApp(t, nil)

	require.NoError(t, run(a, "summary"))
	out := stdout.String()
	assert.Contains(t, out, "Period: 2024-05")
	assert.Contains(t, out, "Tickets: 3")
	assert.Contains(t, out, "Service requests: 2 total, 1 resolved (50.00%), 1 closed, 1 unresolved (50.00%)")
	assert.Contains(t, out, "Incidents: 0 total, 0 resolved (N/A)")
	assert.Contains(t, out, "Infra KPI_total: 50.00%")
	assert.Contains(t, out, "App KPI_total: N/A")
}

func TestSummary_JSON(t *testing.T) {
	a, stdout, _ := testApp(t, nil)

	require.NoError(t, run(a, "summary", "--json", "--start", "2024-05-01", "--end", "2024-06-01"))
	assert.Contains(t, stdout.String(), `"total": 3`)
}

func TestConnectFailure(t *testing.T) {
	a := &app{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, connect: func(context.Context) (*runtime, error) {
		return nil, errors.New("ticket store not configured")
	}}

	err := run(a, "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestMigrate(t *testing.T) {
	a, stdout, _ := testApp(t, nil)

	require.NoError(t, run(a, "migrate"))
	assert.Contains(t, stdout.String(), "mirror schema is up to date")
}

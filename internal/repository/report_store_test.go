package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itop-report/internal/domain"
)

type fakeKV struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func sampleReport() *domain.Report {
	return &domain.Report{
		ID:           "3f6c",
		Period:       testPeriod(),
		GeneratedAt:  time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC),
		SLAThreshold: domain.SLAThresholdStrict,
		Summary:      domain.TicketSummary{Total: 10, Requests: 10},
		Requests: domain.Section[domain.StatusBreakdown]{Data: domain.StatusBreakdown{
			Class: domain.TicketClassUserRequest, Total: 10, Resolved: 8, Closed: 6, Unresolved: 2,
		}},
		InfraKPI: domain.Section[domain.KPITable]{Data: domain.KPITable{
			Partition: domain.PartitionInfra,
			Services:  []string{"Network"},
			Rows: []domain.KPIRow{
				{Month: "2024-05", Cells: map[string]domain.KPICell{"Network": {Total: 4, Resolved: 3}}, Total: 4, Resolved: 3},
			},
		}},
		AppKPI: domain.Section[domain.KPITable]{Error: "unable to retrieve app_kpi"},
	}
}

func TestReportStore_SaveLoad(t *testing.T) {
	kv := newFakeKV()
	store := NewReportStore(kv, 30*time.Minute)
	ctx := context.Background()
	report := sampleReport()

	require.NoError(t, store.Save(ctx, report))
	assert.Equal(t, 30*time.Minute, kv.ttls["itop-report:3f6c"])

	loaded, err := store.Load(ctx, "3f6c")
	require.NoError(t, err)
	assert.Equal(t, report.Summary, loaded.Summary)
	assert.Equal(t, report.Requests, loaded.Requests)
	assert.Equal(t, report.InfraKPI, loaded.InfraKPI)
	assert.False(t, loaded.AppKPI.Available())
	assert.True(t, report.Period.Start.Equal(loaded.Period.Start))
}

func TestReportStore_LoadMissing(t *testing.T) {
	store := NewReportStore(newFakeKV(), time.Minute)

	_, err := store.Load(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestReportStore_BackendError(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("connection reset")
	store := NewReportStore(kv, time.Minute)
	ctx := context.Background()

	err := store.Save(ctx, sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store report 3f6c")

	_, err = store.Load(ctx, "3f6c")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReportNotFound)
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/itop-report/internal/domain"
)

// ErrReportNotFound is returned when a stored report expired or never existed.
var ErrReportNotFound = errors.New("report not found")

const reportKeyPrefix = "itop-report:"

// RedisKV is the subset of the go-redis API used by the report store. *redis.Client satisfies it.
type RedisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ReportStore keeps a rendered report for a short while so that the document download
// is produced from the same rollups the dashboard showed.
type ReportStore interface {
	Save(ctx context.Context, report *domain.Report) error
	Load(ctx context.Context, id string) (*domain.Report, error)
}

type reportStore struct {
	client RedisKV
	ttl    time.Duration
}

// NewReportStore instantiates the Redis backed store.
func NewReportStore(client RedisKV, ttl time.Duration) ReportStore {
	return &reportStore{client: client, ttl: ttl}
}

func (s *reportStore) Save(ctx context.Context, report *domain.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := s.client.Set(ctx, reportKeyPrefix+report.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store report %s: %w", report.ID, err)
	}
	return nil
}

func (s *reportStore) Load(ctx context.Context, id string) (*domain.Report, error) {
	payload, err := s.client.Get(ctx, reportKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	var report domain.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &report, nil
}

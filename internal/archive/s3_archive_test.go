package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itop-report/internal/config"
	"github.com/spec-kit/itop-report/internal/domain"
)

type mockPutter struct {
	mock.Mock
}

func (m *mockPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func period(startMonth, endMonth time.Month) domain.Period {
	return domain.Period{
		Start: time.Date(2024, startMonth, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, endMonth, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestArchive_Key(t *testing.T) {
	a := New(&mockPutter{}, "reports", "/itop-reports/", nil)

	assert.Equal(t, "itop-reports/2024-05/abc.pdf", a.Key(period(5, 6), "abc"))
	assert.Equal(t, "itop-reports/2024-04_2024-06/abc.pdf", a.Key(period(4, 7), "abc"))
}

func TestArchive_Store(t *testing.T) {
	putter := &mockPutter{}
	a := New(putter, "reports", "itop-reports", nil)
	ctx := context.Background()
	doc := []byte("%PDF-1.3 fake")

	putter.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		body, _ := io.ReadAll(in.Body)
		return aws.ToString(in.Bucket) == "reports" &&
			aws.ToString(in.Key) == "itop-reports/2024-05/r1.pdf" &&
			aws.ToString(in.ContentType) == "application/pdf" &&
			string(body) == string(doc)
	})).Return(&s3.PutObjectOutput{}, nil)

	key, err := a.Store(ctx, period(5, 6), "r1", doc)
	require.NoError(t, err)
	assert.Equal(t, "itop-reports/2024-05/r1.pdf", key)
	putter.AssertExpectations(t)
}

func TestArchive_StoreError(t *testing.T) {
	putter := &mockPutter{}
	a := New(putter, "reports", "", nil)

	putter.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := a.Store(context.Background(), period(5, 6), "r1", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put object reports/2024-05/r1.pdf")
}

func TestNewS3_Disabled(t *testing.T) {
	assert.Nil(t, NewS3(config.ArchiveConfig{}, nil))
	assert.NotNil(t, NewS3(config.ArchiveConfig{Enabled: true, Bucket: "b", Region: "us-east-1", Endpoint: "http://localhost:9000"}, nil))
}

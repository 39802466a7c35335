package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/spec-kit/itop-report/internal/config"
	"github.com/spec-kit/itop-report/internal/domain"
)

// ObjectPutter is the subset of the S3 API used by the archive. *s3.Client satisfies it.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive uploads exported documents to S3-compatible storage.
type Archive struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *zap.Logger
}

// New creates an archive over an existing client.
func New(client ObjectPutter, bucket, prefix string, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With(zap.String("component", "archive")),
	}
}

// NewS3 builds the archive from configuration, or returns nil when archiving is disabled.
func NewS3(cfg config.ArchiveConfig, logger *zap.Logger) *Archive {
	if !cfg.Enabled {
		return nil
	}
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}
	return New(s3.New(opts), cfg.Bucket, cfg.Prefix, logger)
}

// Key returns the object key of a report document: <prefix>/<period>/<report id>.pdf.
func (a *Archive) Key(period domain.Period, reportID string) string {
	label := strings.ReplaceAll(period.Label(), " to ", "_")
	return path.Join(a.prefix, label, reportID+".pdf")
}

// Store uploads the document and returns its object key.
func (a *Archive) Store(ctx context.Context, period domain.Period, reportID string, document []byte) (string, error) {
	key := a.Key(period, reportID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(document),
		ContentLength: aws.Int64(int64(len(document))),
		ContentType:   aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", a.bucket, key, err)
	}
	a.logger.Info("document archived", zap.String("bucket", a.bucket), zap.String("key", key), zap.Int("size", len(document)))
	return key, nil
}

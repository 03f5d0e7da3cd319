package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Uploader is an interface for uploading objects to S3.
// This allows for easy mocking in tests.
type S3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ArtifactStore uploads packaged model artifacts to an S3 bucket so
// SageMaker can reference them as ModelDataUrl.
type ArtifactStore struct {
	bucket   string
	prefix   string
	uploader S3Uploader
	logger   *zap.Logger
}

// NewArtifactStore creates an artifact store backed by the multipart
// uploader from the shared AWS configuration.
func NewArtifactStore(cfg aws.Config, logger *zap.Logger, bucket, prefix string) *ArtifactStore {
	client := s3.NewFromConfig(cfg)
	return NewArtifactStoreWithUploader(logger, bucket, prefix, manager.NewUploader(client))
}

// NewArtifactStoreWithUploader creates an artifact store with a custom
// uploader. This is useful for testing.
func NewArtifactStoreWithUploader(logger *zap.Logger, bucket, prefix string, uploader S3Uploader) *ArtifactStore {
	return &ArtifactStore{
		bucket:   bucket,
		prefix:   prefix,
		uploader: uploader,
		logger:   logger,
	}
}

// Upload stores the artifact under the configured prefix and returns its
// s3:// URI.
func (s *ArtifactStore) Upload(ctx context.Context, name string, data io.Reader) (string, error) {
	key := name
	if s.prefix != "" {
		key = path.Join(s.prefix, name)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   data,
	}

	if contentType := contentTypeFromPath(name); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	s.logger.Info("uploading artifact",
		zap.String("bucket", s.bucket),
		zap.String("key", key))

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to s3://%s/%s: %w", s.bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// ParseS3URI splits an s3://bucket/prefix URI into bucket and prefix.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("invalid S3 URI %q: missing s3:// scheme", uri)
	}

	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q: missing bucket", uri)
	}

	return bucket, strings.Trim(prefix, "/"), nil
}

// contentTypeFromPath returns the Content-Type based on the file extension.
func contentTypeFromPath(p string) string {
	switch path.Ext(p) {
	case ".gz":
		return "application/gzip"
	case ".zst":
		return "application/zstd"
	case ".tar":
		return "application/x-tar"
	case ".json":
		return "application/json"
	default:
		return ""
	}
}

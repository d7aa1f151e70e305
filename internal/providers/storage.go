package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"survey-service/internal/config"
)

// StorageProvider issues presigned upload credentials for direct-to-bucket
// document uploads. File bytes never pass through this service.
type StorageProvider interface {
	PresignUpload(ctx context.Context, key, mimeType string, size int64) (string, time.Time, error)
	ObjectURL(key string) string
}

// S3Storage implements StorageProvider against S3-compatible object storage.
type S3Storage struct {
	client     *s3.Client
	bucket     string
	endpoint   string
	presignTTL time.Duration
	logger     *logrus.Logger
}

// NewS3Storage creates an S3-backed storage provider
func NewS3Storage(cfg config.StorageConfig, presignTTL time.Duration, logger *logrus.Logger) (*S3Storage, error) {
	awsConfig, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:     client,
		bucket:     cfg.Bucket,
		endpoint:   cfg.Endpoint,
		presignTTL: presignTTL,
		logger:     logger,
	}, nil
}

// PresignUpload returns a time-limited PUT URL for the given object key.
func (p *S3Storage) PresignUpload(ctx context.Context, key, mimeType string, size int64) (string, time.Time, error) {
	presignClient := s3.NewPresignClient(p.client)

	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(size),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = p.presignTTL
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign upload: %w", err)
	}

	expiresAt := time.Now().Add(p.presignTTL)
	return req.URL, expiresAt, nil
}

// ObjectURL returns the canonical URL an object will have once uploaded.
func (p *S3Storage) ObjectURL(key string) string {
	if p.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", p.endpoint, p.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", p.bucket, key)
}

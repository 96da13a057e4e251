package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
)

// Store keeps attachments in one S3-compatible bucket (AWS S3 or MinIO).
type Store struct {
	log     *logger.Logger
	client  *awss3.Client
	presign *awss3.PresignClient
	bucket  string
}

var _ objectstore.Store = (*Store)(nil)

func New(ctx context.Context, log *logger.Logger, cfg objectstore.Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = cfg.S3PathStyle
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})
	s := NewWithClient(log, client, cfg.Bucket)
	s.log.Info("Object storage initialized", "mode", objectstore.ModeS3, "bucket", cfg.Bucket, "endpoint", cfg.S3Endpoint)
	return s, nil
}

func NewWithClient(log *logger.Logger, client *awss3.Client, bucket string) *Store {
	return &Store{
		log:     log.With("service", "S3Store"),
		client:  client,
		presign: awss3.NewPresignClient(client),
		bucket:  bucket,
	}
}

func (s *Store) Provider() string { return string(objectstore.ModeS3) }

func (s *Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &awss3.PutObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key), Body: body}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put s3 object %q: %w", key, err)
	}
	return nil
}

func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration, opts objectstore.SignOptions) (string, error) {
	input := &awss3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}
	if opts.Filename != "" {
		input.ResponseContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", opts.Filename))
	}
	out, err := s.presign.PresignGetObject(ctx, input, func(po *awss3.PresignOptions) { po.Expires = ttl })
	if err != nil {
		return "", fmt.Errorf("presign s3 object %q: %w", key, err)
	}
	return out.URL, nil
}

// Remove deletes key. S3 answers 204 for absent keys on most backends, while
// some return NoSuchKey; both end up as success or ErrNotFound.
func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err == nil {
		return nil
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("delete s3 object %q: %w", key, objectstore.ErrNotFound)
	}
	return fmt.Errorf("delete s3 object %q: %w", key, err)
}

package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
)

// BucketService stores dossier attachments in a single GCS bucket (or the
// fake-gcs emulator).
type BucketService struct {
	log           *logger.Logger
	client        *storage.Client
	bucket        string
	mode          objectstore.Mode
	emulatorHost  string
	publicBaseURL string
}

var _ objectstore.Store = (*BucketService)(nil)

func NewBucketService(ctx context.Context, log *logger.Logger, cfg objectstore.Config) (*BucketService, error) {
	if cfg.Mode != objectstore.ModeGCS && cfg.Mode != objectstore.ModeGCSEmulator {
		return nil, &objectstore.ConfigError{Code: objectstore.ConfigErrorInvalidMode, Mode: string(cfg.Mode)}
	}
	if err := objectstore.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "BucketService")

	publicBaseURL, publicBaseSource, err := resolvePublicBaseURL(cfg)
	if err != nil {
		return nil, err
	}
	client, credSource, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"emulator_host", cfg.EmulatorHost,
		"public_base_source", publicBaseSource,
		"credentials", credSource,
		"bucket", cfg.Bucket,
	)

	return &BucketService{
		log:           serviceLog,
		client:        client,
		bucket:        cfg.Bucket,
		mode:          cfg.Mode,
		emulatorHost:  strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"),
		publicBaseURL: publicBaseURL,
	}, nil
}

func newStorageClient(ctx context.Context, cfg objectstore.Config) (*storage.Client, string, error) {
	opts, source := clientOptions(cfg)
	if cfg.IsEmulatorMode() {
		// The client library only reads the emulator endpoint from the env.
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"))
	}
	client, err := storage.NewClient(ctx, opts...)
	return client, source, err
}

func resolvePublicBaseURL(cfg objectstore.Config) (baseURL string, source string, err error) {
	raw := strings.TrimSpace(os.Getenv("OBJECT_STORAGE_PUBLIC_BASE_URL"))
	if raw != "" {
		parsed, parseErr := url.Parse(raw)
		if parseErr != nil || parsed.Scheme == "" || parsed.Host == "" {
			return "", "", fmt.Errorf("invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected absolute URL like http://localhost:4443", raw)
		}
		return strings.TrimRight(raw, "/"), "object_storage_public_base_url", nil
	}
	if cfg.IsEmulatorMode() {
		return strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"), "storage_emulator_host", nil
	}
	return "", "gcs_default", nil
}

func (bs *BucketService) Provider() string { return string(bs.mode) }

func (bs *BucketService) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.client.Bucket(bs.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer for %q: %w", key, err)
	}
	return nil
}

// SignedURL returns a V4 signed GET URL. The emulator has no signing, so
// there the plain media URL is returned.
func (bs *BucketService) SignedURL(ctx context.Context, key string, ttl time.Duration, opts objectstore.SignOptions) (string, error) {
	if bs.mode == objectstore.ModeGCSEmulator {
		return bs.emulatorMediaURL(key), nil
	}
	signOpts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	}
	if opts.Filename != "" {
		signOpts.QueryParameters = url.Values{
			"response-content-disposition": {fmt.Sprintf("attachment; filename=%q", opts.Filename)},
		}
	}
	u, err := bs.client.Bucket(bs.bucket).SignedURL(key, signOpts)
	if err != nil {
		return "", fmt.Errorf("sign GCS object %q: %w", key, err)
	}
	return u, nil
}

func (bs *BucketService) Remove(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := bs.client.Bucket(bs.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("delete GCS object %q: %w", key, objectstore.ErrNotFound)
		}
		return fmt.Errorf("delete GCS object %q in bucket %q: %w", key, bs.bucket, err)
	}
	return nil
}

func (bs *BucketService) Close() error {
	return bs.client.Close()
}

func (bs *BucketService) emulatorMediaURL(key string) string {
	base := bs.publicBaseURL
	if base == "" {
		base = bs.emulatorHost
	}
	return emulatorMediaURL(base, bs.bucket, key)
}

func emulatorMediaURL(base, bucket, key string) string {
	return fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s?alt=media",
		strings.TrimRight(strings.TrimSpace(base), "/"),
		url.PathEscape(bucket),
		url.PathEscape(key),
	)
}

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/gcp"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
	"github.com/yungbote/dossier-backend/internal/platform/s3"
)

var (
	newGCSStore = func(ctx context.Context, log *logger.Logger, cfg objectstore.Config) (objectstore.Store, error) {
		return gcp.NewBucketService(ctx, log, cfg)
	}
	newS3Store = func(ctx context.Context, log *logger.Logger, cfg objectstore.Config) (objectstore.Store, error) {
		return s3.New(ctx, log, cfg)
	}
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorInvalidS3Endpoint   StorageProviderBootstrapErrorCode = "invalid_s3_endpoint"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveObjectStore builds the attachment bucket for the configured mode.
// cfgErr is the error from reading the storage settings, if any.
func resolveObjectStore(
	ctx context.Context,
	log *logger.Logger,
	storageCfg objectstore.Config,
	cfgErr error,
	metrics *observability.Metrics,
) (objectstore.Store, error) {
	modeSource := storageCfg.ModeSource()
	mode := string(storageCfg.Mode)

	fail := func(err error) (objectstore.Store, error) {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		code := storageProviderBootstrapErrorCode(classified)
		metrics.ObserveObjectStorageProviderBootstrap(mode, "error", string(code))
		log.Error(
			"Object storage provider bootstrap failed",
			"mode", storageCfg.Mode,
			"mode_source", modeSource,
			"compatibility_fallback", storageCfg.CompatibilityFallback,
			"emulator_host", storageCfg.EmulatorHost,
			"error_code", code,
			"error", classified,
		)
		return nil, classified
	}

	if cfgErr != nil {
		return fail(cfgErr)
	}
	if !objectstore.IsSupportedMode(storageCfg.Mode) {
		return fail(&objectstore.ConfigError{Code: objectstore.ConfigErrorInvalidMode, Mode: mode})
	}

	log.Info(
		"Selecting object storage provider",
		"mode", storageCfg.Mode,
		"mode_source", modeSource,
		"compatibility_fallback", storageCfg.CompatibilityFallback,
		"emulator_host", storageCfg.EmulatorHost,
		"bucket", storageCfg.Bucket,
	)

	var (
		store objectstore.Store
		err   error
	)
	switch storageCfg.Mode {
	case objectstore.ModeGCS, objectstore.ModeGCSEmulator:
		store, err = newGCSStore(ctx, log, storageCfg)
	case objectstore.ModeS3:
		if verr := objectstore.ValidateConfig(storageCfg); verr != nil {
			return fail(verr)
		}
		store, err = newS3Store(ctx, log, storageCfg)
	case objectstore.ModeMemory:
		log.Warn("Using in-memory object storage; attachments are lost on restart")
		store = objectstore.NewMemory()
	}
	if err != nil {
		return fail(err)
	}

	metrics.ObserveObjectStorageProviderBootstrap(mode, "success", "none")
	metrics.SetObjectStorageModeActive(mode)
	return store, nil
}

func classifyStorageProviderBootstrapError(storageCfg objectstore.Config, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *objectstore.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case objectstore.ConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case objectstore.ConfigErrorMissingBucket:
			code = StorageProviderBootstrapErrorMissingBucket
		case objectstore.ConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case objectstore.ConfigErrorInvalidEmulatorHost:
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
		case objectstore.ConfigErrorInvalidS3Endpoint:
			code = StorageProviderBootstrapErrorInvalidS3Endpoint
		}
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         string(storageCfg.Mode),
		EmulatorHost: storageCfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return StorageProviderBootstrapErrorConnectFailed
}

package objectstore

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

type Mode string

const (
	ModeGCS         Mode = "gcs"
	ModeGCSEmulator Mode = "gcs_emulator"
	ModeS3          Mode = "s3"
	ModeMemory      Mode = "memory"
)

type Config struct {
	Mode                  Mode
	Bucket                string
	EmulatorHost          string
	CompatibilityFallback bool

	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	S3AccessKey string
	S3SecretKey string
}

func IsSupportedMode(mode Mode) bool {
	switch mode {
	case ModeGCS, ModeGCSEmulator, ModeS3, ModeMemory:
		return true
	default:
		return false
	}
}

func (cfg Config) IsEmulatorMode() bool {
	return cfg.Mode == ModeGCSEmulator
}

func (cfg Config) ModeSource() string {
	if cfg.CompatibilityFallback {
		return "compatibility_fallback"
	}
	return "explicit_or_default"
}

type ConfigErrorCode string

const (
	ConfigErrorInvalidMode         ConfigErrorCode = "invalid_mode"
	ConfigErrorMissingBucket       ConfigErrorCode = "missing_bucket"
	ConfigErrorMissingEmulatorHost ConfigErrorCode = "missing_emulator_host"
	ConfigErrorInvalidEmulatorHost ConfigErrorCode = "invalid_emulator_host"
	ConfigErrorInvalidS3Endpoint   ConfigErrorCode = "invalid_s3_endpoint"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Mode  string
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid object storage config"
	}
	switch e.Code {
	case ConfigErrorInvalidMode:
		return fmt.Sprintf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q, %q, %q)",
			e.Mode, ModeGCS, ModeGCSEmulator, ModeS3, ModeMemory)
	case ConfigErrorMissingBucket:
		return "FILES_BUCKET_NAME must not be empty"
	case ConfigErrorMissingEmulatorHost:
		return fmt.Sprintf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST to be set", ModeGCSEmulator)
	case ConfigErrorInvalidEmulatorHost:
		return fmt.Sprintf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", e.Value)
	case ConfigErrorInvalidS3Endpoint:
		return fmt.Sprintf("invalid S3_ENDPOINT=%q; expected absolute URL like http://minio:9000", e.Value)
	default:
		return "invalid object storage config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ResolveConfigFromEnv reads OBJECT_STORAGE_MODE and the provider settings.
// An empty mode falls back to the emulator when STORAGE_EMULATOR_HOST is set,
// else GCS.
func ResolveConfigFromEnv() (Config, error) {
	cfg := Config{
		Bucket:       strings.TrimSpace(os.Getenv("FILES_BUCKET_NAME")),
		EmulatorHost: strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")),
		S3Region:     strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Endpoint:   strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3PathStyle:  strings.EqualFold(strings.TrimSpace(os.Getenv("S3_PATH_STYLE")), "true"),
		S3AccessKey:  strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
		S3SecretKey:  strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "files"
	}

	rawMode := strings.TrimSpace(os.Getenv("OBJECT_STORAGE_MODE"))
	mode := Mode(strings.ToLower(rawMode))
	switch {
	case mode == "" && cfg.EmulatorHost != "":
		cfg.Mode = ModeGCSEmulator
		cfg.CompatibilityFallback = true
	case mode == "":
		cfg.Mode = ModeGCS
	case IsSupportedMode(mode):
		cfg.Mode = mode
	default:
		return cfg, &ConfigError{Code: ConfigErrorInvalidMode, Mode: rawMode}
	}

	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func ValidateConfig(cfg Config) error {
	if !IsSupportedMode(cfg.Mode) {
		return &ConfigError{Code: ConfigErrorInvalidMode, Mode: string(cfg.Mode)}
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return &ConfigError{Code: ConfigErrorMissingBucket, Mode: string(cfg.Mode)}
	}
	switch cfg.Mode {
	case ModeGCSEmulator:
		if cfg.EmulatorHost == "" {
			return &ConfigError{Code: ConfigErrorMissingEmulatorHost, Mode: string(cfg.Mode)}
		}
		if err := requireAbsoluteURL(cfg.EmulatorHost); err != nil {
			return &ConfigError{Code: ConfigErrorInvalidEmulatorHost, Mode: string(cfg.Mode), Value: cfg.EmulatorHost, Cause: err}
		}
	case ModeS3:
		if cfg.S3Endpoint == "" {
			return nil
		}
		if err := requireAbsoluteURL(cfg.S3Endpoint); err != nil {
			return &ConfigError{Code: ConfigErrorInvalidS3Endpoint, Mode: string(cfg.Mode), Value: cfg.S3Endpoint, Cause: err}
		}
	}
	return nil
}

func requireAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return fmt.Errorf("not an absolute URL: %q", raw)
	}
	return nil
}

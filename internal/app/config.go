package app

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/dossier-backend/internal/data/db"
	"github.com/yungbote/dossier-backend/internal/platform/envutil"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
	"github.com/yungbote/dossier-backend/internal/platform/sendgrid"
	"github.com/yungbote/dossier-backend/internal/realtime/bus"
)

const (
	configFileEnv = "CONFIG_FILE"
	zeroOrgID     = "00000000-0000-0000-0000-000000000000"
)

type Config struct {
	Env     string
	Port    string
	Version string

	ServiceURL       string
	ServicePublicKey string
	OrgID            string
	CallbackURL      string

	JWTSecretKey string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	MagicLinkTTL time.Duration

	DB db.Config

	ObjectStorage    objectstore.Config
	ObjectStorageErr error
	MaxUploadBytes   int64

	SendGrid sendgrid.Config
	Redis    bus.Config

	MetricsEnabled bool
	CORSOrigins    []string
	LinkSweep      time.Duration

	// Missing is non-nil when a required key is absent or still a placeholder.
	Missing *ConfigurationMissingError
}

// ConfigurationMissingError lists required keys that are unset or still carry
// a placeholder value.
type ConfigurationMissingError struct {
	Keys []string
}

func (e *ConfigurationMissingError) Error() string {
	if e == nil || len(e.Keys) == 0 {
		return "configuration missing"
	}
	return "configuration missing: " + strings.Join(e.Keys, ", ")
}

// markMissing records key as unusable on top of whatever LoadConfig found.
func (c *Config) markMissing(key string) {
	if c.Missing == nil {
		c.Missing = &ConfigurationMissingError{}
	}
	for _, k := range c.Missing.Keys {
		if k == key {
			return
		}
	}
	c.Missing.Keys = append(c.Missing.Keys, key)
}

func LoadConfig(log *logger.Logger) Config {
	port := envutil.String("PORT", "8080")
	serviceURL := strings.TrimRight(envutil.String("SERVICE_URL", ""), "/")

	cfg := Config{
		Env:     envutil.String("APP_ENV", "development"),
		Port:    port,
		Version: envutil.String("APP_VERSION", "dev"),

		ServiceURL:       serviceURL,
		ServicePublicKey: envutil.String("SERVICE_PUBLIC_KEY", ""),
		OrgID:            envutil.String("ORG_ID", ""),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		AccessTTL:    envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTTL:   envutil.Duration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		MagicLinkTTL: envutil.Duration("MAGIC_LINK_TTL", 15*time.Minute),

		DB: db.Config{
			Driver:     envutil.String("DB_DRIVER", db.DriverPostgres),
			Host:       envutil.String("POSTGRES_HOST", "localhost"),
			Port:       envutil.String("POSTGRES_PORT", "5432"),
			User:       envutil.String("POSTGRES_USER", "postgres"),
			Password:   envutil.String("POSTGRES_PASSWORD", ""),
			Name:       envutil.String("POSTGRES_NAME", "dossiers"),
			SSLMode:    envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath: envutil.String("SQLITE_PATH", ""),
		},

		MaxUploadBytes: int64(envutil.Int("MAX_UPLOAD_MB", 50)) << 20,

		SendGrid: sendgrid.ConfigFromEnv(),
		Redis:    bus.ConfigFromEnv(),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true),
		CORSOrigins:    envutil.List("CORS_ALLOWED_ORIGINS"),
		LinkSweep:      envutil.Duration("MAGIC_LINK_SWEEP_INTERVAL", 10*time.Minute),
	}

	publicBase := envutil.String("PUBLIC_BASE_URL", serviceURL)
	if publicBase == "" {
		publicBase = "http://localhost:" + port
	}
	cfg.CallbackURL = envutil.String("AUTH_CALLBACK_URL", strings.TrimRight(publicBase, "/")+"/api/auth/callback")

	cfg.ObjectStorage, cfg.ObjectStorageErr = objectstore.ResolveConfigFromEnv()
	cfg.Missing = missingKeys(cfg)

	if log != nil {
		log.Info("Configuration loaded",
			"env", cfg.Env,
			"port", cfg.Port,
			"db_driver", cfg.DB.Driver,
			"object_storage_mode", cfg.ObjectStorage.Mode,
			"redis", cfg.Redis.Addr != "",
			"sendgrid", cfg.SendGrid.Configured(),
			"configured", cfg.Missing == nil,
		)
		if cfg.Missing != nil {
			log.Warn("Service is not configured; API routes will answer 503", "missing", cfg.Missing.Keys)
		}
	}
	return cfg
}

func missingKeys(cfg Config) *ConfigurationMissingError {
	var keys []string
	if isPlaceholder(cfg.ServiceURL) {
		keys = append(keys, "SERVICE_URL")
	}
	if isPlaceholder(cfg.ServicePublicKey) || cfg.ServicePublicKey == "public-anon-key" {
		keys = append(keys, "SERVICE_PUBLIC_KEY")
	}
	if isPlaceholder(cfg.OrgID) || cfg.OrgID == zeroOrgID {
		keys = append(keys, "ORG_ID")
	}
	if strings.TrimSpace(cfg.JWTSecretKey) == "" {
		keys = append(keys, "JWT_SECRET_KEY")
	}
	if len(keys) == 0 {
		return nil
	}
	return &ConfigurationMissingError{Keys: keys}
}

func isPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.Contains(strings.ToLower(v), "placeholder")
}

// applyConfigFile exports the flat key/value pairs of the YAML file named by
// CONFIG_FILE into the environment. Variables already set are left alone.
func applyConfigFile() (string, error) {
	path := strings.TrimSpace(os.Getenv(configFileEnv))
	if path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return path, fmt.Errorf("read %s: %w", configFileEnv, err)
	}
	values, err := parseConfigFile(raw)
	if err != nil {
		return path, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, k := range values.keys() {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, values[k]); err != nil {
			return path, fmt.Errorf("set %s: %w", k, err)
		}
	}
	return path, nil
}

type fileValues map[string]string

func (v fileValues) keys() []string {
	out := make([]string, 0, len(v))
	for k := range v {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func parseConfigFile(raw []byte) (fileValues, error) {
	doc := map[string]any{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := fileValues{}
	for k, v := range doc {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key == "" || v == nil {
			continue
		}
		switch tv := v.(type) {
		case []any:
			parts := make([]string, 0, len(tv))
			for _, p := range tv {
				parts = append(parts, fmt.Sprint(p))
			}
			out[key] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("key %q: nested values are not supported", k)
		default:
			out[key] = fmt.Sprint(tv)
		}
	}
	return out, nil
}

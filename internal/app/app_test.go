package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, a *App, method, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	return rec
}

func TestNewUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("LOG_MODE", "test")
	t.Setenv(configFileEnv, "")
	t.Setenv("SERVICE_URL", "")
	t.Setenv("SERVICE_PUBLIC_KEY", "public-anon-key")
	t.Setenv("ORG_ID", zeroOrgID)
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("OBJECT_STORAGE_MODE", "memory")

	a, err := New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.DB != nil {
		t.Fatalf("db: want nil for an unconfigured app")
	}

	rec := serve(t, a, http.MethodGet, "/api/dossiers", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: want=%d got=%d", http.StatusServiceUnavailable, rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != "configuration_missing" {
		t.Fatalf("code: want=%q got=%q", "configuration_missing", envelope.Error.Code)
	}

	rec = serve(t, a, http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status: want=%d got=%d", http.StatusOK, rec.Code)
	}
	var health struct {
		Configured bool     `json:"configured"`
		Missing    []string `json:"missing"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Configured || len(health.Missing) != 3 {
		t.Fatalf("health: got configured=%v missing=%v", health.Configured, health.Missing)
	}
}

func TestNewConfiguredSQLite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("LOG_MODE", "test")
	t.Setenv(configFileEnv, "")
	setConfiguredEnv(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "app.db"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SENDGRID_API_KEY", "")

	a, err := New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rec := serve(t, a, http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status: want=%d got=%d", http.StatusOK, rec.Code)
	}

	rec = serve(t, a, http.MethodGet, "/api/dossiers", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no apikey: want=%d got=%d", http.StatusUnauthorized, rec.Code)
	}

	rec = serve(t, a, http.MethodGet, "/api/dossiers", map[string]string{"apikey": "pk_live_123"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no session: want=%d got=%d", http.StatusUnauthorized, rec.Code)
	}

	rec = serve(t, a, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: want=%d got=%d", http.StatusOK, rec.Code)
	}
}

func TestNewUnreadableConfigFileServesUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("LOG_MODE", "test")
	setConfiguredEnv(t)
	t.Setenv(configFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	a, err := New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	rec := serve(t, a, http.MethodGet, "/api/dossiers", map[string]string{"apikey": "pk_live_123"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: want=%d got=%d", http.StatusServiceUnavailable, rec.Code)
	}
	var health struct {
		Configured bool     `json:"configured"`
		Missing    []string `json:"missing"`
	}
	rec = serve(t, a, http.MethodGet, "/healthcheck", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Configured || len(health.Missing) != 1 || health.Missing[0] != configFileEnv {
		t.Fatalf("health: got configured=%v missing=%v", health.Configured, health.Missing)
	}
}

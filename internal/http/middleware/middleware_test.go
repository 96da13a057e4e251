package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/requestdata"
)

func TestRequireAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/ping", RequireAPIKey("pk_test"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"header", "pk_test", "", http.StatusNoContent},
		{"query", "", "?apikey=pk_test", http.StatusNoContent},
		{"wrong", "pk_other", "", http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/ping"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("apikey", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status: want=%d got=%d", tc.want, rec.Code)
			}
		})
	}
}

func TestRequireAPIKeyDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/ping", RequireAPIKey(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: want=%d got=%d", http.StatusNoContent, rec.Code)
	}
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen requestdata.RequestData
	r.GET("/x", func(c *gin.Context) {
		if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil {
			seen = *rd
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen.RequestID != "req-42" {
		t.Fatalf("request id: want=%q got=%q", "req-42", seen.RequestID)
	}
	if seen.TraceID != "req-42" {
		t.Fatalf("trace id: want=%q got=%q", "req-42", seen.TraceID)
	}
	if got := rec.Header().Get(headerRequestID); got != "req-42" {
		t.Fatalf("response header: want=%q got=%q", "req-42", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerTraceID, "trace-7")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if seen.TraceID != "trace-7" || seen.RequestID == "" {
		t.Fatalf("ids: got trace=%q request=%q", seen.TraceID, seen.RequestID)
	}
}

func TestRequireConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/x", RequireConfigured(http.ErrNoLocation), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: want=%d got=%d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestMetricsCountsStreamsWithoutLatency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/events", func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Status(http.StatusOK)
	})
	r.GET("/api/dossiers", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/events", "/api/dossiers"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	n, err := testutil.GatherAndCount(m.Registry(), "http_request_duration_seconds")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Fatalf("latency series: want=1 got=%d", n)
	}
	n, err = testutil.GatherAndCount(m.Registry(), "http_requests_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 2 {
		t.Fatalf("request series: want=2 got=%d", n)
	}
}

package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAPI(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("GET", "/api/dossiers", "200", 10*time.Millisecond)
	m.ObserveAPI("GET", "/api/dossiers", "200", 20*time.Millisecond)

	got := testutil.ToFloat64(m.apiRequests.WithLabelValues("GET", "/api/dossiers", "200"))
	if got != 2 {
		t.Fatalf("http_requests_total: want=2 got=%v", got)
	}
}

func TestObserveStorageOpOutcome(t *testing.T) {
	m := NewMetrics()
	m.ObserveStorageOp("patch", nil)
	m.ObserveStorageOp("patch", errors.New("boom"))
	m.ObserveStorageOp("patch", errors.New("boom"))

	if got := testutil.ToFloat64(m.storageOps.WithLabelValues("patch", "ok")); got != 1 {
		t.Fatalf("ok: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.storageOps.WithLabelValues("patch", "error")); got != 2 {
		t.Fatalf("error: want=2 got=%v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ObserveStorageOp("list", nil)
	m.ApiInflightInc()
	m.SSEClientConnected()
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("a=1, b = 2 ,bad,=x")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("parseHeaders: got=%v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("parseHeaders(empty): want nil")
	}
}

func TestObserveAPIStreamSkipsLatency(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("GET", "/api/events", "200", -1)

	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("GET", "/api/events", "200")); got != 1 {
		t.Fatalf("http_requests_total: want=1 got=%v", got)
	}
	if got := testutil.CollectAndCount(m.apiLatency); got != 0 {
		t.Fatalf("http_request_duration_seconds series: want=0 got=%d", got)
	}
}

func TestObjectStorageBootstrap(t *testing.T) {
	m := NewMetrics()
	m.ObserveObjectStorageProviderBootstrap("s3", "error", "connect_failed")
	m.ObserveObjectStorageProviderBootstrap("s3", "success", "none")

	if got := testutil.ToFloat64(m.storageBoot.WithLabelValues("s3", "error", "connect_failed")); got != 1 {
		t.Fatalf("bootstrap error: want=1 got=%v", got)
	}
	m.SetObjectStorageModeActive("memory")
	m.SetObjectStorageModeActive("s3")
	if got := testutil.CollectAndCount(m.storageReady); got != 1 {
		t.Fatalf("object_storage_mode_active series: want=1 got=%d", got)
	}
}

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry     *prometheus.Registry
	apiRequests  *prometheus.CounterVec
	apiLatency   *prometheus.HistogramVec
	apiInflight  prometheus.Gauge
	storageOps   *prometheus.CounterVec
	authEvents   *prometheus.CounterVec
	sseClients   prometheus.Gauge
	storageReady *prometheus.GaugeVec
	storageBoot  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "HTTP requests currently being served.",
		}),
		storageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storage_operations_total",
			Help: "Storage client operations by op and outcome.",
		}, []string{"op", "outcome"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Session change notifications published.",
		}, []string{"kind"}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sse_clients_connected",
			Help: "Open event stream connections.",
		}),
		storageReady: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "object_storage_mode_active",
			Help: "1 for the object storage provider in use.",
		}, []string{"mode"}),
		storageBoot: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "object_storage_provider_bootstrap_total",
			Help: "Object storage provider bootstrap attempts by mode, outcome and error code.",
		}, []string{"mode", "outcome", "code"}),
	}
	reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.storageOps, m.authEvents, m.sseClients, m.storageReady, m.storageBoot,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

// ObserveAPI counts one request. A negative d skips the latency histogram.
func (m *Metrics) ObserveAPI(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	if d >= 0 {
		m.apiLatency.WithLabelValues(method, route).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveStorageOp(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.storageOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveAuthEvent(kind string) {
	if m != nil {
		m.authEvents.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SSEClientConnected() {
	if m != nil {
		m.sseClients.Inc()
	}
}

func (m *Metrics) SSEClientDisconnected() {
	if m != nil {
		m.sseClients.Dec()
	}
}

func (m *Metrics) SetObjectStorageModeActive(mode string) {
	if m == nil {
		return
	}
	m.storageReady.Reset()
	m.storageReady.WithLabelValues(mode).Set(1)
}

func (m *Metrics) ObserveObjectStorageProviderBootstrap(mode, outcome, code string) {
	if m != nil {
		m.storageBoot.WithLabelValues(mode, outcome, code).Inc()
	}
}

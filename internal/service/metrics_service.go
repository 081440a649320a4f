package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

// MetricsSnapshot is a lightweight view of process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64                        `json:"requestsTotal"`
	AverageRequestDurationMs float64                       `json:"averageRequestDurationMs"`
	AccessDecisions          map[models.AccessLevel]uint64 `json:"accessDecisions"`
	VersionsUploaded         uint64                        `json:"versionsUploaded"`
	BlobCleanups             uint64                        `json:"blobCleanups"`
	BlobCleanupFailures      uint64                        `json:"blobCleanupFailures"`
	Goroutines               int                           `json:"goroutines"`
	GeneratedAt              time.Time                     `json:"generatedAt"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	accessDecisions  *prometheus.CounterVec
	versionsUploaded prometheus.Counter
	blobCleanups     *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	decisionNone         uint64
	decisionView         uint64
	decisionEdit         uint64
	decisionManage       uint64
	versionCount         uint64
	cleanupOK            uint64
	cleanupFailed        uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	accessDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "document_access_decisions_total",
		Help: "Effective access levels resolved for document requests",
	}, []string{"level"})

	versionsUploaded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_versions_uploaded_total",
		Help: "Document versions promoted to current",
	})

	blobCleanups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blob_cleanup_jobs_total",
		Help: "Blob cleanup jobs by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, accessDecisions, versionsUploaded, blobCleanups, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		accessDecisions:  accessDecisions,
		versionsUploaded: versionsUploaded,
		blobCleanups:     blobCleanups,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordAccessDecision counts one resolved effective access level.
func (m *MetricsService) RecordAccessDecision(level models.AccessLevel) {
	if m == nil {
		return
	}
	switch level {
	case models.AccessView:
		atomic.AddUint64(&m.decisionView, 1)
	case models.AccessEdit:
		atomic.AddUint64(&m.decisionEdit, 1)
	case models.AccessManage:
		atomic.AddUint64(&m.decisionManage, 1)
	default:
		level = models.AccessNone
		atomic.AddUint64(&m.decisionNone, 1)
	}
	m.accessDecisions.WithLabelValues(string(level)).Inc()
}

// RecordVersionUploaded counts a promoted version.
func (m *MetricsService) RecordVersionUploaded() {
	if m == nil {
		return
	}
	m.versionsUploaded.Inc()
	atomic.AddUint64(&m.versionCount, 1)
}

// RecordBlobCleanup counts a finished cleanup job.
func (m *MetricsService) RecordBlobCleanup(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.blobCleanups.WithLabelValues("failed").Inc()
		atomic.AddUint64(&m.cleanupFailed, 1)
		return
	}
	m.blobCleanups.WithLabelValues("deleted").Inc()
	atomic.AddUint64(&m.cleanupOK, 1)
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		AccessDecisions: map[models.AccessLevel]uint64{
			models.AccessNone:   atomic.LoadUint64(&m.decisionNone),
			models.AccessView:   atomic.LoadUint64(&m.decisionView),
			models.AccessEdit:   atomic.LoadUint64(&m.decisionEdit),
			models.AccessManage: atomic.LoadUint64(&m.decisionManage),
		},
		VersionsUploaded:    atomic.LoadUint64(&m.versionCount),
		BlobCleanups:        atomic.LoadUint64(&m.cleanupOK),
		BlobCleanupFailures: atomic.LoadUint64(&m.cleanupFailed),
		Goroutines:          runtime.NumGoroutine(),
		GeneratedAt:         time.Now().UTC(),
	}
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ems-docs-api/internal/service"
	"github.com/noah-isme/ems-docs-api/pkg/jobs"
)

type pingerStub struct{ err error }

func (p pingerStub) PingContext(ctx context.Context) error { return p.err }

type cleanupStatsStub struct{ stats jobs.Stats }

func (s cleanupStatsStub) Stats() jobs.Stats { return s.stats }

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, pingerStub{}, nil)
	c, w := newTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")}, nil)
	c, w = newTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsHandlerPrometheusDisabled(t *testing.T) {
	h := NewMetricsHandler(nil, nil, nil)
	c, w := newTestContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsHandlerStats(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordVersionUploaded()
	h := NewMetricsHandler(metrics, nil, cleanupStatsStub{stats: jobs.Stats{Succeeded: 4, Failed: 1}})

	c, w := newTestContext(http.MethodGet, "/admin/stats", nil)
	h.Stats(c)

	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		Metrics     service.MetricsSnapshot `json:"metrics"`
		BlobCleanup jobs.Stats              `json:"blobCleanup"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Success.Data, &payload))
	assert.Equal(t, uint64(1), payload.Metrics.VersionsUploaded)
	assert.Equal(t, uint64(4), payload.BlobCleanup.Succeeded)
}

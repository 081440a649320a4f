package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ems-docs-api/internal/service"
	"github.com/noah-isme/ems-docs-api/pkg/jobs"
	"github.com/noah-isme/ems-docs-api/pkg/response"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type cleanupStats interface {
	Stats() jobs.Stats
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      pinger
	cleanup cleanupStats
}

// NewMetricsHandler constructs a metrics handler. db and cleanup may be nil.
func NewMetricsHandler(metrics *service.MetricsService, db pinger, cleanup cleanupStats) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, cleanup: cleanup}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness checks.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the database answers.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Stats godoc
// @Summary Operational counters
// @Tags Observability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *MetricsHandler) Stats(c *gin.Context) {
	payload := gin.H{}
	if h.metrics != nil {
		payload["metrics"] = h.metrics.Snapshot()
	}
	if h.cleanup != nil {
		payload["blobCleanup"] = h.cleanup.Stats()
	}
	response.OK(c, "stats loaded", payload)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResult represents the result of a health check.
type HealthCheckResult struct {
	Status   HealthStatus `json:"status"`
	Duration string       `json:"duration,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status HealthStatus                  `json:"status"`
	Checks map[string]*HealthCheckResult `json:"checks,omitempty"`
}

// Pinger verifies one upstream dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health-related HTTP endpoints. The record store is
// the gateway's one hard dependency; release sources degrade per-request and
// are not health-gating.
type HealthHandler struct {
	recordStore Pinger
	logger      zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler. recordStore may be nil when
// the gateway runs without license enforcement (local development).
func NewHealthHandler(recordStore Pinger, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		recordStore: recordStore,
		logger:      logger.With().Str("component", "health_handler").Logger(),
	}
}

// RegisterPublicRoutes registers health check routes.
func (h *HealthHandler) RegisterPublicRoutes(r *gin.Engine) {
	r.GET("/health", h.Overall)
	r.GET("/healthz", h.Liveness)
}

// Liveness reports that the process is up, with no upstream calls.
// GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": HealthStatusHealthy})
}

// Overall returns the overall gateway health status.
// GET /health
func (h *HealthHandler) Overall(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := &HealthResponse{
		Status: HealthStatusHealthy,
		Checks: map[string]*HealthCheckResult{
			"record_store": h.checkRecordStore(ctx),
		},
	}

	if response.Checks["record_store"].Status == HealthStatusUnhealthy {
		response.Status = HealthStatusUnhealthy
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) checkRecordStore(ctx context.Context) *HealthCheckResult {
	start := time.Now()
	result := &HealthCheckResult{Status: HealthStatusHealthy}

	if h.recordStore == nil {
		result.Error = "record store not configured"
		result.Duration = time.Since(start).String()
		return result
	}

	err := h.recordStore.Ping(ctx)
	result.Duration = time.Since(start).String()

	if err != nil {
		result.Status = HealthStatusUnhealthy
		result.Error = "record store unreachable"
		h.logger.Warn().Err(err).Msg("record store health check failed")
	}

	return result
}

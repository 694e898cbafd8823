package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/license"
	"github.com/nexuslabs/nexus-gateway/internal/metrics"
)

// LicenseValidator runs the full validation pipeline for one request.
type LicenseValidator interface {
	Validate(ctx context.Context, req license.Request) (*license.Verdict, error)
}

// LicenseHandler handles license activation and validation endpoints.
type LicenseHandler struct {
	validator LicenseValidator
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewLicenseHandler creates a new LicenseHandler.
func NewLicenseHandler(validator LicenseValidator, m *metrics.Metrics, logger zerolog.Logger) *LicenseHandler {
	return &LicenseHandler{
		validator: validator,
		metrics:   m,
		logger:    logger.With().Str("component", "license_handler").Logger(),
	}
}

// RegisterPublicRoutes registers license routes.
func (h *LicenseHandler) RegisterPublicRoutes(r *gin.Engine) {
	r.POST("/api/license/validate", h.Validate)
}

type validateRequest struct {
	Key        string `json:"key"`
	HardwareID string `json:"hardware_id"`
	AppVersion string `json:"app_version"`
}

type validateResponse struct {
	Valid            bool   `json:"valid"`
	Plan             string `json:"plan"`
	Tier             string `json:"tier"`
	Email            string `json:"email,omitempty"`
	MachineLocked    bool   `json:"machine_locked"`
	HardwareIDMasked string `json:"hardware_id_masked,omitempty"`
	ManageURL        string `json:"manage_url,omitempty"`
}

// Validate activates or re-validates a license for a machine.
// POST /api/license/validate
func (h *LicenseHandler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.Validations.WithLabelValues(string(license.CodeInvalidFormat)).Inc()
		writeError(c, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	verdict, err := h.validator.Validate(c.Request.Context(), license.Request{
		Key:          req.Key,
		HardwareID:   req.HardwareID,
		AppVersion:   req.AppVersion,
		BindHardware: true,
	})
	if err != nil {
		h.metrics.Validations.WithLabelValues(outcomeLabel(err)).Inc()
		writeLicenseError(c, err)
		return
	}

	h.metrics.Validations.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, validateResponse{
		Valid:            true,
		Plan:             string(verdict.Plan),
		Tier:             string(verdict.Tier),
		Email:            verdict.Email,
		MachineLocked:    verdict.MachineLocked,
		HardwareIDMasked: verdict.HardwareIDMasked,
	})
}

func outcomeLabel(err error) string {
	var vErr *license.Error
	if errors.As(err, &vErr) {
		return string(vErr.Code)
	}
	return string(license.CodeUpstreamFailure)
}

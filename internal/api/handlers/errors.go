package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexuslabs/nexus-gateway/internal/license"
)

// errorResponse is the JSON error shape shared by every endpoint.
type errorResponse struct {
	Valid            bool   `json:"valid"`
	Code             string `json:"code"`
	Error            string `json:"error"`
	HardwareIDMasked string `json:"hardware_id_masked,omitempty"`
	ManageURL        string `json:"manage_url,omitempty"`
}

// Gateway-level error codes, continuing the validator's taxonomy.
const (
	codeTokenInvalid          = "token_invalid"
	codeTokenScopeMismatch    = "token_scope_mismatch"
	codeArtifactNotConfigured = "artifact_not_configured"
	codeBadRequest            = "bad_request"
	codeUpstreamFailure       = "upstream_failure"
)

// writeLicenseError renders a validation failure with its mapped status. The
// feed endpoint propagates these verbatim, so the validator's body is the one
// source of truth for license error shapes.
func writeLicenseError(c *gin.Context, err error) int {
	var vErr *license.Error
	if !errors.As(err, &vErr) {
		c.JSON(http.StatusInternalServerError, errorResponse{Code: codeUpstreamFailure, Error: "validation failed"})
		return http.StatusInternalServerError
	}

	status := vErr.HTTPStatus()
	c.JSON(status, errorResponse{
		Code:             string(vErr.Code),
		Error:            vErr.Message,
		HardwareIDMasked: vErr.HardwareIDMasked,
		ManageURL:        vErr.ManageURL,
	})
	return status
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, errorResponse{Code: code, Error: msg})
}

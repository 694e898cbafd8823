package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/license"
	"github.com/nexuslabs/nexus-gateway/internal/metrics"
	"github.com/nexuslabs/nexus-gateway/internal/models"
	"github.com/nexuslabs/nexus-gateway/internal/token"
)

// TokenVerifier checks a presented download token.
type TokenVerifier interface {
	Verify(tok string) (*token.Payload, error)
}

// AssetOpener starts an authenticated fetch of a release-host asset.
type AssetOpener interface {
	OpenAsset(ctx context.Context, assetID int64) (*http.Response, error)
}

// Presigner mints short-lived object storage download links.
type Presigner interface {
	PresignDownload(ctx context.Context, bucket, objectKey string) (string, error)
}

// DownloadHandler serves artifact downloads gated by capability tokens, plus
// the legacy tokenless path that re-runs full license validation.
type DownloadHandler struct {
	verifier  TokenVerifier
	assets    AssetOpener
	presigner Presigner
	validator LicenseValidator
	resolver  ReleaseResolver
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewDownloadHandler creates a new DownloadHandler. assets and presigner may
// be nil when the matching source is not configured.
func NewDownloadHandler(verifier TokenVerifier, assets AssetOpener, presigner Presigner, validator LicenseValidator, resolver ReleaseResolver, m *metrics.Metrics, logger zerolog.Logger) *DownloadHandler {
	return &DownloadHandler{
		verifier:  verifier,
		assets:    assets,
		presigner: presigner,
		validator: validator,
		resolver:  resolver,
		metrics:   m,
		logger:    logger.With().Str("component", "download_handler").Logger(),
	}
}

// RegisterPublicRoutes registers the canonical and legacy download routes.
func (h *DownloadHandler) RegisterPublicRoutes(r *gin.Engine) {
	r.GET("/update/download", h.Download)
	r.GET("/api/update/download", h.Download)
}

// Download verifies the capability token's signature, expiry, and scope, then
// redirects to or streams the artifact. Clients that omit the token entirely
// fall back to the legacy path.
// GET /update/download?channel=&platform=&arch=&artifact=&t=
func (h *DownloadHandler) Download(c *gin.Context) {
	channel, platform, arch, err := parseTuple(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	artifact := c.Query("artifact")

	tok := c.Query("t")
	if tok == "" {
		h.legacyDownload(c, channel, platform, arch)
		return
	}

	payload, err := h.verifier.Verify(tok)
	if err != nil {
		// One rejection for bad signature, expiry, and malformation alike.
		h.countDownload("unknown", http.StatusUnauthorized)
		writeError(c, http.StatusUnauthorized, codeTokenInvalid, "download token rejected")
		return
	}

	if !payload.Matches(channel, platform, arch, artifact) {
		h.countDownload(string(payload.Source), http.StatusForbidden)
		writeError(c, http.StatusForbidden, codeTokenScopeMismatch, "token does not cover the requested artifact")
		return
	}

	h.serve(c, payload)
}

// legacyDownload authorizes pre-token clients by re-running full license
// validation, then resolves the tuple fresh.
func (h *DownloadHandler) legacyDownload(c *gin.Context, channel models.Channel, platform models.Platform, arch models.Arch) {
	creds := extractCredentials(c)
	_, err := h.validator.Validate(c.Request.Context(), license.Request{
		Key:          creds.Key,
		HardwareID:   creds.HardwareID,
		AppVersion:   creds.AppVersion,
		BindHardware: true,
	})
	if err != nil {
		h.metrics.Validations.WithLabelValues(outcomeLabel(err)).Inc()
		h.countDownload("legacy", writeLicenseError(c, err))
		return
	}
	h.metrics.Validations.WithLabelValues("ok").Inc()

	cfg, _, err := h.resolver.Resolve(c.Request.Context(), channel, platform, arch, c.Query("manifest"))
	if err != nil || cfg == nil {
		if err != nil {
			h.logger.Error().Err(err).Msg("legacy download resolution failed")
		}
		h.countDownload("legacy", http.StatusNotFound)
		writeError(c, http.StatusNotFound, codeArtifactNotConfigured, "no update configured for this tuple")
		return
	}

	payload := payloadFromConfig(cfg)
	h.serve(c, &payload)
}

// serve fetches the artifact per the token's provenance: release-host assets
// are fetched authenticated and either streamed or their CDN redirect
// forwarded untouched; static and bucket artifacts redirect.
func (h *DownloadHandler) serve(c *gin.Context, payload *token.Payload) {
	source := string(payload.Source)

	switch payload.Source {
	case models.SourceGitHub:
		if h.assets == nil || payload.AssetID == 0 {
			h.countDownload(source, http.StatusBadGateway)
			writeError(c, http.StatusBadGateway, codeUpstreamFailure, "release host not configured")
			return
		}

		resp, err := h.assets.OpenAsset(c.Request.Context(), payload.AssetID)
		if err != nil {
			h.countDownload(source, http.StatusBadGateway)
			writeError(c, http.StatusBadGateway, codeUpstreamFailure, "artifact fetch failed")
			return
		}
		defer resp.Body.Close()

		if location := resp.Header.Get("Location"); resp.StatusCode >= 300 && resp.StatusCode < 400 && location != "" {
			h.countDownload(source, http.StatusFound)
			c.Redirect(http.StatusFound, location)
			return
		}

		if resp.StatusCode != http.StatusOK {
			h.logger.Error().Int("status", resp.StatusCode).Int64("asset_id", payload.AssetID).Msg("release host refused asset")
			h.countDownload(source, http.StatusBadGateway)
			writeError(c, http.StatusBadGateway, codeUpstreamFailure, "release host refused the artifact")
			return
		}

		h.countDownload(source, http.StatusOK)
		h.streamAsset(c, resp, payload.AssetName)

	case models.SourceS3:
		if h.presigner == nil {
			h.countDownload(source, http.StatusBadGateway)
			writeError(c, http.StatusBadGateway, codeUpstreamFailure, "object storage not configured")
			return
		}
		url, err := h.presigner.PresignDownload(c.Request.Context(), payload.Bucket, payload.ObjectKey)
		if err != nil {
			h.logger.Error().Err(err).Msg("presign failed")
			h.countDownload(source, http.StatusBadGateway)
			writeError(c, http.StatusBadGateway, codeUpstreamFailure, "could not presign download")
			return
		}
		h.countDownload(source, http.StatusFound)
		c.Redirect(http.StatusFound, url)

	default:
		// Static configuration carries an absolute artifact URL.
		if payload.FileURL == "" {
			h.countDownload(source, http.StatusNotFound)
			writeError(c, http.StatusNotFound, codeArtifactNotConfigured, "artifact location unknown")
			return
		}
		h.countDownload(source, http.StatusFound)
		c.Redirect(http.StatusFound, payload.FileURL)
	}
}

// streamAsset proxies the binary body through, mirroring the upstream's
// content headers.
func (h *DownloadHandler) streamAsset(c *gin.Context, resp *http.Response, assetName string) {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	disposition := resp.Header.Get("Content-Disposition")
	if disposition == "" && assetName != "" {
		disposition = fmt.Sprintf("attachment; filename=%q", assetName)
	}

	extra := map[string]string{}
	if disposition != "" {
		extra["Content-Disposition"] = disposition
	}

	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, extra)
}

func (h *DownloadHandler) countDownload(source string, status int) {
	h.metrics.Downloads.WithLabelValues(source, strconv.Itoa(status)).Inc()
}

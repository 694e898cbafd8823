package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/license"
	"github.com/nexuslabs/nexus-gateway/internal/metrics"
	"github.com/nexuslabs/nexus-gateway/internal/models"
	"github.com/nexuslabs/nexus-gateway/internal/release"
	"github.com/nexuslabs/nexus-gateway/internal/token"
)

// ReleaseResolver computes the current artifact for a tuple.
type ReleaseResolver interface {
	Resolve(ctx context.Context, channel models.Channel, platform models.Platform, arch models.Arch, manifestHint string) (*models.UpdateConfig, *release.Diagnostics, error)
}

// FeedHandler serves signed update feed manifests. Every feed request runs
// full license validation with hardware binding before any release lookup.
type FeedHandler struct {
	validator     LicenseValidator
	resolver      ReleaseResolver
	signer        *token.Signer
	publicBaseURL string
	tokenTTL      time.Duration
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(validator LicenseValidator, resolver ReleaseResolver, signer *token.Signer, publicBaseURL string, tokenTTL time.Duration, m *metrics.Metrics, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		validator:     validator,
		resolver:      resolver,
		signer:        signer,
		publicBaseURL: publicBaseURL,
		tokenTTL:      tokenTTL,
		metrics:       m,
		logger:        logger.With().Str("component", "feed_handler").Logger(),
	}
}

// RegisterPublicRoutes registers the canonical and legacy feed routes. All
// shapes serve the same manifest body.
func (h *FeedHandler) RegisterPublicRoutes(r *gin.Engine) {
	r.GET("/api/update/feed", h.Feed)
	r.GET("/update/feed", h.Feed)
	r.GET("/update/:channel/:platform/:arch", h.Feed)
}

// Feed validates the license, resolves the tuple's artifact, and emits a
// manifest whose download URL carries a freshly minted capability token.
// GET /api/update/feed?channel=&platform=&arch=&manifest=&debug=
func (h *FeedHandler) Feed(c *gin.Context) {
	channel, platform, arch, err := parseTuple(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	count := func(status int) {
		h.metrics.FeedRequests.WithLabelValues(string(channel), string(platform), string(arch), strconv.Itoa(status)).Inc()
	}

	creds := extractCredentials(c)
	_, err = h.validator.Validate(c.Request.Context(), license.Request{
		Key:          creds.Key,
		HardwareID:   creds.HardwareID,
		AppVersion:   creds.AppVersion,
		BindHardware: true,
	})
	if err != nil {
		h.metrics.Validations.WithLabelValues(outcomeLabel(err)).Inc()
		count(writeLicenseError(c, err))
		return
	}
	h.metrics.Validations.WithLabelValues("ok").Inc()

	debug := c.Query("debug") == "1"
	cfg, diag, err := h.resolver.Resolve(c.Request.Context(), channel, platform, arch, c.Query("manifest"))
	if err != nil || cfg == nil {
		// Upstream resolution failures read as "nothing configured" to the
		// updater; the reason is only exposed on explicit debug requests.
		if err != nil {
			h.logger.Error().Err(err).
				Str("channel", string(channel)).
				Str("platform", string(platform)).
				Str("arch", string(arch)).
				Msg("release resolution failed")
		}
		count(http.StatusNotFound)
		body := gin.H{"valid": false, "code": codeArtifactNotConfigured, "error": "no update configured for this tuple"}
		if debug {
			body["resolution"] = diag
		}
		c.JSON(http.StatusNotFound, body)
		return
	}

	payload := payloadFromConfig(cfg)
	payload.Exp = time.Now().Add(h.tokenTTL).UnixMilli()
	tok, err := h.signer.Sign(payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("token signing failed")
		count(http.StatusInternalServerError)
		writeError(c, http.StatusInternalServerError, codeUpstreamFailure, "could not issue download token")
		return
	}

	q := url.Values{}
	q.Set("channel", string(channel))
	q.Set("platform", string(platform))
	q.Set("arch", string(arch))
	q.Set("artifact", payload.Artifact)
	q.Set("t", tok)
	downloadURL := h.publicBaseURL + "/update/download?" + q.Encode()

	manifest := release.RenderManifest(cfg, downloadURL)
	count(http.StatusOK)

	if debug {
		c.JSON(http.StatusOK, gin.H{
			"source":     cfg.Source,
			"version":    cfg.Version,
			"resolution": diag,
			"manifest":   manifest,
		})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/yaml; charset=utf-8", []byte(manifest))
}

// payloadFromConfig scopes a token to the resolved artifact, carrying enough
// provenance that the download step never re-resolves.
func payloadFromConfig(cfg *models.UpdateConfig) token.Payload {
	artifact := cfg.AssetName
	if artifact == "" {
		artifact = cfg.FileName
	}
	if artifact == "" {
		artifact = models.LastPathSegment(cfg.FileURL)
	}

	return token.Payload{
		Channel:    cfg.Channel,
		Platform:   cfg.Platform,
		Arch:       cfg.Arch,
		Artifact:   artifact,
		Source:     cfg.Source,
		Owner:      cfg.Owner,
		Repo:       cfg.Repo,
		AssetID:    cfg.AssetID,
		AssetName:  cfg.AssetName,
		ReleaseTag: cfg.ReleaseTag,
		FileURL:    cfg.FileURL,
		Bucket:     cfg.Bucket,
		ObjectKey:  cfg.ObjectKey,
	}
}

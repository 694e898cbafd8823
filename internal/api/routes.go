// Package api provides the HTTP surface of the Nexus update gateway.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/api/handlers"
	"github.com/nexuslabs/nexus-gateway/internal/api/middleware"
	"github.com/nexuslabs/nexus-gateway/internal/config"
	"github.com/nexuslabs/nexus-gateway/internal/metrics"
	"github.com/nexuslabs/nexus-gateway/internal/token"
)

// Config holds configuration for the API router.
type Config struct {
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means all origins allowed in dev mode.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m").
	RateLimitPeriod string
	// RedisURL switches rate limit counters to Redis when set.
	RedisURL string

	// PublicBaseURL prefixes the download URLs embedded in feed manifests.
	PublicBaseURL string
	// TokenTTL is the validity window of minted download tokens.
	TokenTTL time.Duration

	// Version information for the version endpoint.
	Version   string
	Commit    string
	BuildDate string
}

// Deps are the gateway's wired components. RecordStore, Assets, and
// Presigner are optional; handlers degrade per-source when they are absent.
type Deps struct {
	Validator   handlers.LicenseValidator
	Resolver    handlers.ReleaseResolver
	Signer      *token.Signer
	RecordStore handlers.Pinger
	Assets      handlers.AssetOpener
	Presigner   handlers.Presigner
	Metrics     *metrics.Metrics
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies.
func NewRouter(cfg Config, deps Deps, logger zerolog.Logger) (*Router, error) {
	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestIDMiddleware())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment))

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	healthHandler := handlers.NewHealthHandler(deps.RecordStore, logger)
	healthHandler.RegisterPublicRoutes(r.Engine)

	versionHandler := handlers.NewVersionHandler(cfg.Version, cfg.Commit, cfg.BuildDate, logger)
	versionHandler.RegisterPublicRoutes(r.Engine)

	r.Engine.GET("/metrics", deps.Metrics.Handler())

	licenseHandler := handlers.NewLicenseHandler(deps.Validator, deps.Metrics, logger)
	licenseHandler.RegisterPublicRoutes(r.Engine)

	feedHandler := handlers.NewFeedHandler(deps.Validator, deps.Resolver, deps.Signer, cfg.PublicBaseURL, cfg.TokenTTL, deps.Metrics, logger)
	feedHandler.RegisterPublicRoutes(r.Engine)

	downloadHandler := handlers.NewDownloadHandler(deps.Signer, deps.Assets, deps.Presigner, deps.Validator, deps.Resolver, deps.Metrics, logger)
	downloadHandler.RegisterPublicRoutes(r.Engine)

	return r, nil
}

// Package main is the entrypoint for the Nexus update gateway: the
// license-gated update feed, activation, and download service for the Nexus
// desktop app.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/api"
	"github.com/nexuslabs/nexus-gateway/internal/config"
	"github.com/nexuslabs/nexus-gateway/internal/license"
	"github.com/nexuslabs/nexus-gateway/internal/metrics"
	"github.com/nexuslabs/nexus-gateway/internal/models"
	"github.com/nexuslabs/nexus-gateway/internal/release"
	"github.com/nexuslabs/nexus-gateway/internal/store"
	"github.com/nexuslabs/nexus-gateway/internal/token"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("Starting Nexus gateway")

	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	if cfg.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.RecordStoreURL == "" {
		logger.Error().Msg("RECORD_STORE_URL environment variable is required")
		return 1
	}
	records, err := store.NewClient(store.Config{
		BaseURL:  cfg.RecordStoreURL,
		APIKey:   cfg.RecordStoreKey,
		Table:    cfg.RecordStoreTable,
		Timeout:  cfg.HTTPTimeout,
		ProxyURL: cfg.EgressProxy,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create record store client")
		return 1
	}

	// Billing is optional: without it, subscription liveness is skipped and
	// the validator logs a warning per subscription-plan validation.
	var subs license.SubscriptionChecker
	if cfg.BillingAPIURL != "" {
		billing, err := store.NewBillingClient(store.BillingConfig{
			BaseURL:  cfg.BillingAPIURL,
			APIKey:   cfg.BillingAPIKey,
			Timeout:  cfg.HTTPTimeout,
			ProxyURL: cfg.EgressProxy,
		}, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create billing client")
			return 1
		}
		subs = billing
	}

	validator := license.NewValidator(records, subs, cfg.ManageURL, logger)

	var (
		strategies []release.Strategy
		assets     *release.GitHubClient
		presigner  *release.S3Strategy
	)
	for _, source := range cfg.UpdateStrategies {
		switch source {
		case models.SourceEnv:
			strategies = append(strategies, release.NewEnvStrategy(cfg.StaticUpdates, logger))
		case models.SourceGitHub:
			client, err := release.NewGitHubClient(release.GitHubConfig{
				Owner:           cfg.GitHubOwner,
				Repo:            cfg.GitHubRepo,
				Token:           cfg.GitHubToken,
				Timeout:         cfg.HTTPTimeout,
				DownloadTimeout: cfg.DownloadTimeout,
				ProxyURL:        cfg.EgressProxy,
			}, logger)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to create release host client")
				return 1
			}
			assets = client
			strategies = append(strategies, release.NewGitHubStrategy(client, logger))
		case models.SourceS3:
			if cfg.S3Bucket == "" {
				logger.Warn().Msg("UPDATE_SOURCE includes s3 but S3_BUCKET is unset, skipping")
				continue
			}
			s3strat, err := release.NewS3Strategy(ctx, release.S3Config{
				Bucket: cfg.S3Bucket,
				Prefix: cfg.S3Prefix,
				Region: cfg.S3Region,
			}, logger)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to create s3 strategy")
				return 1
			}
			presigner = s3strat
			strategies = append(strategies, s3strat)
		}
	}
	resolver := release.NewResolver(strategies, logger)

	m := metrics.New()

	router, err := api.NewRouter(api.Config{
		Environment:       cfg.Environment,
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitPeriod:   cfg.RateLimitPeriod,
		RedisURL:          cfg.RedisURL,
		PublicBaseURL:     cfg.PublicBaseURL,
		TokenTTL:          cfg.TokenTTL,
		Version:           Version,
		Commit:            Commit,
		BuildDate:         BuildDate,
	}, buildDeps(validator, resolver, token.NewSigner(cfg.SigningSecret), records, assets, presigner, m), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build router")
		return 1
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Streamed artifact downloads hold the response open for the whole
		// transfer.
		WriteTimeout: cfg.DownloadTimeout + time.Minute,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutting down gateway")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		return 1
	}

	logger.Info().Msg("Gateway stopped gracefully")
	return 0
}

// buildDeps assembles the router dependencies, taking care that absent
// optional components stay nil interfaces rather than typed nil pointers.
func buildDeps(validator *license.Validator, resolver *release.Resolver, signer *token.Signer, records *store.Client, assets *release.GitHubClient, presigner *release.S3Strategy, m *metrics.Metrics) api.Deps {
	deps := api.Deps{
		Validator:   validator,
		Resolver:    resolver,
		Signer:      signer,
		RecordStore: records,
		Metrics:     m,
	}
	if assets != nil {
		deps.Assets = assets
	}
	if presigner != nil {
		deps.Presigner = presigner
	}
	return deps
}

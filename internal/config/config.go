// Package config provides configuration management for the Nexus gateway.
//
// All environment lookups happen once, in Load. The rest of the codebase
// receives an immutable Config value so release resolution and token signing
// stay pure and testable with injected configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nexuslabs/nexus-gateway/internal/models"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// signingSecretSources is the ordered list of environment variables consulted
// for the download-token signing secret. The dashboard session secret is the
// historical fallback; tokens sign with the first non-empty source.
var signingSecretSources = []string{
	"DOWNLOAD_TOKEN_SECRET",
	"SESSION_SECRET",
}

// updatePrefix is the key space for statically configured artifacts, e.g.
// UPDATE_STABLE_MAC_ARM64_VERSION or the arch-less UPDATE_STABLE_MAC_VERSION.
const updatePrefix = "UPDATE_"

// Config holds all gateway configuration, loaded once at process start.
type Config struct {
	Environment Environment
	Port        string

	// PublicBaseURL is this gateway's externally reachable base URL; feed
	// manifests embed download links under it.
	PublicBaseURL string

	AllowedOrigins    []string
	RateLimitRequests int64
	RateLimitPeriod   string
	RedisURL          string

	// SigningSecret signs download capability tokens.
	SigningSecret []byte
	// TokenTTL is the validity window for download tokens. It is sized for
	// slow or retried large-file downloads.
	TokenTTL time.Duration

	// UpdateStrategies is the ordered list of artifact sources tried by the
	// release resolver.
	UpdateStrategies []models.Source

	GitHubOwner string
	GitHubRepo  string
	GitHubToken string

	S3Bucket string
	S3Prefix string
	S3Region string

	// StaticUpdates is a snapshot of every UPDATE_* environment variable,
	// keyed without the prefix. The env resolution strategy reads it.
	StaticUpdates map[string]string

	RecordStoreURL   string
	RecordStoreKey   string
	RecordStoreTable string

	BillingAPIURL string
	BillingAPIKey string

	// EgressProxy optionally routes upstream calls through an HTTP(S) or
	// SOCKS5 proxy.
	EgressProxy string

	// HTTPTimeout bounds every upstream call (record store, release host,
	// billing API).
	HTTPTimeout time.Duration
	// DownloadTimeout bounds streamed artifact proxying.
	DownloadTimeout time.Duration

	// ManageURL is the self-service page clients are pointed to on a
	// machine-mismatch conflict.
	ManageURL string
}

// Load reads gateway configuration from environment variables.
func Load() (*Config, error) {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	secret := ""
	for _, name := range signingSecretSources {
		if v := os.Getenv(name); v != "" {
			secret = v
			break
		}
	}
	if secret == "" {
		return nil, fmt.Errorf("no signing secret configured (set one of %s)", strings.Join(signingSecretSources, ", "))
	}

	strategies, err := parseStrategies(os.Getenv("UPDATE_SOURCE"))
	if err != nil {
		return nil, err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := []string{}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		allowedOrigins = strings.Split(v, ",")
	}

	cfg := &Config{
		Environment:       env,
		Port:              port,
		PublicBaseURL:     strings.TrimRight(getEnvDefault("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: int64(getEnvInt("RATE_LIMIT_REQUESTS", 120)),
		RateLimitPeriod:   getEnvDefault("RATE_LIMIT_PERIOD", "1m"),
		RedisURL:          os.Getenv("REDIS_URL"),
		SigningSecret:     []byte(secret),
		TokenTTL:          getEnvDuration("DOWNLOAD_TOKEN_TTL", 2*time.Hour),
		UpdateStrategies:  strategies,
		GitHubOwner:       getEnvDefault("GITHUB_OWNER", "nexuslabs"),
		GitHubRepo:        getEnvDefault("GITHUB_REPO", "nexus-releases"),
		GitHubToken:       os.Getenv("GITHUB_TOKEN"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Prefix:          strings.Trim(os.Getenv("S3_PREFIX"), "/"),
		S3Region:          os.Getenv("S3_REGION"),
		StaticUpdates:     snapshotStaticUpdates(os.Environ()),
		RecordStoreURL:    strings.TrimRight(os.Getenv("RECORD_STORE_URL"), "/"),
		RecordStoreKey:    os.Getenv("RECORD_STORE_API_KEY"),
		RecordStoreTable:  getEnvDefault("RECORD_STORE_TABLE", "Licenses"),
		EgressProxy:       os.Getenv("EGRESS_PROXY"),
		BillingAPIURL:     strings.TrimRight(os.Getenv("BILLING_API_URL"), "/"),
		BillingAPIKey:     os.Getenv("BILLING_API_KEY"),
		HTTPTimeout:       getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		DownloadTimeout:   getEnvDuration("DOWNLOAD_TIMEOUT", 5*time.Minute),
		ManageURL:         getEnvDefault("MANAGE_URL", "https://nexusapp.io/account/devices"),
	}

	return cfg, nil
}

// parseStrategies parses UPDATE_SOURCE into an ordered strategy list.
// Accepted values: "env", "github", "s3", "auto", or an explicit
// comma-separated ordering. The default favors the release host with a
// static-configuration fallback.
func parseStrategies(raw string) ([]models.Source, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "", "auto":
		return []models.Source{models.SourceGitHub, models.SourceEnv}, nil
	case "env":
		return []models.Source{models.SourceEnv}, nil
	case "github":
		return []models.Source{models.SourceGitHub}, nil
	case "s3":
		return []models.Source{models.SourceS3}, nil
	}

	var out []models.Source
	for _, part := range strings.Split(raw, ",") {
		switch models.Source(strings.TrimSpace(part)) {
		case models.SourceEnv:
			out = append(out, models.SourceEnv)
		case models.SourceGitHub:
			out = append(out, models.SourceGitHub)
		case models.SourceS3:
			out = append(out, models.SourceS3)
		default:
			return nil, fmt.Errorf("invalid UPDATE_SOURCE entry %q", part)
		}
	}
	return out, nil
}

// snapshotStaticUpdates collects UPDATE_* variables from the environment,
// stripping the prefix. Keys keep their remaining underscore structure, e.g.
// "STABLE_MAC_ARM64_VERSION".
func snapshotStaticUpdates(environ []string) map[string]string {
	out := make(map[string]string)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, updatePrefix) {
			continue
		}
		key := strings.TrimPrefix(name, updatePrefix)
		if key == "SOURCE" {
			continue
		}
		out[key] = value
	}
	return out
}

// getEnvDefault reads a string from an environment variable, returning the
// default if unset.
func getEnvDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvInt reads an integer from an environment variable, returning the
// default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvDuration reads a duration from an environment variable, returning
// the default if unset or invalid.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

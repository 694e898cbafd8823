package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/license"
	"github.com/nexuslabs/nexus-gateway/internal/metrics"
	"github.com/nexuslabs/nexus-gateway/internal/models"
	"github.com/nexuslabs/nexus-gateway/internal/release"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator struct {
	verdict *license.Verdict
	err     error
	lastReq license.Request
	calls   int
}

func (s *stubValidator) Validate(_ context.Context, req license.Request) (*license.Verdict, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	if s.verdict != nil {
		return s.verdict, nil
	}
	return &license.Verdict{Plan: models.PlanLifetime, Tier: models.TierLifetime}, nil
}

type stubResolver struct {
	cfg   *models.UpdateConfig
	diag  *release.Diagnostics
	err   error
	calls int
}

func (s *stubResolver) Resolve(context.Context, models.Channel, models.Platform, models.Arch, string) (*models.UpdateConfig, *release.Diagnostics, error) {
	s.calls++
	diag := s.diag
	if diag == nil {
		diag = &release.Diagnostics{}
	}
	return s.cfg, diag, s.err
}

type registrar interface {
	RegisterPublicRoutes(r *gin.Engine)
}

func serve(h registrar, req *http.Request) *httptest.ResponseRecorder {
	r := gin.New()
	h.RegisterPublicRoutes(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testMetrics() *metrics.Metrics { return metrics.New() }

func nopLogger() zerolog.Logger { return zerolog.Nop() }

func githubConfig() *models.UpdateConfig {
	return &models.UpdateConfig{
		Channel:     models.ChannelStable,
		Platform:    models.PlatformMac,
		Arch:        models.ArchARM64,
		Source:      models.SourceGitHub,
		Version:     "1.0.35",
		FileURL:     "Nexus-1.0.35-arm64.dmg",
		FileName:    "Nexus-1.0.35-arm64.dmg",
		SHA512:      "abc==",
		Size:        104857600,
		ReleaseDate: "2026-08-01T10:00:00.000Z",
		Owner:       "nexuslabs",
		Repo:        "nexus-releases",
		AssetID:     33,
		AssetName:   "Nexus-1.0.35-arm64.dmg",
		ReleaseTag:  "v1.0.35",
	}
}

func envConfig() *models.UpdateConfig {
	return &models.UpdateConfig{
		Channel:  models.ChannelStable,
		Platform: models.PlatformWin,
		Arch:     models.ArchX64,
		Source:   models.SourceEnv,
		Version:  "1.0.30",
		FileURL:  "https://cdn.nexusapp.io/Nexus-Setup-1.0.30.exe",
		FileName: "Nexus-Setup-1.0.30.exe",
		SHA512:   "win==",
		Size:     52428800,
	}
}

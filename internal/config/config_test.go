package config

import (
	"testing"
	"time"

	"github.com/nexuslabs/nexus-gateway/internal/models"
)

func TestLoadRequiresSigningSecret(t *testing.T) {
	t.Setenv("DOWNLOAD_TOKEN_SECRET", "")
	t.Setenv("SESSION_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when no signing secret is configured")
	}
}

func TestLoadSigningSecretFallback(t *testing.T) {
	t.Setenv("DOWNLOAD_TOKEN_SECRET", "")
	t.Setenv("SESSION_SECRET", "session-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(cfg.SigningSecret) != "session-secret" {
		t.Errorf("SigningSecret = %q, want session fallback", cfg.SigningSecret)
	}

	t.Setenv("DOWNLOAD_TOKEN_SECRET", "primary-secret")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(cfg.SigningSecret) != "primary-secret" {
		t.Errorf("SigningSecret = %q, want primary source to win", cfg.SigningSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DOWNLOAD_TOKEN_SECRET", "s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Environment != EnvDevelopment {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h", cfg.TokenTTL)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	want := []models.Source{models.SourceGitHub, models.SourceEnv}
	if len(cfg.UpdateStrategies) != len(want) {
		t.Fatalf("UpdateStrategies = %v, want %v", cfg.UpdateStrategies, want)
	}
	for i := range want {
		if cfg.UpdateStrategies[i] != want[i] {
			t.Errorf("UpdateStrategies[%d] = %q, want %q", i, cfg.UpdateStrategies[i], want[i])
		}
	}
}

func TestParseStrategies(t *testing.T) {
	tests := []struct {
		input   string
		want    []models.Source
		wantErr bool
	}{
		{"", []models.Source{models.SourceGitHub, models.SourceEnv}, false},
		{"auto", []models.Source{models.SourceGitHub, models.SourceEnv}, false},
		{"env", []models.Source{models.SourceEnv}, false},
		{"github", []models.Source{models.SourceGitHub}, false},
		{"s3", []models.Source{models.SourceS3}, false},
		{"s3,github,env", []models.Source{models.SourceS3, models.SourceGitHub, models.SourceEnv}, false},
		{"ftp", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseStrategies(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseStrategies(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStrategies(%q): %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseStrategies(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("parseStrategies(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSnapshotStaticUpdates(t *testing.T) {
	environ := []string{
		"UPDATE_STABLE_MAC_ARM64_VERSION=1.2.3",
		"UPDATE_STABLE_MAC_FILE_URL=https://cdn.example.com/Nexus-1.2.3.dmg",
		"UPDATE_SOURCE=env",
		"PATH=/usr/bin",
	}

	got := snapshotStaticUpdates(environ)
	if got["STABLE_MAC_ARM64_VERSION"] != "1.2.3" {
		t.Errorf("missing arch-specific key: %v", got)
	}
	if got["STABLE_MAC_FILE_URL"] == "" {
		t.Errorf("missing arch-less key: %v", got)
	}
	if _, ok := got["SOURCE"]; ok {
		t.Error("UPDATE_SOURCE must not be part of the static key space")
	}
	if _, ok := got["PATH"]; ok {
		t.Error("non-UPDATE variables must be ignored")
	}
}

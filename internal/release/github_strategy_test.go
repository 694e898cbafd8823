package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/models"
)

// newFakeHost serves a release listing and manifest asset bodies the way the
// release host does.
func newFakeHost(t *testing.T, releases []Release, manifests map[int64]string) *GitHubStrategy {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/nexuslabs/nexus-releases/releases", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(releases)
	})
	mux.HandleFunc("/repos/nexuslabs/nexus-releases/releases/assets/", func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/repos/nexuslabs/nexus-releases/releases/assets/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		body, ok := manifests[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewGitHubClient(GitHubConfig{
		APIBaseURL: srv.URL,
		Owner:      "nexuslabs",
		Repo:       "nexus-releases",
		Timeout:    5 * time.Second,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewGitHubClient: %v", err)
	}
	return NewGitHubStrategy(client, zerolog.Nop())
}

func manifestBody(version, fileURL, sha string, size int64) string {
	return fmt.Sprintf("version: %s\nfiles:\n  - url: %s\n    sha512: %s\n    size: %d\npath: %s\nsha512: %s\n",
		version, fileURL, sha, size, fileURL, sha)
}

func publishedAt(s string) time.Time {
	ts, _ := time.Parse(time.RFC3339, s)
	return ts
}

func testReleases() ([]Release, map[int64]string) {
	releases := []Release{
		{
			TagName:     "v1.3.0",
			PublishedAt: publishedAt("2026-08-10T00:00:00Z"),
			Assets: []Asset{
				{ID: 31, Name: "latest-mac-arm64.yml"},
				{ID: 32, Name: "latest-mac.yml"},
				{ID: 33, Name: "Nexus-1.3.0-arm64.dmg", Size: 100},
				{ID: 34, Name: "Nexus-1.3.0.dmg", Size: 100},
				{ID: 35, Name: "latest.yml"},
				{ID: 36, Name: "Nexus-Setup-1.3.0.exe", Size: 100},
			},
		},
		{
			TagName:     "v1.2.0-beta.3",
			Prerelease:  true,
			PublishedAt: publishedAt("2026-08-05T00:00:00Z"),
			Assets: []Asset{
				{ID: 21, Name: "beta-mac.yml"},
				{ID: 22, Name: "Nexus-1.2.0-beta.3.dmg", Size: 100},
			},
		},
		{
			TagName:     "v1.2.0",
			PublishedAt: publishedAt("2026-08-01T00:00:00Z"),
			Assets: []Asset{
				{ID: 11, Name: "latest-mac.yml"},
				{ID: 12, Name: "Nexus-1.2.0.dmg", Size: 100},
			},
		},
		{
			TagName:     "v9.9.9",
			Draft:       true,
			PublishedAt: publishedAt("2026-08-20T00:00:00Z"),
			Assets: []Asset{
				{ID: 91, Name: "latest-mac.yml"},
				{ID: 92, Name: "Nexus-9.9.9.dmg", Size: 100},
			},
		},
	}

	manifests := map[int64]string{
		31: manifestBody("1.3.0", "Nexus-1.3.0-arm64.dmg", "sha-arm", 100),
		32: manifestBody("1.3.0", "Nexus-1.3.0.dmg", "sha-x64", 100),
		35: manifestBody("1.3.0", "Nexus-Setup-1.3.0.exe", "sha-win", 100),
		21: manifestBody("1.2.0-beta.3", "Nexus-1.2.0-beta.3.dmg", "sha-beta", 100),
		11: manifestBody("1.2.0", "Nexus-1.2.0.dmg", "sha-120", 100),
		91: manifestBody("9.9.9", "Nexus-9.9.9.dmg", "sha-draft", 100),
	}
	return releases, manifests
}

func TestGitHubStrategyResolveStable(t *testing.T) {
	releases, manifests := testReleases()
	s := newFakeHost(t, releases, manifests)

	cfg, err := s.Resolve(context.Background(), models.ChannelStable, models.PlatformMac, models.ArchARM64, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected a candidate")
	}
	if cfg.Version != "1.3.0" || cfg.AssetName != "Nexus-1.3.0-arm64.dmg" || cfg.AssetID != 33 {
		t.Errorf("cfg = %+v, want the arm64 1.3.0 artifact", cfg)
	}
	if cfg.ReleaseTag != "v1.3.0" || cfg.Owner != "nexuslabs" {
		t.Errorf("provenance = %q/%q", cfg.Owner, cfg.ReleaseTag)
	}
}

func TestGitHubStrategyBetaFallsBackToHigherStable(t *testing.T) {
	// The beta channel prefers pre-releases, but a newer stable release still
	// outranks an older beta: 1.3.0 beats 1.2.0-beta.3.
	releases, manifests := testReleases()
	s := newFakeHost(t, releases, manifests)

	cfg, err := s.Resolve(context.Background(), models.ChannelBeta, models.PlatformMac, models.ArchX64, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg == nil || cfg.Version != "1.3.0" {
		t.Fatalf("cfg = %+v, want 1.3.0", cfg)
	}
}

func TestGitHubStrategySkipsDrafts(t *testing.T) {
	releases, manifests := testReleases()
	s := newFakeHost(t, releases, manifests)

	cfg, err := s.Resolve(context.Background(), models.ChannelStable, models.PlatformMac, models.ArchX64, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg == nil || cfg.Version == "9.9.9" {
		t.Fatalf("draft release leaked into resolution: %+v", cfg)
	}
}

func TestGitHubStrategyRejectsCrossPlatformArtifact(t *testing.T) {
	// A mac request must never pick the Windows installer even when its
	// manifest parses fine.
	releases := []Release{
		{
			TagName:     "v2.0.0",
			PublishedAt: publishedAt("2026-08-15T00:00:00Z"),
			Assets: []Asset{
				{ID: 41, Name: "latest-mac.yml"},
				{ID: 42, Name: "Nexus-Setup-2.0.0.exe", Size: 100},
			},
		},
	}
	manifests := map[int64]string{
		41: manifestBody("2.0.0", "Nexus-Setup-2.0.0.exe", "sha-win", 100),
	}
	s := newFakeHost(t, releases, manifests)

	cfg, err := s.Resolve(context.Background(), models.ChannelStable, models.PlatformMac, models.ArchX64, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg != nil {
		t.Fatalf("cross-platform artifact accepted: %+v", cfg)
	}
}

func TestGitHubStrategyDiscardsMissingBinary(t *testing.T) {
	releases, manifests := testReleases()
	// 1.5.0's manifest references a binary that is not attached.
	releases = append([]Release{{
		TagName:     "v1.5.0",
		PublishedAt: publishedAt("2026-08-18T00:00:00Z"),
		Assets:      []Asset{{ID: 51, Name: "latest-mac.yml"}},
	}}, releases...)
	manifests[51] = manifestBody("1.5.0", "Nexus-1.5.0.dmg", "sha-150", 100)
	s := newFakeHost(t, releases, manifests)

	cfg, err := s.Resolve(context.Background(), models.ChannelStable, models.PlatformMac, models.ArchX64, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg == nil || cfg.Version != "1.3.0" {
		t.Fatalf("cfg = %+v, want 1.3.0 after discarding the broken 1.5.0", cfg)
	}
}

func TestGitHubStrategyHintPinsResolution(t *testing.T) {
	releases, manifests := testReleases()
	s := newFakeHost(t, releases, manifests)

	t.Run("known hint resolves within narrow aliases", func(t *testing.T) {
		cfg, err := s.Resolve(context.Background(), models.ChannelStable, models.PlatformMac, models.ArchARM64, "latest-mac-arm64.yml")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if cfg == nil || cfg.AssetName != "Nexus-1.3.0-arm64.dmg" {
			t.Fatalf("cfg = %+v, want the arm64 artifact", cfg)
		}
	})

	t.Run("unknown hint never widens", func(t *testing.T) {
		cfg, err := s.Resolve(context.Background(), models.ChannelStable, models.PlatformMac, models.ArchX64, "custom-feed.yml")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if cfg != nil {
			t.Fatalf("pinned hint fell back to other manifests: %+v", cfg)
		}
	})
}

func TestGitHubStrategyPublishTimeBreaksTies(t *testing.T) {
	releases := []Release{
		{
			TagName:     "v3.0.0-rebuild",
			PublishedAt: publishedAt("2026-08-20T00:00:00Z"),
			Assets: []Asset{
				{ID: 61, Name: "latest-mac.yml"},
				{ID: 62, Name: "Nexus-3.0.0.dmg", Size: 100},
			},
		},
		{
			TagName:     "v3.0.0",
			PublishedAt: publishedAt("2026-08-19T00:00:00Z"),
			Assets: []Asset{
				{ID: 71, Name: "latest-mac.yml"},
				{ID: 72, Name: "Nexus-3.0.0.dmg", Size: 100},
			},
		},
	}
	manifests := map[int64]string{
		61: manifestBody("3.0.0", "Nexus-3.0.0.dmg", "sha-rebuild", 100),
		71: manifestBody("3.0.0", "Nexus-3.0.0.dmg", "sha-original", 100),
	}
	s := newFakeHost(t, releases, manifests)

	cfg, err := s.Resolve(context.Background(), models.ChannelStable, models.PlatformMac, models.ArchX64, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg == nil || cfg.SHA512 != "sha-rebuild" {
		t.Fatalf("cfg = %+v, want the more recently published release", cfg)
	}
}

func TestGitHubStrategyDecodedBinaryName(t *testing.T) {
	releases := []Release{
		{
			TagName:     "v4.0.0",
			PublishedAt: publishedAt("2026-08-20T00:00:00Z"),
			Assets: []Asset{
				{ID: 81, Name: "latest-mac.yml"},
				{ID: 82, Name: "Nexus Desktop-4.0.0.dmg", Size: 100},
			},
		},
	}
	manifests := map[int64]string{
		81: manifestBody("4.0.0", "Nexus%20Desktop-4.0.0.dmg", "sha-400", 100),
	}
	s := newFakeHost(t, releases, manifests)

	cfg, err := s.Resolve(context.Background(), models.ChannelStable, models.PlatformMac, models.ArchX64, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg == nil || cfg.AssetID != 82 {
		t.Fatalf("cfg = %+v, want percent-decoded binary match", cfg)
	}
}

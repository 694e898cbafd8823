package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/httpclient"
)

const (
	// defaultAPIBaseURL is the GitHub API root.
	defaultAPIBaseURL = "https://api.github.com"
	// releasePageSize is how many releases one listing call scans.
	releasePageSize = 50
	// maxManifestSize caps manifest asset downloads; real manifests are a
	// few hundred bytes.
	maxManifestSize = 1 << 20
)

// GitHubConfig holds release host client configuration.
type GitHubConfig struct {
	APIBaseURL string
	Owner      string
	Repo       string
	// Token authenticates API calls; required for private release repos and
	// for asset fetches by numeric id.
	Token string
	// Timeout bounds listing and manifest calls.
	Timeout time.Duration
	// DownloadTimeout bounds streamed binary fetches.
	DownloadTimeout time.Duration
	ProxyURL        string
}

// Release is one release on the host, drafts excluded by the client.
type Release struct {
	TagName     string    `json:"tag_name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	ContentType        string `json:"content_type"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// GitHubClient talks to the release host.
type GitHubClient struct {
	cfg    GitHubConfig
	api    *http.Client
	stream *http.Client
	logger zerolog.Logger
}

// NewGitHubClient creates a release host client.
func NewGitHubClient(cfg GitHubConfig, logger zerolog.Logger) (*GitHubClient, error) {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.DownloadTimeout == 0 {
		cfg.DownloadTimeout = 5 * time.Minute
	}

	api, err := httpclient.New(httpclient.Options{
		Timeout:         cfg.Timeout,
		ProxyURL:        cfg.ProxyURL,
		FollowRedirects: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create release host client: %w", err)
	}

	// The streaming client must surface redirects instead of following them
	// so the gateway can forward CDN locations to clients untouched.
	stream, err := httpclient.New(httpclient.Options{
		Timeout:  cfg.DownloadTimeout,
		ProxyURL: cfg.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create asset stream client: %w", err)
	}

	return &GitHubClient{
		cfg:    cfg,
		api:    api,
		stream: stream,
		logger: logger.With().Str("component", "release_host").Logger(),
	}, nil
}

// Owner returns the configured repository owner.
func (c *GitHubClient) Owner() string { return c.cfg.Owner }

// Repo returns the configured repository name.
func (c *GitHubClient) Repo() string { return c.cfg.Repo }

func (c *GitHubClient) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "nexus-gateway")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
}

// ListReleases lists the repository's releases, newest first, excluding
// drafts.
func (c *GitHubClient) ListReleases(ctx context.Context) ([]Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo, releasePageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create list request: %w", err)
	}
	c.authorize(req)

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release host list: HTTP %d", resp.StatusCode)
	}

	var all []Release
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("decode releases: %w", err)
	}

	releases := all[:0]
	for _, rel := range all {
		if !rel.Draft {
			releases = append(releases, rel)
		}
	}
	c.logger.Debug().Int("releases", len(releases)).Msg("listed releases")
	return releases, nil
}

// FetchManifest downloads a manifest asset body by numeric id.
func (c *GitHubClient) FetchManifest(ctx context.Context, assetID int64) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/assets/%d", c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo, assetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create manifest request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest asset %d: %w", assetID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest asset %d: HTTP %d", assetID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
	if err != nil {
		return nil, fmt.Errorf("read manifest asset %d: %w", assetID, err)
	}
	return body, nil
}

// OpenAsset starts an authenticated fetch of a binary asset. The host may
// answer with a redirect to a CDN location or with the body directly; the
// caller owns the response either way and must close its body.
func (c *GitHubClient) OpenAsset(ctx context.Context, assetID int64) (*http.Response, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/assets/%d", c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo, assetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create asset request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch asset %d: %w", assetID, err)
	}
	return resp, nil
}

package release

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/models"
)

// GitHubStrategy resolves artifacts from release host manifests. Resolution
// is a pure read: list releases, rank each release's manifest assets, parse
// the best one, and keep the highest surviving version across all releases.
type GitHubStrategy struct {
	client *GitHubClient
	logger zerolog.Logger
}

// NewGitHubStrategy creates the release host strategy.
func NewGitHubStrategy(client *GitHubClient, logger zerolog.Logger) *GitHubStrategy {
	return &GitHubStrategy{
		client: client,
		logger: logger.With().Str("component", "github_strategy").Logger(),
	}
}

// Source identifies this strategy.
func (s *GitHubStrategy) Source() models.Source { return models.SourceGitHub }

type candidate struct {
	manifest  *Manifest
	binary    *Asset
	release   *Release
	version   Version
	published time.Time
}

// Resolve scans the repository's releases for the best installable artifact
// for the tuple. Releases matching the channel's preference (pre-releases for
// beta, finals for stable) are scanned first, the rest as fallback; within a
// release the alias table decides which manifest speaks for it. The highest
// parsed version wins, with the release publish timestamp breaking exact
// ties.
func (s *GitHubStrategy) Resolve(ctx context.Context, channel models.Channel, platform models.Platform, arch models.Arch, manifestHint string) (*models.UpdateConfig, error) {
	releases, err := s.client.ListReleases(ctx)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, nil
	}

	var names []string
	pinned := manifestHint != ""
	if pinned {
		names = hintAliases(manifestHint, channel, platform, arch)
	} else {
		names = aliasNames(channel, platform, arch)
	}

	var best *candidate
	for _, rel := range partitionByChannel(releases, channel) {
		cand := s.bestInRelease(ctx, rel, names, pinned, platform, arch)
		if cand == nil {
			continue
		}
		if best == nil || better(cand, best) {
			best = cand
		}
	}

	if best == nil {
		return nil, nil
	}

	return &models.UpdateConfig{
		Channel:      channel,
		Platform:     platform,
		Arch:         arch,
		Source:       models.SourceGitHub,
		Version:      best.manifest.Version,
		FileName:     best.binary.Name,
		FileURL:      best.manifest.FileURL,
		SHA512:       best.manifest.SHA512,
		Size:         best.manifest.Size,
		ReleaseDate:  best.manifest.ReleaseDate,
		ReleaseNotes: best.manifest.ReleaseNotes,
		Owner:        s.client.Owner(),
		Repo:         s.client.Repo(),
		AssetID:      best.binary.ID,
		AssetName:    best.binary.Name,
		ReleaseTag:   best.release.TagName,
	}, nil
}

// partitionByChannel reorders releases so the channel's preferred kind comes
// first, preserving relative order within each half. Beta prefers
// pre-releases with finals as fallback; stable the inverse.
func partitionByChannel(releases []Release, channel models.Channel) []*Release {
	wantPre := channel == models.ChannelBeta

	ordered := make([]*Release, 0, len(releases))
	for i := range releases {
		if releases[i].Prerelease == wantPre {
			ordered = append(ordered, &releases[i])
		}
	}
	for i := range releases {
		if releases[i].Prerelease != wantPre {
			ordered = append(ordered, &releases[i])
		}
	}
	return ordered
}

// bestInRelease picks one release's candidate: the first manifest asset in
// alias order that parses, references a compatible artifact, and whose binary
// actually exists among the release's assets. Without a hint the alias order
// is followed by a linear scan of the remaining manifest assets; a pinned
// hint never widens.
func (s *GitHubStrategy) bestInRelease(ctx context.Context, rel *Release, names []string, pinned bool, platform models.Platform, arch models.Arch) *candidate {
	tried := make(map[int64]bool)

	var ranked []*Asset
	for _, name := range names {
		if a := findAssetByName(rel.Assets, name); a != nil && !tried[a.ID] {
			tried[a.ID] = true
			ranked = append(ranked, a)
		}
	}
	if !pinned {
		for i := range rel.Assets {
			a := &rel.Assets[i]
			if IsManifestAsset(a.Name) && !tried[a.ID] {
				tried[a.ID] = true
				ranked = append(ranked, a)
			}
		}
	}

	for _, asset := range ranked {
		body, err := s.client.FetchManifest(ctx, asset.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("asset", asset.Name).Str("release", rel.TagName).Msg("manifest fetch failed")
			continue
		}

		m, err := ParseManifest(body)
		if err != nil {
			s.logger.Warn().Err(err).Str("asset", asset.Name).Str("release", rel.TagName).Msg("manifest rejected")
			continue
		}

		fileName := models.LastPathSegment(m.FileURL)
		if !ArtifactMatches(fileName, platform, arch) {
			continue
		}

		binary := findBinaryAsset(rel.Assets, fileName)
		if binary == nil {
			s.logger.Warn().Str("file", fileName).Str("release", rel.TagName).Msg("manifest references a missing binary")
			continue
		}

		return &candidate{
			manifest:  m,
			binary:    binary,
			release:   rel,
			version:   ParseVersion(m.Version),
			published: rel.PublishedAt,
		}
	}
	return nil
}

// better orders candidates: higher version wins, and at an exact version tie
// the more recently published release wins.
func better(a, b *candidate) bool {
	switch Compare(a.version, b.version) {
	case 1:
		return true
	case -1:
		return false
	default:
		return a.published.After(b.published)
	}
}

func findAssetByName(assets []Asset, name string) *Asset {
	for i := range assets {
		if strings.EqualFold(assets[i].Name, name) {
			return &assets[i]
		}
	}
	return nil
}

// findBinaryAsset matches by exact name first, then by URL-decoded name,
// since manifests carry percent-encoded URLs for file names with spaces.
func findBinaryAsset(assets []Asset, fileName string) *Asset {
	if a := findAssetByName(assets, fileName); a != nil {
		return a
	}
	if decoded, err := url.PathUnescape(fileName); err == nil && decoded != fileName {
		return findAssetByName(assets, decoded)
	}
	return nil
}

package release

import (
	"strings"

	"github.com/nexuslabs/nexus-gateway/internal/models"
)

// platformSegment is the platform's name inside manifest file names. Windows
// manifests historically carry no platform segment (latest.yml, beta.yml).
func platformSegment(p models.Platform) string {
	switch p {
	case models.PlatformMac:
		return "mac"
	case models.PlatformLinux:
		return "linux"
	default:
		return ""
	}
}

// channelPrefix is the channel's name inside manifest file names.
func channelPrefix(c models.Channel) string {
	if c == models.ChannelBeta {
		return "beta"
	}
	return "latest"
}

// manifestName assembles a manifest file name from non-empty segments, e.g.
// ("beta", "mac", "arm64") -> "beta-mac-arm64.yml" and ("latest", "", "") ->
// "latest.yml".
func manifestName(prefix, platform, arch string) string {
	parts := []string{prefix}
	if platform != "" {
		parts = append(parts, platform)
	}
	if arch != "" {
		parts = append(parts, arch)
	}
	return strings.Join(parts, "-") + ManifestExt
}

// aliasNames is the ordered preference list of manifest names for a tuple.
// A beta arm64 mac request prefers the arm64 beta manifest, then the generic
// mac beta manifest, then the stable equivalents, then universal builds. A
// stable request never reaches for beta-named manifests; the channel
// partition of releases handles beta fallback separately.
func aliasNames(channel models.Channel, platform models.Platform, arch models.Arch) []string {
	plat := platformSegment(platform)
	archSeg := string(arch)

	var names []string
	if channel == models.ChannelBeta {
		names = append(names,
			manifestName("beta", plat, archSeg),
			manifestName("beta", plat, ""),
			manifestName("latest", plat, archSeg),
			manifestName("latest", plat, ""),
			manifestName("beta", plat, "universal"),
		)
	} else {
		names = append(names,
			manifestName("latest", plat, archSeg),
			manifestName("latest", plat, ""),
		)
	}
	names = append(names, manifestName("latest", plat, "universal"))
	return names
}

// hintAliases narrows resolution when the caller pinned a manifest name. A
// known alias expands to the tuple's non-universal aliases only, never the
// linear scan, so an explicit hint cannot drift across architectures. An
// unrecognized hint pins to exactly that name.
func hintAliases(hint string, channel models.Channel, platform models.Platform, arch models.Arch) []string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	plat := platformSegment(platform)
	archSeg := string(arch)

	narrow := []string{
		manifestName(channelPrefix(channel), plat, archSeg),
		manifestName(channelPrefix(channel), plat, ""),
		manifestName("latest", plat, archSeg),
		manifestName("latest", plat, ""),
	}
	for _, name := range narrow {
		if name == hint {
			return dedupe(narrow)
		}
	}
	return []string{hint}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// IsManifestAsset reports whether an asset name looks like an update
// manifest.
func IsManifestAsset(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ManifestExt)
}

// platformMarkers lists substrings that mark an artifact as built for a
// platform. Windows deliberately excludes "darwin" matches: "darwin"
// contains "win".
func artifactMatchesPlatform(name string, platform models.Platform) bool {
	name = strings.ToLower(name)
	switch platform {
	case models.PlatformMac:
		return strings.Contains(name, ".dmg") ||
			strings.Contains(name, ".pkg") ||
			strings.Contains(name, "mac") ||
			strings.Contains(name, "darwin") ||
			strings.Contains(name, "osx")
	case models.PlatformLinux:
		return strings.Contains(name, ".appimage") ||
			strings.Contains(name, ".deb") ||
			strings.Contains(name, ".rpm") ||
			strings.Contains(name, "linux")
	case models.PlatformWin:
		if strings.Contains(name, "darwin") {
			return false
		}
		return strings.Contains(name, ".exe") ||
			strings.Contains(name, "nsis") ||
			strings.Contains(name, "win")
	default:
		return false
	}
}

// artifactMatchesArch checks architecture markers. "universal" satisfies
// either architecture; a file with no marker at all counts as the historical
// x64 default.
func artifactMatchesArch(name string, arch models.Arch) bool {
	name = strings.ToLower(name)
	if strings.Contains(name, "universal") {
		return true
	}

	arm := strings.Contains(name, "arm64") || strings.Contains(name, "aarch64")
	x64 := strings.Contains(name, "x64") || strings.Contains(name, "amd64") || strings.Contains(name, "x86_64")

	switch arch {
	case models.ArchARM64:
		return arm
	case models.ArchX64:
		return x64 || !arm
	default:
		return false
	}
}

// ArtifactMatches reports whether an artifact file name is compatible with
// the requested platform and architecture.
func ArtifactMatches(name string, platform models.Platform, arch models.Arch) bool {
	return artifactMatchesPlatform(name, platform) && artifactMatchesArch(name, arch)
}

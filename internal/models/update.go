package models

import (
	"fmt"
	"strings"
)

// Channel is a release track.
type Channel string

const (
	ChannelStable Channel = "stable"
	ChannelBeta   Channel = "beta"
)

// ParseChannel parses a release channel, defaulting empty input to stable.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stable", "latest":
		return ChannelStable, nil
	case "beta", "prerelease":
		return ChannelBeta, nil
	default:
		return "", fmt.Errorf("unknown channel %q", s)
	}
}

// Platform is a target operating system.
type Platform string

const (
	PlatformMac   Platform = "mac"
	PlatformWin   Platform = "win"
	PlatformLinux Platform = "linux"
)

// ParsePlatform parses an OS name, accepting the aliases historical clients
// have sent.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mac", "macos", "darwin", "osx":
		return PlatformMac, nil
	case "win", "windows", "win32":
		return PlatformWin, nil
	case "linux":
		return PlatformLinux, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// Arch is a target CPU architecture.
type Arch string

const (
	ArchX64   Arch = "x64"
	ArchARM64 Arch = "arm64"
)

// ParseArch parses an architecture name, defaulting empty input to x64 since
// older clients never sent one.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "x64", "amd64", "x86_64":
		return ArchX64, nil
	case "arm64", "aarch64":
		return ArchARM64, nil
	default:
		return "", fmt.Errorf("unknown arch %q", s)
	}
}

// Source records where an update artifact was resolved from; the download
// gateway uses it to decide how to fetch the actual bytes.
type Source string

const (
	SourceEnv    Source = "env"
	SourceGitHub Source = "github"
	SourceS3     Source = "s3"
)

// UpdateConfig describes one installable artifact for one
// (channel, platform, arch) tuple.
type UpdateConfig struct {
	Channel  Channel
	Platform Platform
	Arch     Arch

	Version      string
	FileName     string
	FileURL      string
	SHA512       string
	Size         int64
	ReleaseDate  string
	ReleaseNotes string

	Source Source

	// GitHub provenance: coordinates plus the numeric asset id of the binary,
	// needed for the second-stage authenticated fetch.
	Owner      string
	Repo       string
	AssetID    int64
	AssetName  string
	ReleaseTag string

	// S3 provenance.
	Bucket    string
	ObjectKey string
}

// Complete reports whether the config carries everything a client needs to
// verify and install the artifact. Incomplete configs are treated as absent.
func (c *UpdateConfig) Complete() bool {
	return c != nil && c.Version != "" && c.FileURL != "" && c.SHA512 != "" && c.Size > 0
}

// LastPathSegment returns the final path segment of a URL, used to derive a
// file name when none was configured separately.
func LastPathSegment(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

package release

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nexuslabs/nexus-gateway/internal/models"
)

// ManifestExt is the file extension that marks a release asset as a
// machine-readable update manifest.
const ManifestExt = ".yml"

// Manifest is one parsed update manifest. The wire format is a small
// line-oriented YAML document: version, releaseDate, a files block with one
// url/sha512/size entry, and optional releaseNotes.
type Manifest struct {
	Version      string
	FileURL      string
	SHA512       string
	Size         int64
	ReleaseDate  string
	ReleaseNotes string
}

type manifestDoc struct {
	Version      string         `yaml:"version"`
	Files        []manifestFile `yaml:"files"`
	Path         string         `yaml:"path"`
	SHA512       string         `yaml:"sha512"`
	ReleaseDate  string         `yaml:"releaseDate"`
	ReleaseNotes string         `yaml:"releaseNotes"`
}

type manifestFile struct {
	URL    string `yaml:"url"`
	SHA512 string `yaml:"sha512"`
	Size   int64  `yaml:"size"`
}

// ParseManifest decodes and validates a manifest body. A manifest missing
// any required field is rejected outright; "missing field means absent
// candidate" is this one code path.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	m := &Manifest{
		Version:      strings.TrimSpace(doc.Version),
		ReleaseDate:  strings.TrimSpace(doc.ReleaseDate),
		ReleaseNotes: doc.ReleaseNotes,
	}

	if len(doc.Files) > 0 {
		m.FileURL = strings.TrimSpace(doc.Files[0].URL)
		m.SHA512 = strings.TrimSpace(doc.Files[0].SHA512)
		m.Size = doc.Files[0].Size
	}
	// Older manifests carried only top-level path/sha512.
	if m.FileURL == "" {
		m.FileURL = strings.TrimSpace(doc.Path)
	}
	if m.SHA512 == "" {
		m.SHA512 = strings.TrimSpace(doc.SHA512)
	}

	switch {
	case m.Version == "":
		return nil, errors.New("manifest missing version")
	case m.FileURL == "":
		return nil, errors.New("manifest missing file url")
	case m.SHA512 == "":
		return nil, errors.New("manifest missing sha512")
	case m.Size <= 0:
		return nil, errors.New("manifest missing size")
	}

	return m, nil
}

// RenderManifest emits the manifest document served to update clients. The
// embedded URL points back at the gateway's download endpoint; checksum,
// size, and version are the resolved artifact's, preserved verbatim, since
// the updater trusts this document rather than the origin host.
func RenderManifest(cfg *models.UpdateConfig, downloadURL string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "version: %s\n", cfg.Version)
	fmt.Fprintf(&b, "releaseDate: '%s'\n", cfg.ReleaseDate)
	b.WriteString("files:\n")
	fmt.Fprintf(&b, "  - url: %s\n", downloadURL)
	fmt.Fprintf(&b, "    sha512: %s\n", cfg.SHA512)
	fmt.Fprintf(&b, "    size: %d\n", cfg.Size)
	fmt.Fprintf(&b, "path: %s\n", downloadURL)
	fmt.Fprintf(&b, "sha512: %s\n", cfg.SHA512)

	if notes := strings.TrimSpace(cfg.ReleaseNotes); notes != "" {
		if strings.Contains(notes, "\n") {
			b.WriteString("releaseNotes: |\n")
			for _, line := range strings.Split(notes, "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		} else {
			fmt.Fprintf(&b, "releaseNotes: %s\n", notes)
		}
	}

	return b.String()
}

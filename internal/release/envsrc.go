package release

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/models"
)

// EnvStrategy resolves artifacts from statically configured values. Keys are
// {CHANNEL}_{PLATFORM}[_{ARCH}]_{FIELD}, e.g. STABLE_MAC_ARM64_VERSION; the
// arch segment is optional so one configuration can serve both architectures.
type EnvStrategy struct {
	values map[string]string
	logger zerolog.Logger
}

// NewEnvStrategy creates an env strategy over a static key/value snapshot.
func NewEnvStrategy(values map[string]string, logger zerolog.Logger) *EnvStrategy {
	return &EnvStrategy{
		values: values,
		logger: logger.With().Str("component", "env_strategy").Logger(),
	}
}

// Source identifies this strategy.
func (s *EnvStrategy) Source() models.Source { return models.SourceEnv }

// Resolve looks up a statically configured artifact. The arch-qualified key
// space wins over the arch-less one; a tuple with no VERSION configured is
// simply not applicable, while a partially configured tuple is rejected so a
// half-filled configuration cannot produce an uninstallable manifest.
func (s *EnvStrategy) Resolve(_ context.Context, channel models.Channel, platform models.Platform, arch models.Arch, _ string) (*models.UpdateConfig, error) {
	prefixes := []string{
		s.prefix(channel, platform, string(arch)),
		s.prefix(channel, platform, ""),
	}

	for _, prefix := range prefixes {
		version := s.values[prefix+"VERSION"]
		if version == "" {
			continue
		}

		cfg := &models.UpdateConfig{
			Channel:      channel,
			Platform:     platform,
			Arch:         arch,
			Source:       models.SourceEnv,
			Version:      strings.TrimSpace(version),
			FileURL:      strings.TrimSpace(s.values[prefix+"FILE_URL"]),
			SHA512:       strings.TrimSpace(s.values[prefix+"SHA512"]),
			FileName:     strings.TrimSpace(s.values[prefix+"FILE_NAME"]),
			ReleaseDate:  strings.TrimSpace(s.values[prefix+"RELEASE_DATE"]),
			ReleaseNotes: s.values[prefix+"RELEASE_NOTES"],
		}
		if raw := s.values[prefix+"SIZE"]; raw != "" {
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err == nil {
				cfg.Size = n
			}
		}
		if cfg.FileName == "" {
			cfg.FileName = models.LastPathSegment(cfg.FileURL)
		}

		if !cfg.Complete() {
			s.logger.Warn().
				Str("prefix", prefix).
				Str("channel", string(channel)).
				Str("platform", string(platform)).
				Str("arch", string(arch)).
				Msg("static update configuration incomplete, skipping")
			continue
		}
		return cfg, nil
	}

	return nil, nil
}

func (s *EnvStrategy) prefix(channel models.Channel, platform models.Platform, arch string) string {
	parts := []string{strings.ToUpper(string(channel)), strings.ToUpper(string(platform))}
	if arch != "" {
		parts = append(parts, strings.ToUpper(arch))
	}
	return strings.Join(parts, "_") + "_"
}

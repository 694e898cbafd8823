// Package release resolves the current installable artifact for a
// (channel, platform, arch) tuple from an ordered list of sources: static
// configuration, a release host, or an object bucket.
package release

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/models"
)

// Strategy is one artifact source. Resolve returns (nil, nil) when the
// strategy has no candidate for the tuple; errors are reserved for upstream
// failures.
type Strategy interface {
	Source() models.Source
	Resolve(ctx context.Context, channel models.Channel, platform models.Platform, arch models.Arch, manifestHint string) (*models.UpdateConfig, error)
}

// StrategyNote records one strategy's outcome for diagnostics.
type StrategyNote struct {
	Source  models.Source `json:"source"`
	Outcome string        `json:"outcome"`
	Version string        `json:"version,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Diagnostics describes a resolution attempt strategy by strategy. It is
// exposed on debug feed requests so operators can see why a tuple resolves
// the way it does without reading logs.
type Diagnostics struct {
	Strategies []StrategyNote `json:"strategies"`
}

// Resolver tries strategies in configured order and returns the first
// resolved artifact. Resolution is side-effect-free; every call re-reads the
// sources.
type Resolver struct {
	strategies []Strategy
	logger     zerolog.Logger
}

// NewResolver creates a resolver over an ordered strategy list.
func NewResolver(strategies []Strategy, logger zerolog.Logger) *Resolver {
	return &Resolver{
		strategies: strategies,
		logger:     logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve returns the first strategy's artifact for the tuple. A failing
// strategy does not stop the scan; its error is surfaced only when no later
// strategy produces a candidate, so a flaky release host degrades to the
// static fallback instead of an outage.
func (r *Resolver) Resolve(ctx context.Context, channel models.Channel, platform models.Platform, arch models.Arch, manifestHint string) (*models.UpdateConfig, *Diagnostics, error) {
	diag := &Diagnostics{}
	var firstErr error

	for _, strat := range r.strategies {
		cfg, err := strat.Resolve(ctx, channel, platform, arch, manifestHint)
		switch {
		case err != nil:
			r.logger.Warn().Err(err).
				Str("source", string(strat.Source())).
				Str("channel", string(channel)).
				Str("platform", string(platform)).
				Str("arch", string(arch)).
				Msg("strategy failed")
			diag.Strategies = append(diag.Strategies, StrategyNote{Source: strat.Source(), Outcome: "error", Error: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
		case cfg == nil || !cfg.Complete():
			diag.Strategies = append(diag.Strategies, StrategyNote{Source: strat.Source(), Outcome: "no_candidate"})
		default:
			diag.Strategies = append(diag.Strategies, StrategyNote{Source: strat.Source(), Outcome: "resolved", Version: cfg.Version})
			r.logger.Info().
				Str("source", string(strat.Source())).
				Str("channel", string(channel)).
				Str("platform", string(platform)).
				Str("arch", string(arch)).
				Str("version", cfg.Version).
				Msg("resolved update")
			return cfg, diag, nil
		}
	}

	if firstErr != nil {
		return nil, diag, firstErr
	}
	return nil, diag, nil
}

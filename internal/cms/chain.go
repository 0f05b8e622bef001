package cms

import "go.uber.org/zap"

// ChainConfig selects the tiers of the default resolution chain.
type ChainConfig struct {
	// ContentDir holds the unified YAML files and the legacy markdown tree.
	ContentDir string
	// Legacy enables the per-locale markdown tier.
	Legacy bool
	// Collections backs the collection tier; nil disables it.
	Collections CollectionSource
	Validator   *Validator
	Dev         bool
	Logger      *zap.Logger
}

// NewChain returns the tiers in priority order: collection, unified YAML,
// legacy markdown, static defaults.
func NewChain(cfg ChainConfig) []Tier {
	opts := []TierOption{WithTierLogger(cfg.Logger), WithDevMode(cfg.Dev)}
	var tiers []Tier
	if cfg.Collections != nil {
		tiers = append(tiers, NewCollectionTier(cfg.Collections, cfg.Validator, opts...))
	}
	tiers = append(tiers, NewUnifiedTier(cfg.ContentDir, opts...))
	if cfg.Legacy {
		tiers = append(tiers, NewLegacyTier(cfg.ContentDir, opts...))
	}
	return append(tiers, NewStaticTier())
}

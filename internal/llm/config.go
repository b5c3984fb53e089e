// Package llm provides the Gemini-backed extraction client used by the Extract stage.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for cheap, high-volume extraction
	TierLite ModelTier = "lite"
	// TierStandard is the default extraction tier
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long or messy pages
	TierAdvanced ModelTier = "advanced"
)

// Config holds the model configuration for the extraction client
type Config struct {
	Models      map[ModelTier]string
	Temperature float32
	// MaxContentChars caps the page content sent in one prompt.
	MaxContentChars int
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature:     0.1,
		MaxContentChars: 30000,
	}
}

// ParseTier maps a config string to a tier, defaulting to TierStandard.
func ParseTier(s string) ModelTier {
	switch ModelTier(s) {
	case TierLite, TierStandard, TierAdvanced:
		return ModelTier(s)
	default:
		return TierStandard
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

package config

import (
	"os"

	"github.com/JaimeStill/labrecon/internal/engine"
)

const (
	EnvEngineAmountTolerance  = "LABRECON_ENGINE_AMOUNT_TOLERANCE"
	EnvEngineCriticalResidual = "LABRECON_ENGINE_CRITICAL_RESIDUAL_THRESHOLD"
	EnvEngineLargeDivergence  = "LABRECON_ENGINE_LARGE_DIVERGENCE_THRESHOLD"
)

// EngineConfig holds the reconciliation thresholds as decimal strings so
// they never pass through a float.
type EngineConfig struct {
	AmountTolerance  string `toml:"amount_tolerance"`
	CriticalResidual string `toml:"critical_residual_threshold"`
	LargeDivergence  string `toml:"large_divergence_threshold"`

	thresholds engine.Thresholds
}

// Thresholds returns the parsed thresholds. Valid after Finalize.
func (c *EngineConfig) Thresholds() engine.Thresholds {
	return c.thresholds
}

// Finalize applies environment overrides and parses the thresholds. Unset
// values keep the engine defaults; invalid ones fail with
// engine.ErrInvalidConfiguration.
func (c *EngineConfig) Finalize() error {
	c.loadEnv()

	t, err := engine.ParseThresholds(c.AmountTolerance, c.CriticalResidual, c.LargeDivergence)
	if err != nil {
		return err
	}
	c.thresholds = t
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *EngineConfig) Merge(overlay *EngineConfig) {
	if overlay.AmountTolerance != "" {
		c.AmountTolerance = overlay.AmountTolerance
	}
	if overlay.CriticalResidual != "" {
		c.CriticalResidual = overlay.CriticalResidual
	}
	if overlay.LargeDivergence != "" {
		c.LargeDivergence = overlay.LargeDivergence
	}
}

func (c *EngineConfig) loadEnv() {
	if v := os.Getenv(EnvEngineAmountTolerance); v != "" {
		c.AmountTolerance = v
	}
	if v := os.Getenv(EnvEngineCriticalResidual); v != "" {
		c.CriticalResidual = v
	}
	if v := os.Getenv(EnvEngineLargeDivergence); v != "" {
		c.LargeDivergence = v
	}
}

package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Thresholds are the safety-critical classification limits for one run.
type Thresholds struct {
	// AmountTolerance suppresses matched-amount deltas whose absolute value
	// does not exceed it.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`
	// CriticalResidual marks a run CRITICAL when the unexplained residual
	// exceeds it.
	CriticalResidual decimal.Decimal `json:"critical_residual_threshold"`
	// LargeDivergence marks a run CRITICAL when any single divergence's
	// impact exceeds it.
	LargeDivergence decimal.Decimal `json:"large_divergence_threshold"`
}

// DefaultThresholds returns the values used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AmountTolerance:  decimal.RequireFromString("0.05"),
		CriticalResidual: decimal.RequireFromString("1.00"),
		LargeDivergence:  decimal.RequireFromString("1000.00"),
	}
}

// Validate rejects negative limits.
func (t Thresholds) Validate() error {
	checks := []struct {
		name  string
		value decimal.Decimal
	}{
		{"amount_tolerance", t.AmountTolerance},
		{"critical_residual_threshold", t.CriticalResidual},
		{"large_divergence_threshold", t.LargeDivergence},
	}
	for _, c := range checks {
		if c.value.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalidConfiguration, c.name, c.value)
		}
	}
	return nil
}

// ParseThresholds parses decimal text for each limit. Empty strings keep the
// corresponding default.
func ParseThresholds(tolerance, critical, large string) (Thresholds, error) {
	t := DefaultThresholds()
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"amount_tolerance", tolerance, &t.AmountTolerance},
		{"critical_residual_threshold", critical, &t.CriticalResidual},
		{"large_divergence_threshold", large, &t.LargeDivergence},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return Thresholds{}, fmt.Errorf("%w: %s %q is not a decimal", ErrInvalidConfiguration, f.name, f.raw)
		}
		*f.dst = v
	}
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}

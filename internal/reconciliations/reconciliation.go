// Package reconciliations runs the reconciliation engine on demand and keeps
// its results: idempotent on content, resolvable per divergence and
// archivable.
package reconciliations

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JaimeStill/labrecon/internal/engine"
)

// Status is the lifecycle state of a stored reconciliation.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Reconciliation is a stored engine result. Result is only populated by
// single-record reads; list pages carry the summary columns.
type Reconciliation struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	ContentKey string          `json:"content_key"`
	Status     Status          `json:"status"`
	Outcome    engine.Status   `json:"outcome"`
	TotalA     decimal.Decimal `json:"total_a"`
	TotalB     decimal.Decimal `json:"total_b"`
	Degraded   bool            `json:"degraded"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Result     *engine.Result  `json:"result,omitempty"`

	// Deduplicated is set by Run when identical input returned an existing
	// record instead of creating one.
	Deduplicated bool `json:"deduplicated,omitempty"`
}

// ThresholdOverrides replaces individual configured thresholds for one run.
type ThresholdOverrides struct {
	AmountTolerance  *decimal.Decimal `json:"amount_tolerance,omitempty"`
	CriticalResidual *decimal.Decimal `json:"critical_residual_threshold,omitempty"`
	LargeDivergence  *decimal.Decimal `json:"large_divergence_threshold,omitempty"`
}

// Apply returns base with every non-nil override replaced.
func (o *ThresholdOverrides) Apply(base engine.Thresholds) engine.Thresholds {
	if o == nil {
		return base
	}
	if o.AmountTolerance != nil {
		base.AmountTolerance = *o.AmountTolerance
	}
	if o.CriticalResidual != nil {
		base.CriticalResidual = *o.CriticalResidual
	}
	if o.LargeDivergence != nil {
		base.LargeDivergence = *o.LargeDivergence
	}
	return base
}

// RunCommand requests a reconciliation of two row sequences.
type RunCommand struct {
	Name       string              `json:"name"`
	SourceA    []engine.RawRow     `json:"source_a"`
	SourceB    []engine.RawRow     `json:"source_b"`
	Thresholds *ThresholdOverrides `json:"thresholds,omitempty"`
}

// ResolveCommand marks one divergence resolved.
type ResolveCommand struct {
	Notes      string `json:"notes"`
	ResolvedBy string `json:"resolved_by"`
}

package engine

import (
	"github.com/shopspring/decimal"
)

// Status is the severity of a reconciliation.
type Status string

const (
	StatusOK       Status = "OK"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

// Breakdown decomposes total_a - total_b into signed buckets. Each bucket is
// positive when A billed more. The four fields always sum to the delta
// exactly.
type Breakdown struct {
	PatientsOnlyA    decimal.Decimal `json:"patients_only_a_value"`
	ProceduresOnlyA  decimal.Decimal `json:"procedures_only_a_value"`
	AmountDivergence decimal.Decimal `json:"amount_divergence_value"`
	Residual         decimal.Decimal `json:"residual_value"`
}

// Sum returns the total of all four buckets.
func (b Breakdown) Sum() decimal.Decimal {
	return b.PatientsOnlyA.Add(b.ProceduresOnlyA).Add(b.AmountDivergence).Add(b.Residual)
}

// CategoryTotals are gross, unsigned values per category and side.
type CategoryTotals struct {
	PatientsOnlyA   decimal.Decimal `json:"patients_only_a"`
	PatientsOnlyB   decimal.Decimal `json:"patients_only_b"`
	ProceduresOnlyA decimal.Decimal `json:"procedures_only_a"`
	ProceduresOnlyB decimal.Decimal `json:"procedures_only_b"`
	MismatchAbs     decimal.Decimal `json:"amount_mismatch_abs"`
	RepeatedA       decimal.Decimal `json:"repeated_a"`
	RepeatedB       decimal.Decimal `json:"repeated_b"`
}

// Compose computes the breakdown, gross category totals and status.
// residual_value is whatever remains of the delta after the three named
// buckets, which is the sum of matched deltas suppressed by the tolerance.
func Compose(set *ClassifiedSet, divs *Divergences, t Thresholds) (Breakdown, CategoryTotals, Status) {
	b := Breakdown{
		PatientsOnlyA:    zeroAmount,
		ProceduresOnlyA:  zeroAmount,
		AmountDivergence: zeroAmount,
	}
	ct := CategoryTotals{
		PatientsOnlyA:   zeroAmount,
		PatientsOnlyB:   zeroAmount,
		ProceduresOnlyA: zeroAmount,
		ProceduresOnlyB: zeroAmount,
		MismatchAbs:     zeroAmount,
		RepeatedA:       zeroAmount,
		RepeatedB:       zeroAmount,
	}

	for _, d := range divs.MissingPatients {
		b.PatientsOnlyA = b.PatientsOnlyA.Add(d.signed())
		if d.Side == SourceA {
			ct.PatientsOnlyA = ct.PatientsOnlyA.Add(d.Amount)
		} else {
			ct.PatientsOnlyB = ct.PatientsOnlyB.Add(d.Amount)
		}
	}
	for _, d := range divs.MissingProcedures {
		b.ProceduresOnlyA = b.ProceduresOnlyA.Add(d.signed())
		if d.Side == SourceA {
			ct.ProceduresOnlyA = ct.ProceduresOnlyA.Add(d.Amount)
		} else {
			ct.ProceduresOnlyB = ct.ProceduresOnlyB.Add(d.Amount)
		}
	}
	for _, d := range divs.AmountMismatches {
		b.AmountDivergence = b.AmountDivergence.Add(d.signed())
		ct.MismatchAbs = ct.MismatchAbs.Add(d.Impact())
	}
	for _, d := range divs.RepeatedProcedures {
		if d.Side == SourceA {
			ct.RepeatedA = ct.RepeatedA.Add(d.TotalAmount)
		} else {
			ct.RepeatedB = ct.RepeatedB.Add(d.TotalAmount)
		}
	}

	delta := set.TotalA.Sub(set.TotalB)
	b.Residual = delta.Sub(b.PatientsOnlyA.Add(b.ProceduresOnlyA).Add(b.AmountDivergence))

	return b, ct, classifyStatus(b, divs, t)
}

func classifyStatus(b Breakdown, divs *Divergences, t Thresholds) Status {
	if b.Residual.Abs().GreaterThan(t.CriticalResidual) {
		return StatusCritical
	}
	all := divs.All()
	for _, d := range all {
		if d.Impact().GreaterThan(t.LargeDivergence) {
			return StatusCritical
		}
	}
	if len(all) > 0 {
		return StatusWarning
	}
	return StatusOK
}

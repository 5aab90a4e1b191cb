package engine

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind names a divergence category.
type Kind string

const (
	KindMissingPatient    Kind = "missing_patient"
	KindMissingProcedure  Kind = "missing_procedure"
	KindAmountMismatch    Kind = "amount_mismatch"
	KindRepeatedProcedure Kind = "repeated_procedure"
)

// Resolution is the only mutable state of a divergence. It only moves from
// unresolved to resolved.
type Resolution struct {
	Resolved   bool       `json:"resolved"`
	Notes      string     `json:"notes,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Entry carries the identity and resolution state shared by every variant.
type Entry struct {
	Ref        string     `json:"ref"`
	Resolution Resolution `json:"resolution"`
}

// Reference returns the stable divergence reference.
func (e Entry) Reference() string { return e.Ref }

// State returns the resolution state.
func (e Entry) State() Resolution { return e.Resolution }

// Divergence is the closed set of divergence variants: MissingPatient,
// MissingProcedure, AmountMismatch and RepeatedProcedure. Consumers switch on
// the concrete type.
type Divergence interface {
	Kind() Kind
	// Impact is the absolute financial weight used for ordering and for the
	// large-divergence threshold.
	Impact() decimal.Decimal
	Reference() string
	State() Resolution

	// signed is the contribution to total_a - total_b.
	signed() decimal.Decimal
	keys() (patient, procedure string, side Source)
}

// MissingPatient is a patient billed by one side only. Side is the side that
// billed the patient; MissingFrom is the side without it.
type MissingPatient struct {
	Entry
	Side        Source           `json:"side"`
	MissingFrom Source           `json:"missing_from"`
	PatientKey  string           `json:"patient_key"`
	PatientName string           `json:"patient_name"`
	Amount      decimal.Decimal  `json:"amount"`
	Items       int              `json:"items"`
	Procedures  []ProcedureGroup `json:"procedures"`
}

func (MissingPatient) Kind() Kind                { return KindMissingPatient }
func (d MissingPatient) Impact() decimal.Decimal { return d.Amount.Abs() }
func (d MissingPatient) signed() decimal.Decimal { return sideSign(d.Side, d.Amount) }
func (d MissingPatient) keys() (string, string, Source) {
	return d.PatientKey, "", d.Side
}

// MissingProcedure is a procedure billed by one side for a patient both
// sides know. Side is the side that billed it and carries the amount;
// MissingFrom is the side the procedure is absent from.
type MissingProcedure struct {
	Entry
	Side          Source          `json:"side"`
	MissingFrom   Source          `json:"missing_from"`
	PatientKey    string          `json:"patient_key"`
	PatientName   string          `json:"patient_name"`
	ProcedureKey  string          `json:"procedure_key"`
	ProcedureName string          `json:"procedure_name"`
	Amount        decimal.Decimal `json:"amount"`
	Rows          int             `json:"rows"`
}

func (MissingProcedure) Kind() Kind                { return KindMissingProcedure }
func (d MissingProcedure) Impact() decimal.Decimal { return d.Amount.Abs() }
func (d MissingProcedure) signed() decimal.Decimal { return sideSign(d.Side, d.Amount) }
func (d MissingProcedure) keys() (string, string, Source) {
	return d.PatientKey, d.ProcedureKey, d.Side
}

// AmountMismatch is a matched procedure whose aggregates differ by more than
// the tolerance. Delta is AmountA - AmountB.
type AmountMismatch struct {
	Entry
	PatientKey    string          `json:"patient_key"`
	PatientName   string          `json:"patient_name"`
	ProcedureKey  string          `json:"procedure_key"`
	ProcedureName string          `json:"procedure_name"`
	AmountA       decimal.Decimal `json:"amount_a"`
	AmountB       decimal.Decimal `json:"amount_b"`
	Delta         decimal.Decimal `json:"delta"`
}

func (AmountMismatch) Kind() Kind                { return KindAmountMismatch }
func (d AmountMismatch) Impact() decimal.Decimal { return d.Delta.Abs() }
func (d AmountMismatch) signed() decimal.Decimal { return d.Delta }
func (d AmountMismatch) keys() (string, string, Source) {
	return d.PatientKey, d.ProcedureKey, ""
}

// RepeatedProcedure flags two or more raw rows on one side for the same
// (patient, procedure). It is reported alongside any other classification of
// the pair and never enters the breakdown.
type RepeatedProcedure struct {
	Entry
	Side          Source          `json:"side"`
	PatientKey    string          `json:"patient_key"`
	PatientName   string          `json:"patient_name"`
	ProcedureKey  string          `json:"procedure_key"`
	ProcedureName string          `json:"procedure_name"`
	Count         int             `json:"count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

func (RepeatedProcedure) Kind() Kind                { return KindRepeatedProcedure }
func (d RepeatedProcedure) Impact() decimal.Decimal { return d.TotalAmount.Abs() }
func (RepeatedProcedure) signed() decimal.Decimal   { return decimal.Zero }
func (d RepeatedProcedure) keys() (string, string, Source) {
	return d.PatientKey, d.ProcedureKey, d.Side
}

func sideSign(side Source, amount decimal.Decimal) decimal.Decimal {
	if side == SourceB {
		return amount.Neg()
	}
	return amount
}

// Divergences holds every divergence of a run grouped by category. Each
// slice is ordered by descending impact, then patient key, procedure key and
// side.
type Divergences struct {
	MissingPatients    []MissingPatient    `json:"missing_patients"`
	MissingProcedures  []MissingProcedure  `json:"missing_procedures"`
	AmountMismatches   []AmountMismatch    `json:"amount_mismatches"`
	RepeatedProcedures []RepeatedProcedure `json:"repeated_procedures"`
}

func newDivergences() Divergences {
	return Divergences{
		MissingPatients:    []MissingPatient{},
		MissingProcedures:  []MissingProcedure{},
		AmountMismatches:   []AmountMismatch{},
		RepeatedProcedures: []RepeatedProcedure{},
	}
}

// All returns every divergence in category order.
func (d *Divergences) All() []Divergence {
	all := make([]Divergence, 0, d.Len())
	for _, v := range d.MissingPatients {
		all = append(all, v)
	}
	for _, v := range d.MissingProcedures {
		all = append(all, v)
	}
	for _, v := range d.AmountMismatches {
		all = append(all, v)
	}
	for _, v := range d.RepeatedProcedures {
		all = append(all, v)
	}
	return all
}

// Len returns the number of divergences across all categories.
func (d *Divergences) Len() int {
	return len(d.MissingPatients) + len(d.MissingProcedures) +
		len(d.AmountMismatches) + len(d.RepeatedProcedures)
}

// Find returns the divergence with the given reference.
func (d *Divergences) Find(ref string) (Divergence, bool) {
	for _, v := range d.All() {
		if v.Reference() == ref {
			return v, true
		}
	}
	return nil, false
}

// ApplyResolution sets the resolution of the divergence with the given
// reference and reports whether it was found.
func (d *Divergences) ApplyResolution(ref string, res Resolution) bool {
	for i := range d.MissingPatients {
		if d.MissingPatients[i].Ref == ref {
			d.MissingPatients[i].Resolution = res
			return true
		}
	}
	for i := range d.MissingProcedures {
		if d.MissingProcedures[i].Ref == ref {
			d.MissingProcedures[i].Resolution = res
			return true
		}
	}
	for i := range d.AmountMismatches {
		if d.AmountMismatches[i].Ref == ref {
			d.AmountMismatches[i].Resolution = res
			return true
		}
	}
	for i := range d.RepeatedProcedures {
		if d.RepeatedProcedures[i].Ref == ref {
			d.RepeatedProcedures[i].Resolution = res
			return true
		}
	}
	return false
}

// Unresolved counts divergences not yet resolved.
func (d *Divergences) Unresolved() int {
	n := 0
	for _, v := range d.All() {
		if !v.State().Resolved {
			n++
		}
	}
	return n
}

func (d *Divergences) sort() {
	sortByImpact(d.MissingPatients)
	sortByImpact(d.MissingProcedures)
	sortByImpact(d.AmountMismatches)
	sortByImpact(d.RepeatedProcedures)
}

func sortByImpact[T Divergence](items []T) {
	slices.SortStableFunc(items, func(x, y T) int {
		if c := y.Impact().Cmp(x.Impact()); c != 0 {
			return c
		}
		px, qx, sx := x.keys()
		py, qy, sy := y.keys()
		return cmp.Or(
			strings.Compare(px, py),
			strings.Compare(qx, qy),
			strings.Compare(string(sx), string(sy)),
		)
	})
}

func makeRef(kind Kind, side Source, patientKey, procedureKey string) string {
	sum := sha256.Sum256([]byte(strings.Join(
		[]string{string(kind), string(side), patientKey, procedureKey}, "|",
	)))
	return hex.EncodeToString(sum[:8])
}

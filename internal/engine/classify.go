package engine

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// MatchClass classifies one (patient, procedure) pair of a patient present
// on both sides.
type MatchClass string

const (
	MatchAOnly MatchClass = "A_ONLY"
	MatchBOnly MatchClass = "B_ONLY"
	MatchBoth  MatchClass = "MATCHED"
)

// Aggregate is the sum of every raw row one side has for a single
// (patient, procedure) pair. Amount feeds matching; Rows feeds duplicate
// detection.
type Aggregate struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Rows   int             `json:"rows"`
	Units  int             `json:"units"`
}

// ProcedureGroup is one procedure aggregate inside a PatientGroup.
type ProcedureGroup struct {
	ProcedureKey string `json:"procedure_key"`
	Aggregate
}

// PatientGroup holds a patient present on one side only.
type PatientGroup struct {
	Side        Source           `json:"side"`
	PatientKey  string           `json:"patient_key"`
	PatientName string           `json:"patient_name"`
	Amount      decimal.Decimal  `json:"amount"`
	Items       int              `json:"items"`
	Procedures  []ProcedureGroup `json:"procedures"`
}

// ProcedureMatch pairs the aggregates of both sides for one
// (patient, procedure). A or B is nil when that side has no rows.
type ProcedureMatch struct {
	PatientKey    string     `json:"patient_key"`
	PatientName   string     `json:"patient_name"`
	ProcedureKey  string     `json:"procedure_key"`
	ProcedureName string     `json:"procedure_name"`
	Class         MatchClass `json:"class"`
	A             *Aggregate `json:"a,omitempty"`
	B             *Aggregate `json:"b,omitempty"`
}

// ClassifiedSet is the output of Classify. Slices are ordered by patient key
// then procedure key.
type ClassifiedSet struct {
	TotalA          decimal.Decimal
	TotalB          decimal.Decimal
	ItemsA          int
	ItemsB          int
	MissingPatients []PatientGroup
	Matches         []ProcedureMatch
}

// Count returns the number of procedure matches with the given class.
func (c *ClassifiedSet) Count(class MatchClass) int {
	n := 0
	for _, m := range c.Matches {
		if m.Class == class {
			n++
		}
	}
	return n
}

type patientIndex struct {
	name       string
	amount     decimal.Decimal
	items      int
	procedures map[string]*Aggregate
}

type sideIndex map[string]*patientIndex

func indexSide(items []LineItem) (sideIndex, decimal.Decimal) {
	idx := make(sideIndex)
	total := zeroAmount

	for _, item := range items {
		total = total.Add(item.Amount)

		p, ok := idx[item.PatientKey]
		if !ok {
			p = &patientIndex{
				name:       item.PatientRaw,
				amount:     zeroAmount,
				procedures: make(map[string]*Aggregate),
			}
			idx[item.PatientKey] = p
		}
		p.amount = p.amount.Add(item.Amount)
		p.items++

		agg, ok := p.procedures[item.ProcedureKey]
		if !ok {
			agg = &Aggregate{Name: item.ProcedureRaw, Amount: zeroAmount}
			p.procedures[item.ProcedureKey] = agg
		}
		agg.Amount = agg.Amount.Add(item.Amount)
		agg.Rows++
		agg.Units += item.UnitCount
	}

	return idx, total
}

// Classify groups both sides by patient, then by (patient, procedure) for
// patients present on both sides. Rows sharing a pair on one side are summed
// into a single aggregate.
func Classify(itemsA, itemsB []LineItem) *ClassifiedSet {
	idxA, totalA := indexSide(itemsA)
	idxB, totalB := indexSide(itemsB)

	set := &ClassifiedSet{
		TotalA: totalA,
		TotalB: totalB,
		ItemsA: len(itemsA),
		ItemsB: len(itemsB),
	}

	patients := make(map[string]struct{}, len(idxA)+len(idxB))
	for k := range idxA {
		patients[k] = struct{}{}
	}
	for k := range idxB {
		patients[k] = struct{}{}
	}

	for _, key := range slices.Sorted(maps.Keys(patients)) {
		pa, inA := idxA[key]
		pb, inB := idxB[key]

		switch {
		case inA && !inB:
			set.MissingPatients = append(set.MissingPatients, patientGroup(SourceA, key, pa))
		case inB && !inA:
			set.MissingPatients = append(set.MissingPatients, patientGroup(SourceB, key, pb))
		default:
			set.Matches = append(set.Matches, matchProcedures(key, pa, pb)...)
		}
	}

	return set
}

func patientGroup(side Source, key string, p *patientIndex) PatientGroup {
	group := PatientGroup{
		Side:        side,
		PatientKey:  key,
		PatientName: p.name,
		Amount:      p.amount,
		Items:       p.items,
		Procedures:  make([]ProcedureGroup, 0, len(p.procedures)),
	}
	for _, proc := range slices.Sorted(maps.Keys(p.procedures)) {
		group.Procedures = append(group.Procedures, ProcedureGroup{
			ProcedureKey: proc,
			Aggregate:    *p.procedures[proc],
		})
	}
	return group
}

func matchProcedures(patientKey string, pa, pb *patientIndex) []ProcedureMatch {
	procs := make(map[string]struct{}, len(pa.procedures)+len(pb.procedures))
	for k := range pa.procedures {
		procs[k] = struct{}{}
	}
	for k := range pb.procedures {
		procs[k] = struct{}{}
	}

	matches := make([]ProcedureMatch, 0, len(procs))
	for _, proc := range slices.Sorted(maps.Keys(procs)) {
		a := pa.procedures[proc]
		b := pb.procedures[proc]

		m := ProcedureMatch{
			PatientKey:   patientKey,
			PatientName:  pa.name,
			ProcedureKey: proc,
			A:            a,
			B:            b,
		}
		switch {
		case a != nil && b != nil:
			m.Class = MatchBoth
			m.ProcedureName = a.Name
		case a != nil:
			m.Class = MatchAOnly
			m.ProcedureName = a.Name
		default:
			m.Class = MatchBOnly
			m.ProcedureName = b.Name
		}
		matches = append(matches, m)
	}
	return matches
}

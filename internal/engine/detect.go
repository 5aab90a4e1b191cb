package engine

import (
	"github.com/shopspring/decimal"
)

// Detect turns a classified set into divergences. Matched pairs emit an
// AmountMismatch only when |amount_a - amount_b| exceeds tolerance. Every
// group with two or more rows on a side emits a RepeatedProcedure in
// addition to its other classification.
func Detect(set *ClassifiedSet, tolerance decimal.Decimal) Divergences {
	d := newDivergences()

	for _, p := range set.MissingPatients {
		d.MissingPatients = append(d.MissingPatients, MissingPatient{
			Entry:       Entry{Ref: makeRef(KindMissingPatient, p.Side, p.PatientKey, "")},
			Side:        p.Side,
			MissingFrom: p.Side.Other(),
			PatientKey:  p.PatientKey,
			PatientName: p.PatientName,
			Amount:      p.Amount,
			Items:       p.Items,
			Procedures:  p.Procedures,
		})
		for _, proc := range p.Procedures {
			d.addRepeated(p.Side, p.PatientKey, p.PatientName, proc.ProcedureKey, &proc.Aggregate)
		}
	}

	for _, m := range set.Matches {
		switch m.Class {
		case MatchAOnly:
			d.addMissingProcedure(SourceA, m, m.A)
		case MatchBOnly:
			d.addMissingProcedure(SourceB, m, m.B)
		case MatchBoth:
			delta := m.A.Amount.Sub(m.B.Amount)
			if delta.Abs().GreaterThan(tolerance) {
				d.AmountMismatches = append(d.AmountMismatches, AmountMismatch{
					Entry:         Entry{Ref: makeRef(KindAmountMismatch, "", m.PatientKey, m.ProcedureKey)},
					PatientKey:    m.PatientKey,
					PatientName:   m.PatientName,
					ProcedureKey:  m.ProcedureKey,
					ProcedureName: m.ProcedureName,
					AmountA:       m.A.Amount,
					AmountB:       m.B.Amount,
					Delta:         delta,
				})
			}
		}

		if m.A != nil {
			d.addRepeated(SourceA, m.PatientKey, m.PatientName, m.ProcedureKey, m.A)
		}
		if m.B != nil {
			d.addRepeated(SourceB, m.PatientKey, m.PatientName, m.ProcedureKey, m.B)
		}
	}

	d.sort()
	return d
}

func (d *Divergences) addMissingProcedure(side Source, m ProcedureMatch, agg *Aggregate) {
	d.MissingProcedures = append(d.MissingProcedures, MissingProcedure{
		Entry:         Entry{Ref: makeRef(KindMissingProcedure, side, m.PatientKey, m.ProcedureKey)},
		Side:          side,
		MissingFrom:   side.Other(),
		PatientKey:    m.PatientKey,
		PatientName:   m.PatientName,
		ProcedureKey:  m.ProcedureKey,
		ProcedureName: agg.Name,
		Amount:        agg.Amount,
		Rows:          agg.Rows,
	})
}

func (d *Divergences) addRepeated(side Source, patientKey, patientName, procedureKey string, agg *Aggregate) {
	if agg.Rows < 2 {
		return
	}
	d.RepeatedProcedures = append(d.RepeatedProcedures, RepeatedProcedure{
		Entry:         Entry{Ref: makeRef(KindRepeatedProcedure, side, patientKey, procedureKey)},
		Side:          side,
		PatientKey:    patientKey,
		PatientName:   patientName,
		ProcedureKey:  procedureKey,
		ProcedureName: agg.Name,
		Count:         agg.Rows,
		TotalAmount:   agg.Amount,
	})
}

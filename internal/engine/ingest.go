package engine

import (
	"fmt"
)

// Ingest validates and canonicalizes one source's rows. Rows that cannot be
// matched or totalled are returned as anomalies rather than failing the run.
// Every item is tagged with side regardless of the row's own source tag.
func Ingest(side Source, rows []RawRow, aliases AliasTable) ([]LineItem, []Anomaly) {
	items := make([]LineItem, 0, len(rows))
	var anomalies []Anomaly

	for i, row := range rows {
		line := row.Line
		if line == 0 {
			line = i + 1
		}

		item, reason, detail := ingestRow(side, row, aliases)
		if reason != "" {
			row.Line = line
			anomalies = append(anomalies, Anomaly{
				Source: side,
				Line:   line,
				Reason: reason,
				Detail: detail,
				Row:    row,
			})
			continue
		}

		item.Line = line
		items = append(items, item)
	}

	return items, anomalies
}

func ingestRow(side Source, row RawRow, aliases AliasTable) (LineItem, AnomalyReason, string) {
	patientKey := CanonicalizePatient(row.Patient)
	if patientKey == "" {
		return LineItem{}, ReasonEmptyPatient, "patient label is empty after normalization"
	}

	procedureKey := CanonicalizeProcedure(row.Procedure, aliases)
	if procedureKey == "" {
		return LineItem{}, ReasonEmptyProcedure, "procedure label is empty after normalization"
	}

	amount, err := ParseAmount(string(row.Amount))
	if err != nil {
		return LineItem{}, ReasonBadAmount, err.Error()
	}

	units := row.UnitCount
	if units < 0 {
		return LineItem{}, ReasonBadUnitCount, fmt.Sprintf("negative unit count %d", units)
	}
	if units == 0 {
		units = 1
	}

	return LineItem{
		Source:       side,
		PatientRaw:   row.Patient,
		PatientKey:   patientKey,
		ProcedureRaw: row.Procedure,
		ProcedureKey: procedureKey,
		Amount:       amount,
		UnitCount:    units,
	}, "", ""
}

package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Source identifies which billing extract a row came from.
type Source string

const (
	// SourceA is the laboratory's internal ledger.
	SourceA Source = "A"
	// SourceB is the payer ledger.
	SourceB Source = "B"
)

// Other returns the opposite side.
func (s Source) Other() Source {
	if s == SourceA {
		return SourceB
	}
	return SourceA
}

// RawAmount carries an amount exactly as the parsing collaborator supplied it.
// JSON input may be a string ("1.234,56") or a number literal (1234.56); the
// number's literal text is kept so it never passes through float64.
type RawAmount string

// UnmarshalJSON accepts string, number, or null.
func (a *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = RawAmount(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*a = RawAmount(n.String())
	return nil
}

// RawRow is one already-extracted billing line, before validation.
// Line is the 1-based position in the source file or sequence; Ingest fills
// it with the sequence position when left at zero.
type RawRow struct {
	Source    Source    `json:"source,omitempty"`
	Patient   string    `json:"patient"`
	Procedure string    `json:"procedure"`
	Amount    RawAmount `json:"amount"`
	UnitCount int       `json:"unit_count"`
	Line      int       `json:"line,omitempty"`
}

// LineItem is a validated, canonicalized row. It is never mutated after Ingest.
type LineItem struct {
	Source       Source          `json:"source"`
	PatientRaw   string          `json:"patient_raw"`
	PatientKey   string          `json:"patient_key"`
	ProcedureRaw string          `json:"procedure_raw"`
	ProcedureKey string          `json:"procedure_key"`
	Amount       decimal.Decimal `json:"amount"`
	UnitCount    int             `json:"unit_count"`
	Line         int             `json:"line"`
}

// AnomalyReason tags why a row was excluded from the totals.
type AnomalyReason string

const (
	ReasonEmptyPatient   AnomalyReason = "empty_patient"
	ReasonEmptyProcedure AnomalyReason = "empty_procedure"
	ReasonBadAmount      AnomalyReason = "bad_amount"
	ReasonBadUnitCount   AnomalyReason = "bad_unit_count"
)

// Anomaly is a row isolated by Ingest. Anomalies never contribute to totals.
type Anomaly struct {
	Source Source        `json:"source"`
	Line   int           `json:"line"`
	Reason AnomalyReason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
	Row    RawRow        `json:"row"`
}

package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"slices"

	"github.com/shopspring/decimal"
)

// Counts summarizes how many entities fell into each category.
type Counts struct {
	ItemsA             int `json:"items_a"`
	ItemsB             int `json:"items_b"`
	Anomalies          int `json:"anomalies"`
	PatientsOnlyA      int `json:"patients_only_a"`
	PatientsOnlyB      int `json:"patients_only_b"`
	MatchedProcedures  int `json:"matched_procedures"`
	ProceduresOnlyA    int `json:"procedures_only_a"`
	ProceduresOnlyB    int `json:"procedures_only_b"`
	AmountMismatches   int `json:"amount_mismatches"`
	RepeatedProcedures int `json:"repeated_procedures"`
}

// Result is the complete, explainable report of one reconciliation.
// Only divergence resolution state changes after it is computed.
type Result struct {
	ContentKey     string          `json:"content_key"`
	Status         Status          `json:"status"`
	TotalA         decimal.Decimal `json:"total_a"`
	TotalB         decimal.Decimal `json:"total_b"`
	Delta          decimal.Decimal `json:"delta"`
	Counts         Counts          `json:"counts"`
	Breakdown      Breakdown       `json:"breakdown"`
	CategoryTotals CategoryTotals  `json:"category_totals"`
	Divergences    Divergences     `json:"divergences"`
	Anomalies      []Anomaly       `json:"anomalies"`
	Thresholds     Thresholds      `json:"thresholds"`
	AliasDigest    string          `json:"alias_digest"`
	Degraded       bool            `json:"degraded"`
	Warnings       []string        `json:"warnings,omitempty"`
}

func countResult(set *ClassifiedSet, divs *Divergences, anomalies int) Counts {
	c := Counts{
		ItemsA:             set.ItemsA,
		ItemsB:             set.ItemsB,
		Anomalies:          anomalies,
		MatchedProcedures:  set.Count(MatchBoth),
		ProceduresOnlyA:    set.Count(MatchAOnly),
		ProceduresOnlyB:    set.Count(MatchBOnly),
		AmountMismatches:   len(divs.AmountMismatches),
		RepeatedProcedures: len(divs.RepeatedProcedures),
	}
	for _, p := range set.MissingPatients {
		if p.Side == SourceA {
			c.PatientsOnlyA++
		} else {
			c.PatientsOnlyB++
		}
	}
	return c
}

// contentKey hashes everything that determines a result: thresholds, the
// alias snapshot, the canonical items of each side and the anomalies. Input
// order does not affect it.
func contentKey(t Thresholds, aliasDigest string, itemsA, itemsB []LineItem, anomalies []Anomaly) string {
	h := sha256.New()

	fmt.Fprintf(h, "thresholds\x1f%s\x1f%s\x1f%s\n",
		t.AmountTolerance.String(), t.CriticalResidual.String(), t.LargeDivergence.String())
	fmt.Fprintf(h, "aliases\x1f%s\n", aliasDigest)

	writeItems(h, SourceA, itemsA)
	writeItems(h, SourceB, itemsB)

	lines := make([]string, 0, len(anomalies))
	for _, a := range anomalies {
		lines = append(lines, fmt.Sprintf("anomaly\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%d",
			a.Source, a.Reason, a.Row.Patient, a.Row.Procedure, a.Row.Amount, a.Row.UnitCount))
	}
	slices.Sort(lines)
	for _, l := range lines {
		io.WriteString(h, l+"\n")
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeItems(w io.Writer, side Source, items []LineItem) {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s\x1f%s\x1f%s\x1f%s\x1f%d",
			side, it.PatientKey, it.ProcedureKey, it.Amount.StringFixed(2), it.UnitCount))
	}
	slices.Sort(lines)
	for _, l := range lines {
		io.WriteString(w, l+"\n")
	}
}

package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/internal/reconciliations"
	"github.com/JaimeStill/labrecon/pkg/formatting"
)

func pair(a, b int) string {
	return fmt.Sprintf("%d / %d", a, b)
}

func writeSummary(out io.Writer, rec *reconciliations.Reconciliation, r *engine.Result) error {
	align := []tw.Align{tw.AlignLeft, tw.AlignRight}
	config := tablewriter.Config{}
	config.Header.Alignment = tw.CellAlignment{PerColumn: align}
	config.Row.Alignment = tw.CellAlignment{PerColumn: align}

	table := tablewriter.NewTable(out, tablewriter.WithConfig(config))
	table.Header("Field", "Value")

	var rows [][]any
	if rec != nil {
		rows = append(rows,
			[]any{"Reconciliation", rec.ID.String()},
			[]any{"Name", rec.Name},
		)
		if rec.Deduplicated {
			rows = append(rows, []any{"Stored", "existing record"})
		}
	}

	c := r.Counts
	rows = append(rows,
		[]any{"Status", string(r.Status)},
		[]any{"Total A", formatting.FormatBRL(r.TotalA)},
		[]any{"Total B", formatting.FormatBRL(r.TotalB)},
		[]any{"Delta", formatting.FormatBRL(r.Delta)},
		[]any{"Patients only in A", formatting.FormatBRL(r.Breakdown.PatientsOnlyA)},
		[]any{"Procedures only in A", formatting.FormatBRL(r.Breakdown.ProceduresOnlyA)},
		[]any{"Amount divergence", formatting.FormatBRL(r.Breakdown.AmountDivergence)},
		[]any{"Residual", formatting.FormatBRL(r.Breakdown.Residual)},
		[]any{"Items A / B", pair(c.ItemsA, c.ItemsB)},
		[]any{"Matched procedures", fmt.Sprint(c.MatchedProcedures)},
		[]any{"Patients only A / B", pair(c.PatientsOnlyA, c.PatientsOnlyB)},
		[]any{"Procedures only A / B", pair(c.ProceduresOnlyA, c.ProceduresOnlyB)},
		[]any{"Amount mismatches", fmt.Sprint(c.AmountMismatches)},
		[]any{"Repeated procedures", fmt.Sprint(c.RepeatedProcedures)},
		[]any{"Anomalies", fmt.Sprint(c.Anomalies)},
		[]any{"Unresolved divergences", fmt.Sprint(r.Divergences.Unresolved())},
	)

	for _, row := range rows {
		if err := table.Append(row...); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if r.Degraded {
		fmt.Fprintln(out, "\nrun used an empty alias table:")
	}
	for _, warning := range r.Warnings {
		fmt.Fprintln(out, "  -", warning)
	}
	return nil
}

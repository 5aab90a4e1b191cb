package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/labrecon/internal/aliases"
	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/internal/reconciliations"
	"github.com/JaimeStill/labrecon/internal/rows"
	"github.com/JaimeStill/labrecon/internal/schema"
	"github.com/JaimeStill/labrecon/pkg/database"
	"github.com/JaimeStill/labrecon/pkg/pagination"
	"github.com/JaimeStill/labrecon/pkg/query"
)

const (
	formatJSON    = "json"
	formatSummary = "summary"
)

type reconcileOptions struct {
	fileA, fileB   string
	sheetA, sheetB string
	aliases        string
	tolerance      string
	critical       string
	large          string
	sqlite         string
	name           string
	format         string
}

func newReconcileCommand(logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var opts reconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile two row files and print the result",
		Args:  cobra.NoArgs,
		Example: `  labrecon reconcile --a lab.csv --b insurer.xlsx
  labrecon reconcile --a lab.csv --b insurer.csv --aliases aliases.yaml --format summary
  labrecon reconcile --a lab.csv --b insurer.csv --sqlite results.db --name "march 2026"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.format != formatJSON && opts.format != formatSummary {
				return fmt.Errorf("unknown format %q (want %s or %s)", opts.format, formatJSON, formatSummary)
			}
			return runReconcile(cmd.Context(), cmd.OutOrStdout(), logger(cmd), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.fileA, "a", "", "Source A rows (.csv or .xlsx)")
	flags.StringVar(&opts.fileB, "b", "", "Source B rows (.csv or .xlsx)")
	flags.StringVar(&opts.sheetA, "sheet-a", "", "Worksheet to read from an XLSX source A (default first)")
	flags.StringVar(&opts.sheetB, "sheet-b", "", "Worksheet to read from an XLSX source B (default first)")
	flags.StringVar(&opts.aliases, "aliases", "", "Procedure alias YAML file")
	flags.StringVar(&opts.tolerance, "tolerance", "", "Amount tolerance (default 0.05)")
	flags.StringVar(&opts.critical, "critical", "", "Critical residual threshold (default 1.00)")
	flags.StringVar(&opts.large, "large", "", "Large divergence threshold (default 1000.00)")
	flags.StringVar(&opts.sqlite, "sqlite", "", "Save the result to this SQLite result store")
	flags.StringVar(&opts.name, "name", "", "Name of the saved reconciliation")
	flags.StringVarP(&opts.format, "format", "o", formatJSON, "Output format: json or summary")
	cmd.MarkFlagRequired("a")
	cmd.MarkFlagRequired("b")

	return cmd
}

func runReconcile(ctx context.Context, out io.Writer, logger *slog.Logger, opts reconcileOptions) error {
	thresholds, err := engine.ParseThresholds(opts.tolerance, opts.critical, opts.large)
	if err != nil {
		return err
	}

	var sourceA, sourceB []engine.RawRow
	g := new(errgroup.Group)
	g.Go(func() (err error) {
		sourceA, err = rows.Load(opts.fileA, engine.SourceA, opts.sheetA)
		return err
	})
	g.Go(func() (err error) {
		sourceB, err = rows.Load(opts.fileB, engine.SourceB, opts.sheetB)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	var aliasSource engine.AliasSource
	if opts.aliases != "" {
		fs, err := aliases.NewFileSource(opts.aliases, logger)
		if err != nil {
			return err
		}
		aliasSource = fs
	}

	if opts.sqlite == "" {
		result, err := engine.Run(ctx, engine.Input{SourceA: sourceA, SourceB: sourceB}, engine.Options{
			Thresholds: thresholds,
			Aliases:    aliasSource,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		return writeReport(out, opts.format, nil, result)
	}

	rec, err := saveRun(ctx, logger, opts, thresholds, aliasSource, sourceA, sourceB)
	if err != nil {
		return err
	}
	return writeReport(out, opts.format, rec, rec.Result)
}

// saveRun runs through a local SQLite result store so repeated runs of the
// same input return the stored record.
func saveRun(
	ctx context.Context,
	logger *slog.Logger,
	opts reconcileOptions,
	thresholds engine.Thresholds,
	aliasSource engine.AliasSource,
	sourceA, sourceB []engine.RawRow,
) (*reconciliations.Reconciliation, error) {
	cfg := &database.Config{Driver: database.DriverSQLite, Path: opts.sqlite}
	if err := cfg.Finalize(nil); err != nil {
		return nil, err
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer db.Connection().Close()

	if err := db.Check(ctx); err != nil {
		return nil, err
	}
	if err := schema.Up(ctx, db.Connection(), cfg.Driver); err != nil {
		return nil, err
	}

	sys := reconciliations.New(
		reconciliations.NewStore(db.Connection(), query.SQLite),
		aliasSource,
		thresholds,
		logger,
		pagination.DefaultConfig(),
	)
	return sys.Run(ctx, reconciliations.RunCommand{
		Name:    opts.name,
		SourceA: sourceA,
		SourceB: sourceB,
	})
}

func writeReport(out io.Writer, format string, rec *reconciliations.Reconciliation, result *engine.Result) error {
	if format == formatSummary {
		return writeSummary(out, rec, result)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if rec != nil {
		return enc.Encode(rec)
	}
	return enc.Encode(result)
}

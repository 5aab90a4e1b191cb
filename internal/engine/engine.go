// Package engine reconciles two billing extracts of the same period.
//
// A run validates its thresholds, snapshots the alias table once, ingests
// both sides, classifies every patient and (patient, procedure) pair,
// detects divergences and composes a breakdown of total_a - total_b into
// named buckets that always sum to the delta exactly. All money is
// fixed-point decimal. Identical inputs and alias snapshots produce
// byte-identical results.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Stage names a pipeline step for progress reporting.
type Stage string

const (
	StageAliases  Stage = "aliases"
	StageIngest   Stage = "ingest"
	StageClassify Stage = "classify"
	StageDetect   Stage = "detect"
	StageCompose  Stage = "compose"
)

// Progress is reported after each stage completes.
type Progress struct {
	Stage   Stage `json:"stage"`
	Percent int   `json:"percent"`
}

// Input is the pair of raw row sequences to reconcile.
type Input struct {
	SourceA []RawRow `json:"source_a"`
	SourceB []RawRow `json:"source_b"`
}

// Options configures a single run. Aliases, Logger and Progress are optional.
type Options struct {
	Thresholds Thresholds
	Aliases    AliasSource
	Logger     *slog.Logger
	Progress   func(Progress)
}

// Run executes the reconciliation pipeline. Row problems become anomalies on
// the result; invalid thresholds fail with ErrInvalidConfiguration before
// any stage runs; a cancelled context fails with ErrCancelled at the next
// checkpoint and nothing partial is returned.
func Run(ctx context.Context, in Input, opts Options) (*Result, error) {
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	report := func(stage Stage, percent int) {
		if opts.Progress != nil {
			opts.Progress(Progress{Stage: stage, Percent: percent})
		}
	}

	result := &Result{
		Thresholds: opts.Thresholds,
		Anomalies:  []Anomaly{},
	}

	snapshot := EmptySnapshot()
	if opts.Aliases != nil {
		s, err := opts.Aliases.Snapshot(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, cancelled(StageAliases, ctx.Err())
		case err != nil:
			logger.Warn("alias resolver unavailable, continuing without aliases", "error", err)
			result.Degraded = true
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", ErrAliasResolverUnavailable, err))
		case s != nil:
			snapshot = s
		}
	}
	result.AliasDigest = snapshot.Digest()
	report(StageAliases, 10)

	var (
		itemsA, itemsB []LineItem
		anomA, anomB   []Anomaly
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		itemsA, anomA = Ingest(SourceA, in.SourceA, snapshot)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		itemsB, anomB = Ingest(SourceB, in.SourceB, snapshot)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, cancelled(StageIngest, err)
	}
	result.Anomalies = append(result.Anomalies, anomA...)
	result.Anomalies = append(result.Anomalies, anomB...)

	logger.Info("ingest complete",
		"items_a", len(itemsA), "items_b", len(itemsB), "anomalies", len(result.Anomalies))
	report(StageIngest, 40)
	if err := ctx.Err(); err != nil {
		return nil, cancelled(StageIngest, err)
	}

	set := Classify(itemsA, itemsB)
	logger.Info("classify complete",
		"missing_patients", len(set.MissingPatients), "procedure_matches", len(set.Matches))
	report(StageClassify, 70)
	if err := ctx.Err(); err != nil {
		return nil, cancelled(StageClassify, err)
	}

	divs := Detect(set, opts.Thresholds.AmountTolerance)
	logger.Info("detect complete", "divergences", divs.Len())
	report(StageDetect, 90)
	if err := ctx.Err(); err != nil {
		return nil, cancelled(StageDetect, err)
	}

	breakdown, totals, status := Compose(set, &divs, opts.Thresholds)

	result.TotalA = set.TotalA
	result.TotalB = set.TotalB
	result.Delta = set.TotalA.Sub(set.TotalB)
	result.Breakdown = breakdown
	result.CategoryTotals = totals
	result.Status = status
	result.Divergences = divs
	result.Counts = countResult(set, &divs, len(result.Anomalies))
	result.ContentKey = contentKey(opts.Thresholds, result.AliasDigest, itemsA, itemsB, result.Anomalies)

	logger.Info("compose complete",
		"status", status, "delta", result.Delta.StringFixed(2), "residual", breakdown.Residual.StringFixed(2))
	report(StageCompose, 100)

	return result, nil
}

func cancelled(stage Stage, cause error) error {
	return fmt.Errorf("%w after %s: %w", ErrCancelled, stage, cause)
}

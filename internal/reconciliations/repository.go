package reconciliations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/pkg/pagination"
)

type repo struct {
	store      Store
	aliases    engine.AliasSource
	thresholds engine.Thresholds
	locks      *keyedLocks
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the reconciliation System. aliases may be nil, in which case
// runs use raw canonical names.
func New(
	store Store,
	aliases engine.AliasSource,
	thresholds engine.Thresholds,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		store:      store,
		aliases:    aliases,
		thresholds: thresholds,
		locks:      newKeyedLocks(),
		logger:     logger.With("system", "reconciliations"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Run(ctx context.Context, cmd RunCommand) (*Reconciliation, error) {
	started := time.Now()

	result, err := engine.Run(ctx, engine.Input{
		SourceA: cmd.SourceA,
		SourceB: cmd.SourceB,
	}, engine.Options{
		Thresholds: cmd.Thresholds.Apply(r.thresholds),
		Aliases:    r.aliases,
		Logger:     r.logger,
		Progress: func(p engine.Progress) {
			r.logger.Debug("reconciliation progress", "stage", p.Stage, "percent", p.Percent)
		},
	})
	if err != nil {
		return nil, err
	}

	name := cmd.Name
	if name == "" {
		name = "reconciliation " + started.UTC().Format(time.RFC3339)
	}

	rec, created, err := r.store.Save(ctx, name, result)
	if err != nil {
		return nil, fmt.Errorf("save reconciliation: %w", err)
	}
	rec.Deduplicated = !created

	r.logger.Info("reconciliation completed",
		"id", rec.ID,
		"outcome", rec.Outcome,
		"divergences", result.Divergences.Len(),
		"anomalies", len(result.Anomalies),
		"degraded", rec.Degraded,
		"deduplicated", rec.Deduplicated,
		"duration", time.Since(started),
	)
	return rec, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Reconciliation], error) {
	page.Normalize(r.pagination)

	result, err := r.store.List(ctx, page, filters)
	if err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Reconciliation, error) {
	return r.store.Load(ctx, id)
}

func (r *repo) Resolve(ctx context.Context, id uuid.UUID, ref string, cmd ResolveCommand) (*Reconciliation, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	now := time.Now().UTC()
	err := r.store.Resolve(ctx, id, ref, engine.Resolution{
		Resolved:   true,
		Notes:      cmd.Notes,
		ResolvedBy: cmd.ResolvedBy,
		ResolvedAt: &now,
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("divergence resolved", "id", id, "ref", ref, "resolved_by", cmd.ResolvedBy)
	return r.store.Load(ctx, id)
}

func (r *repo) Archive(ctx context.Context, id uuid.UUID) (*Reconciliation, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	if err := r.store.Archive(ctx, id); err != nil {
		return nil, err
	}

	r.logger.Info("reconciliation archived", "id", id)
	return r.store.Load(ctx, id)
}

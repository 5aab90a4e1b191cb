package aliases

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/pkg/pagination"
	"github.com/JaimeStill/labrecon/pkg/query"
	"github.com/JaimeStill/labrecon/pkg/repository"
)

type repo struct {
	db         *sql.DB
	dialect    query.Dialect
	projection *query.ProjectionMap
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the database-backed alias System for the given dialect.
func New(db *sql.DB, dialect query.Dialect, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		dialect:    dialect,
		projection: projection.WithSchema(dialect.Schema),
		logger:     logger.With("system", "aliases"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) builder() *query.Builder {
	return query.NewBuilder(r.projection, defaultSort).Dialect(r.dialect)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Alias], error) {
	page.Normalize(r.pagination)

	qb := r.builder().WhereSearch(page.Search, "Alias", "Canonical")
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	result, err := pagination.Query(ctx, r.db, qb, page, scanAlias)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	return result, nil
}

func (r *repo) Upsert(ctx context.Context, cmd UpsertCommand) (*Alias, error) {
	alias, canonical := engine.Fold(cmd.Alias), engine.Fold(cmd.Canonical)
	if alias == "" || canonical == "" || alias == canonical {
		return nil, ErrInvalidAlias
	}

	p := r.dialect.Placeholder
	upsert := fmt.Sprintf(`
		INSERT INTO %s (alias, canonical, updated_at)
		VALUES (%s, %s, %s)
		ON CONFLICT (alias) DO UPDATE SET
			canonical = excluded.canonical,
			updated_at = excluded.updated_at`,
		r.projection.Name(), p(1), p(2), p(3),
	)
	find, findArgs := r.builder().BuildSingle("Alias", alias)

	a, err := repository.Retry(ctx, repository.DefaultRetryPolicy, func() (Alias, error) {
		return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Alias, error) {
			if _, err := tx.ExecContext(ctx, upsert, alias, canonical, time.Now().UTC()); err != nil {
				return Alias{}, err
			}
			return repository.QueryOne(ctx, tx, find, findArgs, scanAlias)
		})
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("alias upserted", "alias", a.Alias, "canonical", a.Canonical)
	return &a, nil
}

func (r *repo) Delete(ctx context.Context, alias string) error {
	key := engine.Fold(alias)
	q := fmt.Sprintf("DELETE FROM %s WHERE alias = %s", r.projection.Name(), r.dialect.Placeholder(1))

	if err := repository.ExecExpectOne(ctx, r.db, q, key); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("alias deleted", "alias", key)
	return nil
}

// Snapshot reads the whole table once. Errors are left to the caller, which
// for a run means degraded mode.
func (r *repo) Snapshot(ctx context.Context) (*engine.Snapshot, error) {
	q := fmt.Sprintf("SELECT alias, canonical FROM %s", r.projection.Name())

	rows, err := repository.QueryMany(ctx, r.db, q, nil, func(s repository.Scanner) ([2]string, error) {
		var pair [2]string
		err := s.Scan(&pair[0], &pair[1])
		return pair, err
	})
	if err != nil {
		return nil, fmt.Errorf("load alias table: %w", err)
	}

	pairs := make(map[string]string, len(rows))
	for _, p := range rows {
		pairs[p[0]] = p[1]
	}
	return engine.NewSnapshot(pairs), nil
}

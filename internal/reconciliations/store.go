package reconciliations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/pkg/pagination"
	"github.com/JaimeStill/labrecon/pkg/query"
	"github.com/JaimeStill/labrecon/pkg/repository"
)

// Store persists reconciliation results and divergence resolutions.
type Store interface {
	// Save stores result under name unless a completed record with the same
	// content key exists, in which case that record is returned and created
	// is false.
	Save(ctx context.Context, name string, result *engine.Result) (rec *Reconciliation, created bool, err error)
	// Load returns the record with its result and every recorded resolution
	// applied, read in one transaction.
	Load(ctx context.Context, id uuid.UUID) (*Reconciliation, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Reconciliation], error)
	// Resolve records a resolution. It never overwrites an existing one.
	Resolve(ctx context.Context, id uuid.UUID, ref string, res engine.Resolution) error
	// Archive moves a completed record to archived.
	Archive(ctx context.Context, id uuid.UUID) error
}

type sqlStore struct {
	db       *sql.DB
	dialect  query.Dialect
	summary  *query.ProjectionMap
	detail   *query.ProjectionMap
	resTable string
	readTx   *sql.TxOptions
	lockRow  string
}

// NewStore creates a Store over db using the SQL dialect of its driver. The
// schema must already be migrated.
func NewStore(db *sql.DB, dialect query.Dialect) Store {
	s := &sqlStore{
		db:       db,
		dialect:  dialect,
		summary:  newProjection(dialect.Schema, false),
		detail:   newProjection(dialect.Schema, true),
		resTable: dialect.Schema + ".divergence_resolutions",
		readTx:   &sql.TxOptions{ReadOnly: true},
	}
	if dialect.Name == query.Postgres.Name {
		s.readTx.Isolation = sql.LevelRepeatableRead
		s.lockRow = " FOR UPDATE"
	}
	return s
}

func (s *sqlStore) p(n int) string {
	return s.dialect.Placeholder(n)
}

func (s *sqlStore) Save(ctx context.Context, name string, result *engine.Result) (*Reconciliation, bool, error) {
	doc, err := json.Marshal(result)
	if err != nil {
		return nil, false, fmt.Errorf("marshal result: %w", err)
	}

	now := time.Now().UTC()
	id := uuid.New()

	insert := fmt.Sprintf(`
		INSERT INTO %s (
			id, name, content_key, status, outcome,
			total_a, total_b, degraded, result, created_at, updated_at
		)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT DO NOTHING`,
		s.summary.Name(),
		s.p(1), s.p(2), s.p(3), s.p(4), s.p(5), s.p(6),
		s.p(7), s.p(8), s.p(9), s.p(10), s.p(11),
	)
	args := []any{
		id, name, result.ContentKey, string(StatusCompleted), string(result.Status),
		result.TotalA, result.TotalB, result.Degraded, string(doc), now, now,
	}

	existing := query.NewBuilder(s.summary).
		Dialect(s.dialect).
		WhereEquals("ContentKey", result.ContentKey).
		WhereEquals("Status", string(StatusCompleted))
	existingSQL, existingArgs := existing.BuildSingleOrNull()

	type saved struct {
		rec     Reconciliation
		created bool
	}

	out, err := write(ctx, s.db, func(tx *sql.Tx) (saved, error) {
		n, err := repository.Exec(ctx, tx, insert, args...)
		if err != nil {
			return saved{}, fmt.Errorf("insert reconciliation: %w", err)
		}
		rec, err := repository.QueryOne(ctx, tx, existingSQL, existingArgs, scanReconciliation)
		if err != nil {
			return saved{}, fmt.Errorf("read saved reconciliation: %w", err)
		}
		return saved{rec: rec, created: n == 1}, nil
	})
	if err != nil {
		return nil, false, s.mapWriteError(err)
	}

	if out.created {
		out.rec.Result = result
		return &out.rec, true, nil
	}

	rec, err := s.Load(ctx, out.rec.ID)
	if err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

func (s *sqlStore) Load(ctx context.Context, id uuid.UUID) (*Reconciliation, error) {
	find, findArgs := query.NewBuilder(s.detail).Dialect(s.dialect).BuildSingle("ID", id)
	resolutions := fmt.Sprintf(
		"SELECT ref, notes, resolved_by, resolved_at FROM %s WHERE reconciliation_id = %s",
		s.resTable, s.p(1),
	)

	rec, err := repository.WithTxOptions(ctx, s.db, s.readTx, func(tx *sql.Tx) (Reconciliation, error) {
		rec, err := repository.QueryOne(ctx, tx, find, findArgs, scanDetail)
		if err != nil {
			return rec, err
		}

		resolved, err := repository.QueryMany(ctx, tx, resolutions, []any{id}, scanResolution)
		if err != nil {
			return rec, fmt.Errorf("load resolutions: %w", err)
		}
		for _, r := range resolved {
			rec.Result.Divergences.ApplyResolution(r.Ref, r.Resolution)
		}
		return rec, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func (s *sqlStore) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Reconciliation], error) {
	qb := query.
		NewBuilder(s.summary, defaultSort).
		Dialect(s.dialect).
		WhereSearch(page.Search, "Name")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	return pagination.Query(ctx, s.db, qb, page, scanReconciliation)
}

func (s *sqlStore) Resolve(ctx context.Context, id uuid.UUID, ref string, res engine.Resolution) error {
	lock := fmt.Sprintf(
		"SELECT status, result FROM %s WHERE id = %s%s",
		s.summary.Name(), s.p(1), s.lockRow,
	)
	insert := fmt.Sprintf(`
		INSERT INTO %s (reconciliation_id, ref, notes, resolved_by, resolved_at)
		VALUES (%s, %s, %s, %s, %s)
		ON CONFLICT DO NOTHING`,
		s.resTable, s.p(1), s.p(2), s.p(3), s.p(4), s.p(5),
	)
	touch := fmt.Sprintf(
		"UPDATE %s SET updated_at = %s WHERE id = %s",
		s.summary.Name(), s.p(1), s.p(2),
	)

	resolvedAt := time.Now().UTC()
	if res.ResolvedAt != nil {
		resolvedAt = res.ResolvedAt.UTC()
	}

	_, err := write(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		var status Status
		var raw []byte
		if err := tx.QueryRowContext(ctx, lock, id).Scan(&status, &raw); err != nil {
			return struct{}{}, err
		}
		if status == StatusArchived {
			return struct{}{}, ErrArchived
		}

		var divs struct {
			Divergences engine.Divergences `json:"divergences"`
		}
		if err := json.Unmarshal(raw, &divs); err != nil {
			return struct{}{}, fmt.Errorf("unmarshal result: %w", err)
		}
		if _, ok := divs.Divergences.Find(ref); !ok {
			return struct{}{}, ErrDivergenceNotFound
		}

		n, err := repository.Exec(ctx, tx, insert, id, ref, res.Notes, res.ResolvedBy, resolvedAt)
		if err != nil {
			return struct{}{}, fmt.Errorf("insert resolution: %w", err)
		}
		if n == 0 {
			return struct{}{}, ErrAlreadyResolved
		}

		return struct{}{}, repository.ExecExpectOne(ctx, tx, touch, resolvedAt, id)
	})

	return s.mapWriteError(err)
}

func (s *sqlStore) Archive(ctx context.Context, id uuid.UUID) error {
	archive := fmt.Sprintf(
		"UPDATE %s SET status = %s, updated_at = %s WHERE id = %s AND status = %s",
		s.summary.Name(), s.p(1), s.p(2), s.p(3), s.p(4),
	)
	exists := fmt.Sprintf("SELECT status FROM %s WHERE id = %s", s.summary.Name(), s.p(1))

	_, err := write(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		n, err := repository.Exec(ctx, tx, archive,
			string(StatusArchived), time.Now().UTC(), id, string(StatusCompleted))
		if err != nil {
			return struct{}{}, err
		}
		if n == 1 {
			return struct{}{}, nil
		}

		var status Status
		if err := tx.QueryRowContext(ctx, exists, id).Scan(&status); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, ErrArchived
	})

	return s.mapWriteError(err)
}

// write runs fn in a transaction, retrying it while it fails with a
// transient write conflict.
func write[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	return repository.Retry(ctx, repository.DefaultRetryPolicy, func() (T, error) {
		return repository.WithTx(ctx, db, fn)
	})
}

func (s *sqlStore) mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrArchived), errors.Is(err, ErrAlreadyResolved), errors.Is(err, ErrDivergenceNotFound):
		return err
	case repository.IsConflict(err):
		return fmt.Errorf("%w: %w", ErrWriteConflict, err)
	}
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

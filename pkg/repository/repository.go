// Package repository holds the small set of database/sql helpers shared by
// the stores: typed row scanning, transactions, conflict retries and driver
// error classification for PostgreSQL and SQLite.
package repository

import (
	"context"
	"database/sql"
)

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn, so helpers work
// the same inside and outside a transaction.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner is the common surface of *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc reads one row into a T.
type ScanFunc[T any] func(Scanner) (T, error)

// WithTx runs fn in a transaction with default options.
func WithTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	return WithTxOptions(ctx, db, nil, fn)
}

// WithTxOptions runs fn in a transaction opened with opts. The transaction
// commits only when fn returns a nil error; any other exit rolls it back.
func WithTxOptions[T any](ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) (T, error)) (result T, err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return result, err
	}

	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if result, err = fn(tx); err != nil {
		var zero T
		return zero, err
	}
	if err = tx.Commit(); err != nil {
		var zero T
		return zero, err
	}
	committed = true
	return result, nil
}

// QueryOne scans the single row returned by query. A missing row surfaces
// as sql.ErrNoRows from scan.
func QueryOne[T any](ctx context.Context, q Querier, query string, args []any, scan ScanFunc[T]) (T, error) {
	return scan(q.QueryRowContext(ctx, query, args...))
}

// QueryMany scans every row returned by query. No rows yields an empty,
// non-nil slice so JSON encodes it as [].
func QueryMany[T any](ctx context.Context, q Querier, query string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// Exec runs a statement and reports the affected row count.
func Exec(ctx context.Context, q Querier, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExecExpectOne is Exec for statements that must touch a row; zero affected
// rows is reported as sql.ErrNoRows.
func ExecExpectOne(ctx context.Context, q Querier, query string, args ...any) error {
	n, err := Exec(ctx, q, query, args...)
	switch {
	case err != nil:
		return err
	case n == 0:
		return sql.ErrNoRows
	}
	return nil
}

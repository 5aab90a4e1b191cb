package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrConflict marks a transient write conflict: a serialization failure or
// deadlock in PostgreSQL, a busy or locked database in SQLite. Operations that
// fail with it are safe to retry.
var ErrConflict = errors.New("write conflict")

const (
	pgDuplicateKeyCode     = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	sqlitePrimaryCodeMask  = 0xff
)

// MapError translates database errors to domain errors.
// It maps sql.ErrNoRows to notFoundErr, unique violations (PostgreSQL 23505,
// SQLite UNIQUE and PRIMARY KEY constraints) to duplicateErr and transient
// conflicts to ErrConflict wrapping the driver error. Other errors are
// returned unchanged.
func MapError(err error, notFoundErr, duplicateErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	if IsDuplicate(err) {
		return duplicateErr
	}

	if isConflict(err) {
		return errors.Join(ErrConflict, err)
	}

	return err
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateKeyCode
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}

// IsConflict reports whether err is, or maps to, a retryable write conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || isConflict(err)
}

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & sqlitePrimaryCodeMask {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}

	return false
}

package database

import "errors"

var (
	// ErrNotReady wraps ping failures: the pool cannot reach the database.
	ErrNotReady = errors.New("database not ready")
	// ErrUnsupportedDriver is returned by Finalize for drivers other than
	// postgres and sqlite.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

package engine

import "errors"

// Sentinel errors for reconciliation runs.
var (
	// ErrInvalidConfiguration rejects a run before any stage executes.
	ErrInvalidConfiguration = errors.New("invalid reconciliation configuration")
	// ErrAliasResolverUnavailable is recorded on the result when the alias
	// source could not produce a snapshot. The run continues without aliases.
	ErrAliasResolverUnavailable = errors.New("alias resolver unavailable")
	// ErrCancelled is returned when the context ends at a stage checkpoint.
	ErrCancelled = errors.New("reconciliation cancelled")
	// ErrInvalidAmount is returned by ParseAmount for unusable amount text.
	ErrInvalidAmount = errors.New("invalid amount")
)

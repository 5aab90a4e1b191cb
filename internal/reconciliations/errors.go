package reconciliations

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/labrecon/internal/engine"
)

// Domain errors for reconciliation operations.
var (
	ErrNotFound           = errors.New("reconciliation not found")
	ErrInvalidID          = errors.New("invalid reconciliation id")
	ErrDuplicate          = errors.New("reconciliation already exists")
	ErrArchived           = errors.New("reconciliation is archived")
	ErrDivergenceNotFound = errors.New("divergence not found")
	ErrAlreadyResolved    = errors.New("divergence already resolved")
	// ErrWriteConflict is returned when a write kept conflicting with
	// concurrent writers after retries. The caller may retry.
	ErrWriteConflict = errors.New("reconciliation write conflict")
)

// MapHTTPStatus maps reconciliation and engine errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDivergenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrArchived), errors.Is(err, ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidID), errors.Is(err, engine.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, ErrWriteConflict), errors.Is(err, engine.ErrCancelled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

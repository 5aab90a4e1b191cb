package aliases

import (
	"errors"
	"net/http"
)

// Domain errors for alias operations.
var (
	ErrNotFound     = errors.New("alias not found")
	ErrDuplicate    = errors.New("alias already exists")
	ErrInvalidAlias = errors.New("alias and canonical must be non-empty and differ after folding")
	ErrReadOnly     = errors.New("alias source is read-only")
)

// MapHTTPStatus maps alias domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidAlias):
		return http.StatusBadRequest
	case errors.Is(err, ErrReadOnly):
		return http.StatusMethodNotAllowed
	}
	return http.StatusInternalServerError
}

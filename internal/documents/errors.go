package documents

import (
	"errors"
	"net/http"
)

// Sentinel errors surfaced by the documents system.
var (
	ErrNotFound        = errors.New("document not found")
	ErrEmptyDocument   = errors.New("document is empty")
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrInUse           = errors.New("document is referenced by pipeline runs")
)

// MapHTTPStatus translates documents errors into HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyDocument), errors.Is(err, ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, ErrInUse):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

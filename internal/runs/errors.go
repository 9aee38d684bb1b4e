package runs

import (
	"errors"
	"net/http"
)

// Sentinel errors surfaced by the runs system and dispatcher.
var (
	ErrNotFound     = errors.New("run not found")
	ErrNotFailed    = errors.New("run is not in a failed status")
	ErrNotSuspended = errors.New("run is not awaiting review")
	ErrTerminal     = errors.New("run already reached a terminal status")
	ErrNoResult     = errors.New("run has no extraction result")
	ErrNoExport     = errors.New("run has no export artifact")
)

// MapHTTPStatus translates runs errors into HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoResult), errors.Is(err, ErrNoExport):
		return http.StatusNotFound
	case errors.Is(err, ErrNotFailed), errors.Is(err, ErrNotSuspended), errors.Is(err, ErrTerminal):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

package bboard

import (
	"errors"
	"net/http"
)

// Domain errors raised at the service boundary and translated exactly once
// at the HTTP edge.
var (
	// ErrNotFound means a referenced entity id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest means the inbound body or a path parameter was
	// malformed or failed validation.
	ErrBadRequest = errors.New("bad request")
)

// statusForError maps a domain error to the HTTP status it renders as.
// Anything unrecognized is an internal error; its body is withheld so no
// internals leak onto the wire.
func statusForError(err error) int {
	var verrs ValidationErrors
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest), errors.As(err, &verrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

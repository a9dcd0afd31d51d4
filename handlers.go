package bboard

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// writeJSON serializes v into the response. Encoding failures after the
// header is written can only be logged.
func (s *BoardService) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding response", slog.String("error", err.Error()))
	}
}

// renderError maps a status to the wire. Internal errors get an empty body
// so nothing about the failure leaks to the client; everything else carries
// a small JSON envelope.
func (s *BoardService) renderError(w http.ResponseWriter, statusCode int) {
	if statusCode == http.StatusInternalServerError {
		w.WriteHeader(statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(statusCode)})
}

func (s *BoardService) renderErrorMessage(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// acceptsJSON rejects clients that explicitly refuse JSON. An absent Accept
// header means anything goes.
func acceptsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mt := strings.TrimSpace(part)
		if i := strings.Index(mt, ";"); i >= 0 {
			mt = strings.TrimSpace(mt[:i])
		}
		switch mt {
		case "application/json", "application/*", "*/*":
			return true
		}
	}
	return false
}

func parsePathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(r.PathValue(key), 10, 64)
}

// ListUsersHandler handles GET /users.
func (s *BoardService) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer().Start(r.Context(), "ListUsersHandler")
	defer span.End()

	r = r.WithContext(ctx)

	if !acceptsJSON(r) {
		s.renderError(w, http.StatusNotAcceptable)
		return
	}

	span.AddEvent("svc.ListUsers")
	users, err := s.ListUsers(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "error listing users", slog.String("error", err.Error()))
		s.renderError(w, statusForError(err))
		return
	}

	s.writeJSON(w, r, http.StatusOK, users)
}

// GetUserHandler handles GET /users/{id}.
func (s *BoardService) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer().Start(r.Context(), "GetUserHandler")
	defer span.End()

	r = r.WithContext(ctx)

	if !acceptsJSON(r) {
		s.renderError(w, http.StatusNotAcceptable)
		return
	}

	id, err := parsePathID(r, "id")
	if err != nil {
		s.logger.DebugContext(r.Context(), "error parsing user ID", slog.String("error", err.Error()))
		s.renderError(w, http.StatusBadRequest)
		return
	}

	user, err := s.GetUser(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.ErrorContext(r.Context(), "error getting user", slog.String("error", err.Error()))
		}
		s.renderError(w, statusForError(err))
		return
	}

	s.writeJSON(w, r, http.StatusOK, user)
}

// CreateUserHandler handles POST /. The inbound transfer may carry the
// whole graph of posts, topics, pics and comments; everything is persisted
// together and echoed back with store-assigned ids, status 201.
func (s *BoardService) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer().Start(r.Context(), "CreateUserHandler")
	defer span.End()

	r = r.WithContext(ctx)

	if !acceptsJSON(r) {
		s.renderError(w, http.StatusNotAcceptable)
		return
	}

	var t UserTransfer
	span.AddEvent("decode body")
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		s.logger.DebugContext(r.Context(), "error decoding body", slog.String("error", err.Error()))
		s.renderError(w, http.StatusBadRequest)
		return
	}

	span.AddEvent("sanitize inputs")
	SanitizeUserTransfer(&t)

	span.AddEvent("validate")
	if errs := ValidateUserTransfer(&t); len(errs) > 0 {
		s.logger.DebugContext(r.Context(), "validation failed", slog.String("errors", errs.Error()))
		s.renderErrorMessage(w, http.StatusBadRequest, errs.Error())
		return
	}

	created, err := s.CreateUser(r.Context(), t)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "error creating user", slog.String("error", err.Error()))
		s.renderError(w, statusForError(err))
		return
	}

	s.writeJSON(w, r, http.StatusCreated, created)
}

// UpdateUserHandler handles PUT /users/{id}. Scalar fields only; nested
// collections in the payload are ignored.
func (s *BoardService) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer().Start(r.Context(), "UpdateUserHandler")
	defer span.End()

	r = r.WithContext(ctx)

	if !acceptsJSON(r) {
		s.renderError(w, http.StatusNotAcceptable)
		return
	}

	id, err := parsePathID(r, "id")
	if err != nil {
		s.logger.DebugContext(r.Context(), "error parsing user ID", slog.String("error", err.Error()))
		s.renderError(w, http.StatusBadRequest)
		return
	}

	var t UserTransfer
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		s.logger.DebugContext(r.Context(), "error decoding body", slog.String("error", err.Error()))
		s.renderError(w, http.StatusBadRequest)
		return
	}

	SanitizeUserTransfer(&t)

	if errs := ValidateUserTransfer(&t); len(errs) > 0 {
		s.logger.DebugContext(r.Context(), "validation failed", slog.String("errors", errs.Error()))
		s.renderErrorMessage(w, http.StatusBadRequest, errs.Error())
		return
	}

	updated, err := s.UpdateUser(r.Context(), id, t)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.ErrorContext(r.Context(), "error updating user", slog.String("error", err.Error()))
		}
		s.renderError(w, statusForError(err))
		return
	}

	s.writeJSON(w, r, http.StatusOK, updated)
}

// DeleteUserHandler handles DELETE /users/{id}. Deleting an id that does
// not exist succeeds; the outcome is the same either way.
func (s *BoardService) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer().Start(r.Context(), "DeleteUserHandler")
	defer span.End()

	r = r.WithContext(ctx)

	id, err := parsePathID(r, "id")
	if err != nil {
		s.logger.DebugContext(r.Context(), "error parsing user ID", slog.String("error", err.Error()))
		s.renderError(w, http.StatusBadRequest)
		return
	}

	span.AddEvent("svc.DeleteUser")
	if err := s.DeleteUser(r.Context(), id); err != nil {
		s.logger.ErrorContext(r.Context(), "error deleting user", slog.String("error", err.Error()))
		s.renderError(w, statusForError(err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HealthCheck handles health check requests
func (s *BoardService) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

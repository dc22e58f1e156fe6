// Package handler provides HTTP handlers for the gateway API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chat-analyzer/gateway/internal/app"
	"github.com/chat-analyzer/gateway/internal/middleware"
	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/store"
	"github.com/chat-analyzer/gateway/internal/transport"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	var reqErr *transport.RequestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrInvalidFileType),
		errors.Is(err, app.ErrNoAgentSelected):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrUnknownAgent):
		return http.StatusNotFound
	case errors.Is(err, app.ErrDigestDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrMissingAgentID),
		errors.Is(err, store.ErrUnexpectedStatus):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes it with the mapped status. Backend error bodies are
// passed through as the message.
func fail(w http.ResponseWriter, r *http.Request, log *logger.Logger, msg string, err error) {
	status := statusFor(err)
	reqLog := logger.FromContext(r.Context(), log)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		reqLog.Error(msg, zap.Int("status", status), zap.Error(err))
	} else {
		reqLog.Warn(msg, zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// idParam reads and validates a path id.
func idParam(w http.ResponseWriter, r *http.Request, name string) (model.ID, bool) {
	id := chi.URLParam(r, name)
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return model.ID(id), true
}

// flag reports whether a query parameter is set to a true value.
func flag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

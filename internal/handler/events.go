package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// EventSource replays store-change events.
type EventSource interface {
	Events(ctx context.Context, store string, afterSequence uint64, limit int) ([]model.StoreEvent, uint64, error)
}

// EventHandler serves the store event replay.
type EventHandler struct {
	source EventSource
	logger *logger.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(source EventSource, log *logger.Logger) *EventHandler {
	return &EventHandler{
		source: source,
		logger: log,
	}
}

// EventListResponse is one page of replayed events.
type EventListResponse struct {
	Events       []model.StoreEvent `json:"events"`
	LastSequence uint64             `json:"last_sequence"`
}

// List handles GET /api/v1/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var after uint64
	if s := q.Get("after"); s != "" {
		parsed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after sequence")
			return
		}
		after = parsed
	}

	limit := defaultEventLimit
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxEventLimit {
			limit = parsed
		}
	}

	events, last, err := h.source.Events(r.Context(), q.Get("store"), after, limit)
	if err != nil {
		fail(w, r, h.logger, "failed to replay events", err)
		return
	}
	if events == nil {
		events = []model.StoreEvent{}
	}
	writeJSON(w, http.StatusOK, EventListResponse{
		Events:       events,
		LastSequence: last,
	})
}

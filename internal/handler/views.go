package handler

import (
	"net/http"

	"github.com/chat-analyzer/gateway/internal/app"
	"github.com/chat-analyzer/gateway/internal/middleware"
	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

// ViewHandler serves the derived dashboard, statistics and search views.
type ViewHandler struct {
	app    *app.App
	logger *logger.Logger
}

// NewViewHandler creates a new view handler.
func NewViewHandler(a *app.App, log *logger.Logger) *ViewHandler {
	return &ViewHandler{
		app:    a,
		logger: log,
	}
}

// Dashboard handles GET /api/v1/agents/{id}/dashboard. With ?messages=1 the
// agent's messages are loaded before the view is derived.
func (h *ViewHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	agentID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if flag(r, "messages") {
		h.app.Conversations.Fetch(r.Context(), agentID)
		if err := h.app.LoadAgentMessages(r.Context(), agentID); err != nil {
			fail(w, r, h.logger, "failed to load messages", err)
			return
		}
	}

	view, err := h.app.Dashboard(r.Context(), agentID)
	if err != nil {
		fail(w, r, h.logger, "failed to build dashboard", err)
		return
	}
	view.Errors.Messages = h.app.Messages.Err()
	writeJSON(w, http.StatusOK, view)
}

// Statistics handles GET /api/v1/agents/{id}/statistics. Conversations and
// uncached threads are loaded first; ?refresh=1 reloads every thread.
func (h *ViewHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	agentID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	load := h.app.LoadAgentMessages
	if flag(r, "refresh") {
		load = h.app.ReloadAgentMessages
	}
	h.app.Conversations.Fetch(r.Context(), agentID)
	if err := load(r.Context(), agentID); err != nil {
		fail(w, r, h.logger, "failed to load messages", err)
		return
	}

	view, err := h.app.Statistics(agentID)
	if err != nil {
		fail(w, r, h.logger, "failed to build statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Sentiment handles GET /api/v1/agents/{id}/sentiment
func (h *ViewHandler) Sentiment(w http.ResponseWriter, r *http.Request) {
	agentID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	view, err := h.app.SentimentView(r.Context(), agentID)
	if err != nil {
		fail(w, r, h.logger, "failed to build sentiment", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Digest handles GET /api/v1/agents/{id}/digest
func (h *ViewHandler) Digest(w http.ResponseWriter, r *http.Request) {
	agentID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	digest, err := h.app.Digest(r.Context(), agentID)
	if err != nil {
		fail(w, r, h.logger, "failed to generate digest", err)
		return
	}
	writeJSON(w, http.StatusOK, digest)
}

// SearchResponse lists semantic search hits.
type SearchResponse struct {
	AgentID model.ID             `json:"agent_id"`
	Query   string               `json:"query"`
	Results []model.SearchResult `json:"results"`
}

// Search handles POST /api/v1/agents/{id}/search
func (h *ViewHandler) Search(w http.ResponseWriter, r *http.Request) {
	agentID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Query string `json:"query"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateQuery(req.Query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.app.SemanticSearch(r.Context(), agentID, req.Query)
	if err != nil {
		fail(w, r, h.logger, "semantic search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		AgentID: agentID,
		Query:   req.Query,
		Results: results,
	})
}

package handler

import (
	"net/http"

	"github.com/chat-analyzer/gateway/internal/app"
	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

// ConversationHandler handles conversation and message endpoints.
type ConversationHandler struct {
	app    *app.App
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(a *app.App, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		app:    a,
		logger: log,
	}
}

// ConversationListResponse is an agent's conversations with the store's status.
type ConversationListResponse struct {
	AgentID       model.ID             `json:"agent_id"`
	Conversations []model.Conversation `json:"conversations"`
	Loading       bool                 `json:"loading"`
	Error         string               `json:"error,omitempty"`
}

// MessageListResponse is a conversation's messages with the store's status.
type MessageListResponse struct {
	ConversationID model.ID        `json:"conversation_id"`
	Messages       []model.Message `json:"messages"`
	Loading        bool            `json:"loading"`
	Error          string          `json:"error,omitempty"`
}

// List handles GET /api/v1/agents/{id}/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	agentID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if flag(r, "refresh") {
		h.app.Conversations.Refresh(r.Context(), agentID)
	} else {
		h.app.Conversations.Fetch(r.Context(), agentID)
	}

	writeJSON(w, http.StatusOK, ConversationListResponse{
		AgentID:       agentID,
		Conversations: h.app.Conversations.ForAgent(agentID),
		Loading:       h.app.Conversations.Loading(),
		Error:         h.app.Conversations.Err(),
	})
}

// Transcript handles GET /api/v1/agents/{id}/conversations/{conversationID}
func (h *ConversationHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	agentID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	conversationID, ok := idParam(w, r, "conversationID")
	if !ok {
		return
	}

	h.app.Messages.Fetch(r.Context(), conversationID)
	view, err := h.app.Transcript(agentID, conversationID)
	if err != nil {
		fail(w, r, h.logger, "failed to build transcript", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Messages handles GET /api/v1/conversations/{id}/messages
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if flag(r, "refresh") {
		h.app.Messages.Refresh(r.Context(), conversationID)
	} else {
		h.app.Messages.Fetch(r.Context(), conversationID)
	}

	writeJSON(w, http.StatusOK, MessageListResponse{
		ConversationID: conversationID,
		Messages:       h.app.Messages.ForConversation(conversationID),
		Loading:        h.app.Messages.Loading(),
		Error:          h.app.Messages.Err(),
	})
}

// Context handles GET /api/v1/conversations/{id}/context
func (h *ConversationHandler) Context(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	details := h.app.Conversations.ContextChange(r.Context(), conversationID)
	if details == nil {
		writeError(w, http.StatusNotFound, "context change unavailable")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

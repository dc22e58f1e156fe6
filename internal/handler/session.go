package handler

import (
	"net/http"

	"github.com/chat-analyzer/gateway/internal/app"
	"github.com/chat-analyzer/gateway/internal/middleware"
	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/session"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

// SessionHandler handles authentication and selection endpoints.
type SessionHandler struct {
	app    *app.App
	logger *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(a *app.App, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		app:    a,
		logger: log,
	}
}

// Get handles GET /api/v1/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Session.State())
}

// Login handles POST /api/v1/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.Credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateCredentials(req.Username, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.app.Session.Login(r.Context(), req.Username, req.Password) {
		state := h.app.Session.State()
		if state.LoginError == "" {
			writeError(w, http.StatusConflict, "login already in progress")
			return
		}
		status := http.StatusUnauthorized
		if state.LoginError == session.ErrUserUnavailable {
			status = http.StatusBadGateway
		}
		writeError(w, status, state.LoginError)
		return
	}

	writeJSON(w, http.StatusOK, h.app.Session.State())
}

// Register handles POST /api/v1/session/register
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateCredentials(req.Username, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.app.Session.Register(r.Context(), req) {
		state := h.app.Session.State()
		if state.RegisterError == "" {
			writeError(w, http.StatusConflict, "registration already in progress")
			return
		}
		writeError(w, http.StatusBadRequest, state.RegisterError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]bool{"registered": true})
}

// Logout handles POST /api/v1/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.app.Session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Selection handles GET /api/v1/selection
func (h *SessionHandler) Selection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Selection.Get())
}

// SelectRequest is the body of PUT /api/v1/selection. Absent keys leave the
// matching part of the cursor alone.
type SelectRequest struct {
	AgentID        *model.ID `json:"selected_agent_id"`
	ConversationID *model.ID `json:"selected_conversation_id"`
}

// Select handles PUT /api/v1/selection. Setting the agent, even to the current
// one, resets the conversation unless one is given in the same request.
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.AgentID != nil {
		h.app.Selection.SetAgent(*req.AgentID)
	}
	if req.ConversationID != nil {
		h.app.Selection.SetConversation(*req.ConversationID)
	}

	writeJSON(w, http.StatusOK, h.app.Selection.Get())
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chat-analyzer/gateway/internal/app"
	"github.com/chat-analyzer/gateway/internal/middleware"
	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/store"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

// maxUploadBytes bounds conversation export uploads.
const maxUploadBytes = 32 << 20

// AgentHandler handles agent, connection and Jotform endpoints.
type AgentHandler struct {
	app    *app.App
	logger *logger.Logger
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(a *app.App, log *logger.Logger) *AgentHandler {
	return &AgentHandler{
		app:    a,
		logger: log,
	}
}

// AgentListResponse is the agent list with the store's status.
type AgentListResponse struct {
	Agents         []model.Agent        `json:"agents"`
	ConnectionType model.ConnectionType `json:"connection_type,omitempty"`
	Loading        bool                 `json:"loading"`
	Error          string               `json:"error,omitempty"`
}

// List handles GET /api/v1/agents
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	ct := model.ConnectionType(r.URL.Query().Get("connection_type"))
	h.app.Agents.Fetch(r.Context(), ct)

	resp := AgentListResponse{
		Agents:         h.app.Agents.Agents(),
		ConnectionType: ct,
		Loading:        h.app.Agents.Loading(),
		Error:          h.app.Agents.Err(),
	}
	if ct != "" {
		resp.Agents = h.app.Agents.AgentsForConnection(ct)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/agents/{id} from the cache.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	agent, found := h.app.Agents.Agent(id)
	if !found {
		writeError(w, http.StatusNotFound, store.ErrUnknownAgent.Error())
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// Delete handles DELETE /api/v1/agents/{id}
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.app.DeleteAgent(r.Context(), id); err != nil {
		fail(w, r, h.logger, "failed to delete agent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateLabels handles PUT /api/v1/agents/{id}/labels
func (h *AgentHandler) UpdateLabels(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req model.UpdateLabelsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateLabels(req.LabelChoices); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.app.Agents.UpdateLabels(r.Context(), id, req.LabelChoices); err != nil {
		fail(w, r, h.logger, "failed to update labels", err)
		return
	}
	h.writeAgent(w, id, req.LabelChoices)
}

// AddLabel handles POST /api/v1/agents/{id}/labels
func (h *AgentHandler) AddLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Label string `json:"label"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateLabels([]string{req.Label}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.app.Agents.AddLabel(r.Context(), id, req.Label); err != nil {
		fail(w, r, h.logger, "failed to add label", err)
		return
	}
	h.writeAgent(w, id, nil)
}

// RemoveLabel handles DELETE /api/v1/agents/{id}/labels/{label}
func (h *AgentHandler) RemoveLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.app.Agents.RemoveLabel(r.Context(), id, chi.URLParam(r, "label")); err != nil {
		fail(w, r, h.logger, "failed to remove label", err)
		return
	}
	h.writeAgent(w, id, nil)
}

// writeAgent writes the cached agent, or a stub carrying labels when the
// agent is not cached.
func (h *AgentHandler) writeAgent(w http.ResponseWriter, id model.ID, labels []string) {
	if agent, ok := h.app.Agents.Agent(id); ok {
		writeJSON(w, http.StatusOK, agent)
		return
	}
	writeJSON(w, http.StatusOK, model.Agent{ID: id, LabelChoices: labels})
}

// Upload handles POST /api/v1/agents/upload
func (h *AgentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	id, err := h.app.CreateAgentFromFile(r.Context(), store.Upload{
		AgentName: r.FormValue("agent_name"),
		AvatarURL: r.FormValue("agent_avatar_url"),
		FileName:  header.Filename,
		File:      file,
	})
	if err != nil {
		fail(w, r, h.logger, "failed to create agent from file", err)
		return
	}

	h.logger.Info("agent created from file",
		zap.String("agent_id", id.String()),
		zap.String("file", header.Filename),
		zap.Int64("size", header.Size),
	)
	writeJSON(w, http.StatusCreated, map[string]model.ID{"id": id})
}

// Jotform handles GET /api/v1/jotform/agents
func (h *AgentHandler) Jotform(w http.ResponseWriter, r *http.Request) {
	agents, err := h.app.Agents.FetchJotform(r.Context())
	if err != nil {
		fail(w, r, h.logger, "failed to fetch jotform agents", err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// SyncJotform handles POST /api/v1/jotform/sync
func (h *AgentHandler) SyncJotform(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Agents []model.JotformAgent `json:"agents"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Agents) == 0 {
		writeError(w, http.StatusBadRequest, "agents cannot be empty")
		return
	}
	if err := h.app.Agents.SyncJotform(r.Context(), req.Agents); err != nil {
		fail(w, r, h.logger, "failed to sync jotform agents", err)
		return
	}
	writeJSON(w, http.StatusOK, AgentListResponse{Agents: h.app.Agents.Agents()})
}

// ConnectionListResponse is the connection list with the store's status.
type ConnectionListResponse struct {
	Connections []model.Connection `json:"connections"`
	Loading     bool               `json:"loading"`
	Error       string             `json:"error,omitempty"`
}

// Connections handles GET /api/v1/connections
func (h *AgentHandler) Connections(w http.ResponseWriter, r *http.Request) {
	h.app.Connections.Fetch(r.Context())
	writeJSON(w, http.StatusOK, ConnectionListResponse{
		Connections: h.app.Connections.Connections(),
		Loading:     h.app.Connections.Loading(),
		Error:       h.app.Connections.Err(),
	})
}

// CreateConnection handles POST /api/v1/connections
func (h *AgentHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req model.CreateConnectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ConnectionType == "" {
		writeError(w, http.StatusBadRequest, "connection_type is required")
		return
	}

	conn, err := h.app.Connections.Create(r.Context(), req)
	if err != nil {
		fail(w, r, h.logger, "failed to create connection", err)
		return
	}
	if conn == nil {
		writeError(w, http.StatusConflict, "a connection request is already in progress")
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

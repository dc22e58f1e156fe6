package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/transport"
	"github.com/chat-analyzer/gateway/pkg/metrics"
)

// Store names used in metrics and events.
const (
	AgentsStore        = "agents"
	ConversationsStore = "conversations"
	MessagesStore      = "messages"
	ConnectionsStore   = "connections"
	DetailsStoreName   = "agent_details"
)

// DefaultConnectionType is the connection selected before the user picks one.
const DefaultConnectionType = model.ConnectionJotform

// JotformRenderURL is the render URL used when a Jotform agent has none.
func JotformRenderURL(agentID model.ID) string {
	return "https://agent.jotform.com/" + agentID.String()
}

// Upload is an agent created from an exported conversation file.
type Upload struct {
	AgentName string
	AvatarURL string
	FileName  string
	File      io.Reader
}

// ValidateUploadName accepts .csv and .json files only.
func ValidateUploadName(name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".json":
		return nil
	default:
		return ErrInvalidFileType
	}
}

// AgentStore caches the flat agent list and one sublist per connection type.
type AgentStore struct {
	base

	mu           sync.RWMutex
	agents       []model.Agent
	byConnection map[model.ConnectionType][]model.Agent
	selectedType model.ConnectionType
}

// NewAgentStore creates an empty agent store.
func NewAgentStore(deps Deps) *AgentStore {
	s := &AgentStore{
		byConnection: make(map[model.ConnectionType][]model.Agent),
		selectedType: DefaultConnectionType,
	}
	s.init(AgentsStore, deps)
	return s
}

// Agents returns a copy of the flat agent list.
func (s *AgentStore) Agents() []model.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Agent(nil), s.agents...)
}

// Agent looks up one agent in the flat list.
func (s *AgentStore) Agent(id model.ID) (model.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agents {
		if a.ID == id {
			return a, true
		}
	}
	return model.Agent{}, false
}

// SetAgents replaces the flat list.
func (s *AgentStore) SetAgents(ctx context.Context, agents []model.Agent) {
	s.mu.Lock()
	s.agents = append([]model.Agent(nil), agents...)
	n := len(s.agents)
	s.mu.Unlock()
	metrics.SetEntries(AgentsStore, n)
	s.emit(ctx, model.ActionReplaced, "", n)
}

// AddAgents merges agents into the flat list.
func (s *AgentStore) AddAgents(ctx context.Context, agents []model.Agent) {
	s.mu.Lock()
	s.agents = MergeByID(s.agents, agents)
	n := len(s.agents)
	s.mu.Unlock()
	metrics.SetEntries(AgentsStore, n)
	s.emit(ctx, model.ActionMerged, "", n)
}

// AgentsForConnection returns the cached sublist for a connection type.
func (s *AgentStore) AgentsForConnection(ct model.ConnectionType) []model.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Agent(nil), s.byConnection[ct]...)
}

// SetAgentsForConnection replaces the sublist and merges it into the flat list.
func (s *AgentStore) SetAgentsForConnection(ctx context.Context, ct model.ConnectionType, agents []model.Agent) {
	s.mu.Lock()
	s.byConnection[ct] = append([]model.Agent(nil), agents...)
	s.agents = MergeByID(s.agents, agents)
	n := len(s.agents)
	s.mu.Unlock()
	metrics.SetEntries(AgentsStore, n)
	s.emit(ctx, model.ActionReplaced, string(ct), len(agents))
}

// SelectedConnectionType returns the connection type the UI is browsing.
func (s *AgentStore) SelectedConnectionType() model.ConnectionType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedType
}

// SetSelectedConnectionType sets the connection type the UI is browsing.
func (s *AgentStore) SetSelectedConnectionType(ct model.ConnectionType) {
	s.mu.Lock()
	s.selectedType = ct
	s.mu.Unlock()
}

// Clear drops the flat list and every sublist.
func (s *AgentStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.agents = nil
	s.byConnection = make(map[model.ConnectionType][]model.Agent)
	s.mu.Unlock()
	metrics.SetEntries(AgentsStore, 0)
	s.emit(ctx, model.ActionCleared, "", 0)
}

// Fetch replaces the flat list from the backend. With a connection type the
// per-connection endpoint is used and that sublist is replaced too. Failures
// are recorded in Err and leave the cache untouched.
func (s *AgentStore) Fetch(ctx context.Context, ct model.ConnectionType) []model.Agent {
	if !s.allowed() || !s.begin() {
		return []model.Agent{}
	}
	defer s.latch.Release()

	path := "/api/agent/"
	if ct != "" {
		path = fmt.Sprintf("/api/connection/%s/agent/", ct)
	}
	body, err := s.client.Do(ctx, path, transport.Options{Method: http.MethodGet})
	if err != nil {
		s.fail("fetch", err, "Failed to load agents")
		return []model.Agent{}
	}
	agents := transport.ContentList[model.Agent](body)
	s.SetAgents(ctx, agents)
	if ct != "" {
		s.SetAgentsForConnection(ctx, ct, agents)
	}
	s.succeeded()
	return agents
}

// FetchForConnection loads one connection's sublist unless it is already
// cached.
func (s *AgentStore) FetchForConnection(ctx context.Context, ct model.ConnectionType) {
	if !s.allowed() {
		return
	}
	if len(s.AgentsForConnection(ct)) > 0 {
		metrics.RecordFetch(AgentsStore, metrics.OutcomeCached)
		return
	}
	if !s.begin() {
		return
	}
	defer s.latch.Release()

	body, err := s.client.Do(ctx, fmt.Sprintf("/api/connection/%s/agent/", ct), transport.Options{Method: http.MethodGet})
	if err != nil {
		s.fail("fetch_for_connection", err, "Failed to load agents for "+string(ct))
		return
	}
	s.SetAgentsForConnection(ctx, ct, transport.ContentList[model.Agent](body))
	s.succeeded()
}

// Delete removes an agent on the backend, then from the flat list and every
// sublist.
func (s *AgentStore) Delete(ctx context.Context, id model.ID) error {
	if _, err := s.client.Do(ctx, fmt.Sprintf("/api/agent/%s/", id), transport.Options{Method: http.MethodDelete}); err != nil {
		s.fail("delete", err, "Failed to delete agent")
		return err
	}

	s.mu.Lock()
	s.agents = removeAgent(s.agents, id)
	for ct, list := range s.byConnection {
		s.byConnection[ct] = removeAgent(list, id)
	}
	n := len(s.agents)
	s.mu.Unlock()

	metrics.SetEntries(AgentsStore, n)
	s.emit(ctx, model.ActionRemoved, id.String(), n)
	return nil
}

func removeAgent(list []model.Agent, id model.ID) []model.Agent {
	out := make([]model.Agent, 0, len(list))
	for _, a := range list {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

// UpdateLabels replaces an agent's label choices on the backend and in every
// local copy.
func (s *AgentStore) UpdateLabels(ctx context.Context, id model.ID, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	_, err := s.client.Do(ctx, fmt.Sprintf("/api/agent/%s/", id), transport.Options{
		Method: http.MethodPut,
		Body:   model.UpdateLabelsRequest{LabelChoices: labels},
	})
	if err != nil {
		s.fail("update_labels", err, "Failed to update labels")
		return err
	}

	s.mu.Lock()
	setLabels(s.agents, id, labels)
	for _, list := range s.byConnection {
		setLabels(list, id, labels)
	}
	s.mu.Unlock()

	s.emit(ctx, model.ActionUpdated, id.String(), len(labels))
	return nil
}

func setLabels(list []model.Agent, id model.ID, labels []string) {
	for i := range list {
		if list[i].ID == id {
			list[i].LabelChoices = append([]string(nil), labels...)
		}
	}
}

// AddLabel appends a label to the agent's ordered label set.
func (s *AgentStore) AddLabel(ctx context.Context, id model.ID, label string) error {
	agent, ok := s.Agent(id)
	if !ok {
		return ErrUnknownAgent
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	for _, l := range agent.LabelChoices {
		if l == label {
			return nil
		}
	}
	return s.UpdateLabels(ctx, id, append(append([]string(nil), agent.LabelChoices...), label))
}

// RemoveLabel drops a label from the agent's label set.
func (s *AgentStore) RemoveLabel(ctx context.Context, id model.ID, label string) error {
	agent, ok := s.Agent(id)
	if !ok {
		return ErrUnknownAgent
	}
	labels := make([]string, 0, len(agent.LabelChoices))
	for _, l := range agent.LabelChoices {
		if l != label {
			labels = append(labels, l)
		}
	}
	return s.UpdateLabels(ctx, id, labels)
}

// FetchJotform lists the agents available through the Jotform connection.
func (s *AgentStore) FetchJotform(ctx context.Context) (*model.JotformAgents, error) {
	body, err := s.client.Do(ctx, "/api/jotform/agents/", transport.Options{Method: http.MethodGet})
	if err != nil {
		s.logger.Warn("Failed to fetch Jotform agents", zap.Error(err))
		return nil, err
	}
	if env := body.Envelope(); env.Status != model.StatusSuccess {
		return nil, fmt.Errorf("failed to fetch Jotform agents: %w", ErrUnexpectedStatus)
	}
	var result model.JotformAgents
	if err := transport.Content(body, &result); err != nil {
		return nil, err
	}
	if result.Unsynced == nil {
		result.Unsynced = []model.JotformAgent{}
	}
	if result.Synced == nil {
		result.Synced = []model.JotformAgent{}
	}
	return &result, nil
}

// SyncJotform registers Jotform agents with the backend and merges them into
// the flat list.
func (s *AgentStore) SyncJotform(ctx context.Context, agents []model.JotformAgent) error {
	payload := model.SyncAgentsRequest{Agents: make([]model.Agent, 0, len(agents))}
	for _, a := range agents {
		renderURL := JotformRenderURL(a.ID)
		if a.JotformRenderURL != nil && *a.JotformRenderURL != "" {
			renderURL = *a.JotformRenderURL
		}
		payload.Agents = append(payload.Agents, model.Agent{
			ID:               a.ID,
			Name:             a.Name,
			AvatarURL:        a.AvatarURL,
			JotformRenderURL: &renderURL,
			ConnectionType:   model.ConnectionJotform,
		})
	}

	if _, err := s.client.Do(ctx, "/api/agent/", transport.Options{Method: http.MethodPost, Body: payload}); err != nil {
		s.logger.Warn("Failed to sync Jotform agents", zap.Error(err))
		return err
	}
	s.AddAgents(ctx, payload.Agents)
	return nil
}

// CreateFromFile uploads an exported conversation file as a new agent and
// returns the created agent id.
func (s *AgentStore) CreateFromFile(ctx context.Context, upload Upload) (model.ID, error) {
	if err := ValidateUploadName(upload.FileName); err != nil {
		return "", err
	}
	form := &transport.Form{
		Fields: []transport.Field{
			{Name: "agent_name", Value: upload.AgentName},
			{Name: "agent_avatar_url", Value: upload.AvatarURL},
		},
		FileField: "file",
		FileName:  upload.FileName,
		File:      upload.File,
	}
	body, err := s.client.Do(ctx, "/api/file/connection/", transport.Options{Method: http.MethodPost, Form: form})
	if err != nil {
		s.logger.Warn("Upload failed", zap.String("file", upload.FileName), zap.Error(err))
		return "", err
	}

	id := createdAgentID(body)
	if id == "" {
		return "", ErrMissingAgentID
	}
	s.emit(ctx, model.ActionCreated, id.String(), 1)
	return id, nil
}

// createdAgentID reads content.id, falling back to a top-level id.
func createdAgentID(body *transport.Body) model.ID {
	var resp struct {
		Content json.RawMessage `json:"content"`
		ID      model.ID        `json:"id"`
	}
	if err := body.Decode(&resp); err != nil {
		return ""
	}
	var inner struct {
		ID model.ID `json:"id"`
	}
	if len(resp.Content) > 0 && json.Unmarshal(resp.Content, &inner) == nil && inner.ID != "" {
		return inner.ID
	}
	return resp.ID
}

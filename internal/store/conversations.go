package store

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/transport"
	"github.com/chat-analyzer/gateway/pkg/metrics"
)

// ConversationStore caches conversations keyed by the agent id used to fetch
// them.
type ConversationStore struct {
	base

	mu      sync.RWMutex
	byAgent map[model.ID][]model.Conversation
}

// NewConversationStore creates an empty conversation store.
func NewConversationStore(deps Deps) *ConversationStore {
	s := &ConversationStore{byAgent: make(map[model.ID][]model.Conversation)}
	s.init(ConversationsStore, deps)
	return s
}

// ForAgent returns the cached conversations of an agent.
func (s *ConversationStore) ForAgent(agentID model.ID) []model.Conversation {
	if agentID == "" {
		return []model.Conversation{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Conversation{}, s.byAgent[agentID]...)
}

// Find looks up one cached conversation of an agent.
func (s *ConversationStore) Find(agentID, conversationID model.ID) (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byAgent[agentID] {
		if c.ID == conversationID {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// SetForAgent replaces an agent's conversation list.
func (s *ConversationStore) SetForAgent(ctx context.Context, agentID model.ID, conversations []model.Conversation) {
	if agentID == "" {
		return
	}
	s.mu.Lock()
	s.byAgent[agentID] = append([]model.Conversation{}, conversations...)
	total := s.countLocked()
	s.mu.Unlock()
	metrics.SetEntries(ConversationsStore, total)
	s.emit(ctx, model.ActionReplaced, agentID.String(), len(conversations))
}

// AddForAgent merges conversations into an agent's list.
func (s *ConversationStore) AddForAgent(ctx context.Context, agentID model.ID, conversations []model.Conversation) {
	if agentID == "" {
		return
	}
	s.mu.Lock()
	s.byAgent[agentID] = MergeByID(s.byAgent[agentID], conversations)
	n := len(s.byAgent[agentID])
	total := s.countLocked()
	s.mu.Unlock()
	metrics.SetEntries(ConversationsStore, total)
	s.emit(ctx, model.ActionMerged, agentID.String(), n)
}

// ClearAgent drops the cached conversations of one agent.
func (s *ConversationStore) ClearAgent(ctx context.Context, agentID model.ID) {
	if agentID == "" {
		return
	}
	s.mu.Lock()
	delete(s.byAgent, agentID)
	total := s.countLocked()
	s.mu.Unlock()
	metrics.SetEntries(ConversationsStore, total)
	s.emit(ctx, model.ActionCleared, agentID.String(), 0)
}

// ClearAll drops every cached conversation.
func (s *ConversationStore) ClearAll(ctx context.Context) {
	s.mu.Lock()
	s.byAgent = make(map[model.ID][]model.Conversation)
	s.mu.Unlock()
	metrics.SetEntries(ConversationsStore, 0)
	s.emit(ctx, model.ActionCleared, "", 0)
}

func (s *ConversationStore) countLocked() int {
	n := 0
	for _, list := range s.byAgent {
		n += len(list)
	}
	return n
}

// Fetch replaces an agent's conversations from the backend. It is skipped
// while another fetch is in flight.
func (s *ConversationStore) Fetch(ctx context.Context, agentID model.ID) {
	if agentID == "" || !s.allowed() || !s.begin() {
		return
	}
	defer s.latch.Release()
	s.load(ctx, "fetch", agentID, "Failed to load conversations")
}

// Refresh is Fetch without the in-flight check.
func (s *ConversationStore) Refresh(ctx context.Context, agentID model.ID) {
	if agentID == "" || !s.allowed() {
		return
	}
	done := s.beginRefresh()
	defer done()
	s.load(ctx, "refresh", agentID, "Failed to refresh conversations")
}

func (s *ConversationStore) load(ctx context.Context, op string, agentID model.ID, fallback string) {
	body, err := s.client.Do(ctx, "/api/chat/conversations/"+agentID.String(), transport.Options{Method: http.MethodGet})
	if err != nil {
		s.fail(op, err, fallback)
		return
	}
	conversations := transport.ContentList[model.Conversation](body)
	for _, c := range conversations {
		if c.AgentID != "" && c.AgentID != agentID {
			s.logger.Warn("Conversation cached under a different agent",
				zap.String("conversation_id", c.ID.String()),
				zap.String("agent_id", c.AgentID.String()),
				zap.String("fetched_for", agentID.String()),
			)
		}
	}
	s.SetForAgent(ctx, agentID, conversations)
	s.succeeded()
}

// ContextChange returns the context-change analysis of a conversation, or nil
// on any failure.
func (s *ConversationStore) ContextChange(ctx context.Context, conversationID model.ID) *model.ContextChangeDetails {
	if conversationID == "" {
		return nil
	}
	body, err := s.client.Do(ctx, fmt.Sprintf("/api/analyze/context_change/%s/details/", conversationID), transport.Options{Method: http.MethodGet})
	if err != nil {
		s.logger.Debug("Context change unavailable", zap.String("conversation_id", conversationID.String()), zap.Error(err))
		return nil
	}
	env := body.Envelope()
	if len(env.Content) == 0 || string(env.Content) == "null" {
		return nil
	}
	var details model.ContextChangeDetails
	if err := transport.Content(body, &details); err != nil {
		return nil
	}
	return &details
}

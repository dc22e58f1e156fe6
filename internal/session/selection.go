package session

import (
	"sync"

	"github.com/chat-analyzer/gateway/internal/model"
)

// Cursor is the selected agent and conversation.
type Cursor struct {
	AgentID        model.ID `json:"selected_agent_id"`
	ConversationID model.ID `json:"selected_conversation_id"`
}

// Selection holds the cursor. Ids are not checked against the stores.
type Selection struct {
	mu     sync.RWMutex
	cursor Cursor
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{}
}

// Get returns the current cursor.
func (s *Selection) Get() Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// AgentID returns the selected agent id.
func (s *Selection) AgentID() model.ID {
	return s.Get().AgentID
}

// ConversationID returns the selected conversation id.
func (s *Selection) ConversationID() model.ID {
	return s.Get().ConversationID
}

// SetAgent selects an agent and resets the selected conversation.
func (s *Selection) SetAgent(id model.ID) {
	s.mu.Lock()
	s.cursor = Cursor{AgentID: id}
	s.mu.Unlock()
}

// SetConversation selects a conversation.
func (s *Selection) SetConversation(id model.ID) {
	s.mu.Lock()
	s.cursor.ConversationID = id
	s.mu.Unlock()
}

// Reset clears both ids.
func (s *Selection) Reset() {
	s.mu.Lock()
	s.cursor = Cursor{}
	s.mu.Unlock()
}

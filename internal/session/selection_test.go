package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chat-analyzer/gateway/internal/model"
)

func TestSelectAgentResetsConversation(t *testing.T) {
	s := NewSelection()

	s.SetAgent("a1")
	s.SetConversation("c1")
	assert.Equal(t, Cursor{AgentID: "a1", ConversationID: "c1"}, s.Get())

	s.SetAgent("a2")
	assert.Equal(t, Cursor{AgentID: "a2"}, s.Get())

	s.SetAgent("a2")
	assert.Empty(t, s.ConversationID())
}

func TestSetConversationKeepsAgent(t *testing.T) {
	s := NewSelection()
	s.SetAgent("a1")

	s.SetConversation("unknown")

	assert.Equal(t, model.ID("a1"), s.AgentID())
	assert.Equal(t, model.ID("unknown"), s.ConversationID())

	s.Reset()
	assert.Equal(t, Cursor{}, s.Get())
}

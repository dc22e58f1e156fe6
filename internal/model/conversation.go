package model

import "time"

// Conversation is a thread of messages owned by one agent.
type Conversation struct {
	ID                 ID        `json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	Source             string    `json:"source"`
	ChatType           string    `json:"chat_type"`
	Status             string    `json:"status"`
	AgentID            ID        `json:"agent_id"`
	LastMessage        *string   `json:"last_message"`
	AssistantAvatarURL *string   `json:"assistant_avatar_url,omitempty"`
	Label              *string   `json:"label,omitempty"`
	Title              *string   `json:"title,omitempty"`
}

// EntityID returns the cache key of the conversation.
func (c Conversation) EntityID() string { return string(c.ID) }

// Topic is one topic segment found by context-change analysis.
type Topic struct {
	Topic        string `json:"topic"`
	Details      string `json:"details"`
	StartMessage string `json:"start_message"`
	EndMessage   string `json:"end_message,omitempty"`
}

// ContextChange is a transition between two topics.
type ContextChange struct {
	FromTopic     string `json:"from_topic"`
	ToTopic       string `json:"to_topic"`
	ChangeMessage string `json:"change_message"`
	Details       string `json:"details,omitempty"`
}

// ContextChangeDetails is the context-change analysis of one conversation.
type ContextChangeDetails struct {
	ConversationID ID              `json:"conversation_id"`
	OverallContext string          `json:"overall_context,omitempty"`
	Topics         []Topic         `json:"topics"`
	ContextChanges []ContextChange `json:"context_changes,omitempty"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}

// Timestamp returns the creation time.
func (c Conversation) Timestamp() time.Time { return c.CreatedAt }

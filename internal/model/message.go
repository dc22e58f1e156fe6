package model

import "time"

// SenderType identifies who sent a message.
type SenderType string

const (
	SenderUser      SenderType = "user"
	SenderAssistant SenderType = "assistant"
)

// Message is one entry of a conversation transcript.
type Message struct {
	ID           ID         `json:"id"`
	Content      string     `json:"content"`
	CreatedAt    time.Time  `json:"created_at"`
	SenderType   SenderType `json:"sender_type"`
	Conversation ID         `json:"conversation"`
}

// EntityID returns the cache key of the message.
func (m Message) EntityID() string { return string(m.ID) }

// Timestamp returns the creation time.
func (m Message) Timestamp() time.Time { return m.CreatedAt }

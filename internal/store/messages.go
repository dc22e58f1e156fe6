package store

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/transport"
	"github.com/chat-analyzer/gateway/pkg/metrics"
)

// MessageStore caches messages keyed by conversation id.
type MessageStore struct {
	base

	mu             sync.RWMutex
	byConversation map[model.ID][]model.Message
}

// NewMessageStore creates an empty message store.
func NewMessageStore(deps Deps) *MessageStore {
	s := &MessageStore{byConversation: make(map[model.ID][]model.Message)}
	s.init(MessagesStore, deps)
	return s
}

// ForConversation returns the cached messages of a conversation.
func (s *MessageStore) ForConversation(conversationID model.ID) []model.Message {
	if conversationID == "" {
		return []model.Message{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Message{}, s.byConversation[conversationID]...)
}

// Has reports whether a thread is cached for conversationID, even if empty.
func (s *MessageStore) Has(conversationID model.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byConversation[conversationID]
	return ok
}

// ByConversation returns a snapshot of every cached thread.
func (s *MessageStore) ByConversation() map[model.ID][]model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.ID][]model.Message, len(s.byConversation))
	for id, list := range s.byConversation {
		out[id] = append([]model.Message{}, list...)
	}
	return out
}

// SetForConversation replaces a conversation's messages.
func (s *MessageStore) SetForConversation(ctx context.Context, conversationID model.ID, messages []model.Message) {
	if conversationID == "" {
		return
	}
	s.mu.Lock()
	s.byConversation[conversationID] = append([]model.Message{}, messages...)
	total := s.countLocked()
	s.mu.Unlock()
	metrics.SetEntries(MessagesStore, total)
	s.emit(ctx, model.ActionReplaced, conversationID.String(), len(messages))
}

// AddForConversation merges messages into a conversation.
func (s *MessageStore) AddForConversation(ctx context.Context, conversationID model.ID, messages []model.Message) {
	if conversationID == "" {
		return
	}
	s.mu.Lock()
	s.byConversation[conversationID] = MergeByID(s.byConversation[conversationID], messages)
	n := len(s.byConversation[conversationID])
	total := s.countLocked()
	s.mu.Unlock()
	metrics.SetEntries(MessagesStore, total)
	s.emit(ctx, model.ActionMerged, conversationID.String(), n)
}

// Append adds a single message to the end of a conversation without merging.
func (s *MessageStore) Append(ctx context.Context, conversationID model.ID, message model.Message) {
	if conversationID == "" || message.ID == "" {
		return
	}
	s.mu.Lock()
	s.byConversation[conversationID] = append(s.byConversation[conversationID], message)
	n := len(s.byConversation[conversationID])
	total := s.countLocked()
	s.mu.Unlock()
	metrics.SetEntries(MessagesStore, total)
	s.emit(ctx, model.ActionAppended, conversationID.String(), n)
}

// ClearConversation drops the cached messages of one conversation.
func (s *MessageStore) ClearConversation(ctx context.Context, conversationID model.ID) {
	if conversationID == "" {
		return
	}
	s.mu.Lock()
	delete(s.byConversation, conversationID)
	total := s.countLocked()
	s.mu.Unlock()
	metrics.SetEntries(MessagesStore, total)
	s.emit(ctx, model.ActionCleared, conversationID.String(), 0)
}

// ClearAll drops every cached message.
func (s *MessageStore) ClearAll(ctx context.Context) {
	s.mu.Lock()
	s.byConversation = make(map[model.ID][]model.Message)
	s.mu.Unlock()
	metrics.SetEntries(MessagesStore, 0)
	s.emit(ctx, model.ActionCleared, "", 0)
}

func (s *MessageStore) countLocked() int {
	n := 0
	for _, list := range s.byConversation {
		n += len(list)
	}
	return n
}

// Fetch replaces a conversation's messages from the backend. It is skipped
// while another fetch is in flight.
func (s *MessageStore) Fetch(ctx context.Context, conversationID model.ID) {
	if conversationID == "" || !s.allowed() || !s.begin() {
		return
	}
	defer s.latch.Release()
	s.load(ctx, "fetch", conversationID, "Failed to load messages")
}

// Refresh is Fetch without the in-flight check.
func (s *MessageStore) Refresh(ctx context.Context, conversationID model.ID) {
	if conversationID == "" || !s.allowed() {
		return
	}
	done := s.beginRefresh()
	defer done()
	s.load(ctx, "refresh", conversationID, "Failed to refresh messages")
}

func (s *MessageStore) load(ctx context.Context, op string, conversationID model.ID, fallback string) {
	body, err := s.client.Do(ctx, fmt.Sprintf("/api/chat/conversation/%s/messages/", conversationID), transport.Options{Method: http.MethodGet})
	if err != nil {
		s.fail(op, err, fallback)
		return
	}
	s.SetForConversation(ctx, conversationID, transport.ContentList[model.Message](body))
	s.succeeded()
}

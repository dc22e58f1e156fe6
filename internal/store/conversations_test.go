package store

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chat-analyzer/gateway/internal/model"
)

func TestConversationFetchKeysByAgent(t *testing.T) {
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"content":[{"id":"c1","agent_id":"other","source":"web"},{"id":"c2","agent_id":"a1"}]}`)
	})
	s := NewConversationStore(deps)

	s.Fetch(context.Background(), "a1")

	assert.Equal(t, []string{"GET /api/chat/conversations/a1"}, b.Calls())
	assert.Len(t, s.ForAgent("a1"), 2)
	assert.Empty(t, s.ForAgent("other"))

	c, ok := s.Find("a1", "c1")
	require.True(t, ok)
	assert.Equal(t, "web", c.Source)
}

func TestConversationFetchEmptyAgentIsNoop(t *testing.T) {
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	s := NewConversationStore(deps)

	s.Fetch(context.Background(), "")
	s.Refresh(context.Background(), "")

	assert.Zero(t, b.hits.Load())
	assert.Empty(t, s.ForAgent(""))
}

func TestConversationRefreshIgnoresLatch(t *testing.T) {
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"content":[{"id":"c1"}]}`)
	})
	s := NewConversationStore(deps)
	require.True(t, s.latch.TryAcquire())

	s.Fetch(context.Background(), "a1")
	assert.Zero(t, b.hits.Load())

	s.Refresh(context.Background(), "a1")
	assert.Equal(t, int32(1), b.hits.Load())
	assert.Len(t, s.ForAgent("a1"), 1)
	s.latch.Release()
}

func TestConversationFetchSkippedDuringRefresh(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		writeJSON(w, `{"content":[{"id":"c1"}]}`)
	})
	s := NewConversationStore(deps)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Refresh(ctx, "a1")
	}()
	<-entered
	require.True(t, s.Loading())

	s.Fetch(ctx, "a1")
	close(release)
	<-done

	assert.Equal(t, int32(1), b.hits.Load())
	assert.Len(t, s.ForAgent("a1"), 1)
	assert.False(t, s.Loading())
}

func TestConversationFailureRecordsMessage(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	})
	s := NewConversationStore(deps)
	s.SetForAgent(context.Background(), "a1", []model.Conversation{{ID: "keep"}})

	s.Fetch(context.Background(), "a1")

	assert.Equal(t, "not found", s.Err())
	assert.Equal(t, []model.Conversation{{ID: "keep"}}, s.ForAgent("a1"))
	assert.False(t, s.Loading())
}

func TestConversationMergeAndClear(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	s := NewConversationStore(deps)
	ctx := context.Background()

	s.AddForAgent(ctx, "a1", []model.Conversation{{ID: "c1"}, {ID: "c2"}})
	s.AddForAgent(ctx, "a1", []model.Conversation{{ID: "c2", Source: "new"}})
	s.AddForAgent(ctx, "a2", []model.Conversation{{ID: "c9"}})

	list := s.ForAgent("a1")
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[1].Source)

	s.ClearAgent(ctx, "a1")
	assert.Empty(t, s.ForAgent("a1"))
	assert.Len(t, s.ForAgent("a2"), 1)

	s.ClearAll(ctx)
	assert.Empty(t, s.ForAgent("a2"))
}

func TestContextChange(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/analyze/context_change/c1/details/" {
			writeJSON(w, `{"status":"SUCCESS","content":{"conversation_id":"c1","topics":[{"topic":"billing"}]}}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	s := NewConversationStore(deps)

	details := s.ContextChange(context.Background(), "c1")
	require.NotNil(t, details)
	assert.Equal(t, "billing", details.Topics[0].Topic)

	assert.Nil(t, s.ContextChange(context.Background(), "c2"))
	assert.Nil(t, s.ContextChange(context.Background(), ""))
}

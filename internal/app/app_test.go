package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chat-analyzer/gateway/internal/llm"
	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/session"
	"github.com/chat-analyzer/gateway/internal/stats"
	"github.com/chat-analyzer/gateway/internal/store"
	"github.com/chat-analyzer/gateway/internal/transport"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

type fakeBackend struct {
	mu     sync.Mutex
	calls  []string
	search model.SearchRequest
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/auth/user/":
		_, _ = w.Write([]byte(`{"content":{"content":{"username":"ada","email":"ada@example.com","pk":1}}}`))
	case r.URL.Path == "/api/auth/logout/":
		_, _ = w.Write([]byte(`{}`))
	case r.URL.Path == "/api/agent/" && r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`{"content":[{"id":"a1","name":"Support","connection_type":"file"}]}`))
	case r.URL.Path == "/api/agent/a1/" && r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/api/agent/a1/details":
		_, _ = w.Write([]byte(`{"status":"SUCCESS","content":{"id":"a1","name":"Support","total_messages":4,"total_sentiment_count":4,"positive_count":2,"negative_count":1,"neutral_count":1}}`))
	case r.URL.Path == "/api/chat/conversations/a1":
		_, _ = w.Write([]byte(`{"content":[{"id":"c1","agent_id":"a1","created_at":"2024-01-01T10:00:00Z"},{"id":"c2","agent_id":"a1","created_at":"2024-01-02T10:00:00Z"}]}`))
	case strings.HasPrefix(r.URL.Path, "/api/chat/conversation/broken/"):
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("thread unavailable"))
	case strings.HasPrefix(r.URL.Path, "/api/chat/conversation/"):
		id := strings.Split(r.URL.Path, "/")[4]
		_, _ = w.Write([]byte(`{"content":[` +
			`{"id":"` + id + `-1","conversation":"` + id + `","sender_type":"user","content":"hi","created_at":"2024-01-01T10:00:00Z"},` +
			`{"id":"` + id + `-2","conversation":"` + id + `","sender_type":"assistant","content":"hello there","created_at":"2024-01-01T10:00:04Z"}]}`))
	case r.URL.Path == "/api/file/connection/":
		_, _ = w.Write([]byte(`{"status":"CREATED","content":{"id":"a9"}}`))
	case strings.HasPrefix(r.URL.Path, "/api/connection/file/agent/"):
		_, _ = w.Write([]byte(`{"content":[{"id":"a9","connection_type":"file"}]}`))
	case r.URL.Path == "/api/analyze/qdrant_search/":
		_ = json.NewDecoder(r.Body).Decode(&f.search)
		_, _ = w.Write([]byte(`{"status":"SUCCESS","content":[{"id":"m1","score":0.9,"payload":{"content":"refund please"}}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}
}

type fakeLLM struct {
	req *llm.CompletionRequest
	err error
}

func (f *fakeLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: "  Two conversations, mostly positive.  ", Model: "fake-1"}, nil
}

func (f *fakeLLM) Name() string { return "fake" }

func newApp(t *testing.T, client llm.Client) (*App, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	a := New(Options{
		Client:   transport.New(srv.URL, transport.WithLogger(logger.Nop())),
		Logger:   logger.Nop(),
		LLM:      client,
		Location: time.UTC,
	})
	a.Session.Bootstrap(context.Background())
	require.True(t, a.Session.Authenticated())
	return a, backend
}

func TestLogoutClearsEveryStore(t *testing.T) {
	a, _ := newApp(t, nil)
	ctx := context.Background()

	a.Agents.Fetch(ctx, "")
	a.Conversations.Fetch(ctx, "a1")
	a.Messages.Fetch(ctx, "c1")
	a.Details.Fetch(ctx, "a1")
	a.Connections.Fetch(ctx)
	a.Selection.SetAgent("a1")
	require.NotEmpty(t, a.Agents.Agents())

	a.Session.Logout(ctx)

	assert.Equal(t, session.StatusUnauthenticated, a.Session.Status())
	assert.Empty(t, a.Agents.Agents())
	assert.Empty(t, a.Conversations.ForAgent("a1"))
	assert.Empty(t, a.Messages.ByConversation())
	assert.Empty(t, a.Connections.Connections())
	_, ok := a.Details.Get("a1")
	assert.False(t, ok)
	assert.Empty(t, a.Selection.AgentID())
}

func TestFetchAfterLogoutIssuesNoRequest(t *testing.T) {
	a, backend := newApp(t, nil)
	a.Session.Logout(context.Background())
	before := len(backend.Calls())

	a.Agents.Fetch(context.Background(), "")
	a.Conversations.Fetch(context.Background(), "a1")

	assert.Len(t, backend.Calls(), before)
}

func TestDeleteAgentCascades(t *testing.T) {
	a, _ := newApp(t, nil)
	ctx := context.Background()
	a.Agents.Fetch(ctx, "")
	a.Conversations.Fetch(ctx, "a1")
	require.NoError(t, a.LoadAgentMessages(ctx, "a1"))
	a.Details.Fetch(ctx, "a1")
	a.Selection.SetAgent("a1")
	a.Messages.SetForConversation(ctx, "other", []model.Message{{ID: "x"}})

	require.NoError(t, a.DeleteAgent(ctx, "a1"))

	assert.Empty(t, a.Agents.Agents())
	assert.Empty(t, a.Conversations.ForAgent("a1"))
	assert.Empty(t, a.Messages.ForConversation("c1"))
	assert.Len(t, a.Messages.ForConversation("other"), 1)
	_, ok := a.Details.Get("a1")
	assert.False(t, ok)
	assert.Empty(t, a.Selection.AgentID())
}

func TestDeleteAgentFailureKeepsCaches(t *testing.T) {
	a, _ := newApp(t, nil)
	ctx := context.Background()
	a.Agents.SetAgents(ctx, []model.Agent{{ID: "zz"}})
	a.Conversations.SetForAgent(ctx, "zz", []model.Conversation{{ID: "c"}})

	err := a.DeleteAgent(ctx, "zz")

	require.Error(t, err)
	assert.Equal(t, "not found", err.Error())
	assert.Len(t, a.Conversations.ForAgent("zz"), 1)
}

func TestLoadAgentMessagesSequential(t *testing.T) {
	a, backend := newApp(t, nil)
	ctx := context.Background()
	a.Conversations.Fetch(ctx, "a1")

	require.NoError(t, a.LoadAgentMessages(ctx, "a1"))

	assert.Len(t, a.Messages.ForConversation("c1"), 2)
	assert.Len(t, a.Messages.ForConversation("c2"), 2)
	calls := backend.Calls()
	assert.Equal(t, "GET /api/chat/conversation/c1/messages/", calls[len(calls)-2])
	assert.Equal(t, "GET /api/chat/conversation/c2/messages/", calls[len(calls)-1])
}

func TestLoadAgentMessagesSkipsCachedThreads(t *testing.T) {
	a, backend := newApp(t, nil)
	ctx := context.Background()
	a.Conversations.Fetch(ctx, "a1")
	require.NoError(t, a.LoadAgentMessages(ctx, "a1"))
	before := len(backend.Calls())

	require.NoError(t, a.LoadAgentMessages(ctx, "a1"))
	assert.Len(t, backend.Calls(), before)

	require.NoError(t, a.ReloadAgentMessages(ctx, "a1"))
	assert.Len(t, backend.Calls(), before+2)
}

func TestLoadAgentMessagesKeepsFirstFailure(t *testing.T) {
	a, backend := newApp(t, nil)
	ctx := context.Background()
	a.Conversations.SetForAgent(ctx, "a1", []model.Conversation{{ID: "broken"}, {ID: "c2"}})

	require.NoError(t, a.LoadAgentMessages(ctx, "a1"))

	assert.Equal(t, "thread unavailable", a.Messages.Err())
	assert.NotContains(t, backend.Calls(), "GET /api/chat/conversation/c2/messages/")
	assert.False(t, a.Messages.Has("broken"))
}

func TestLoadAgentMessagesStopsOnCancel(t *testing.T) {
	a, backend := newApp(t, nil)
	a.Conversations.Fetch(context.Background(), "a1")
	before := len(backend.Calls())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.LoadAgentMessages(ctx, "a1")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, backend.Calls(), before)
}

func TestCreateAgentFromFileRefreshes(t *testing.T) {
	a, backend := newApp(t, nil)

	id, err := a.CreateAgentFromFile(context.Background(), store.Upload{
		AgentName: "Export",
		FileName:  "chats.csv",
		File:      strings.NewReader("a,b"),
	})

	require.NoError(t, err)
	assert.Equal(t, model.ID("a9"), id)
	assert.Contains(t, backend.Calls(), "GET /api/agent/")
	assert.Contains(t, backend.Calls(), "GET /api/connection/file/agent/")
	assert.Len(t, a.Agents.AgentsForConnection(model.ConnectionFile), 1)
}

func TestSemanticSearch(t *testing.T) {
	a, backend := newApp(t, nil)
	ctx := context.Background()

	_, err := a.SemanticSearch(ctx, "", "refund")
	assert.ErrorIs(t, err, ErrNoAgentSelected)

	before := len(backend.Calls())
	results, err := a.SemanticSearch(ctx, "a1", "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Len(t, backend.Calls(), before)

	a.Selection.SetAgent("a1")
	results, err = a.SemanticSearch(ctx, "", " refund ")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "refund please", results[0].Text())
	assert.Equal(t, model.SearchRequest{AgentID: "a1", Query: "refund"}, backend.search)
}

func TestDashboard(t *testing.T) {
	a, _ := newApp(t, nil)
	ctx := context.Background()
	a.Agents.Fetch(ctx, "")

	view, err := a.Dashboard(ctx, "a1")

	require.NoError(t, err)
	require.NotNil(t, view.Agent)
	assert.Equal(t, "Support", view.Agent.Name)
	require.NotNil(t, view.Details)
	assert.Equal(t, 2, view.TotalConversations)
	assert.Equal(t, 4, view.TotalMessages)
	assert.Equal(t, 50, view.Sentiment.PositivePct)
	assert.Equal(t, []stats.Count{{Label: "2024-01-01", Count: 1}, {Label: "2024-01-02", Count: 1}}, view.Trend)
	assert.Equal(t, 1, view.Weekday[0].Count)
	assert.False(t, view.Loading)
}

func TestStatisticsAndTranscript(t *testing.T) {
	a, _ := newApp(t, nil)
	ctx := context.Background()
	a.Conversations.Fetch(ctx, "a1")
	require.NoError(t, a.LoadAgentMessages(ctx, "a1"))

	view, err := a.Statistics("a1")
	require.NoError(t, err)
	assert.Equal(t, 2, view.Conversations)
	assert.Equal(t, 4, view.Messages.TotalMessages)
	assert.Equal(t, 2, view.ResponseTimes.Count)
	assert.Equal(t, 4000.0, view.ResponseTimes.Avg)
	assert.Equal(t, "4s", view.Durations.AvgResponse)

	tr, err := a.Transcript("a1", "c2")
	require.NoError(t, err)
	assert.Equal(t, model.ID("c2"), tr.Conversation.ID)
	require.Len(t, tr.Messages, 2)
	assert.Equal(t, model.SenderUser, tr.Messages[0].SenderType)
	assert.Equal(t, 1, tr.ResponseTimes.Count)

	_, err = a.Statistics("")
	assert.ErrorIs(t, err, ErrNoAgentSelected)
}

func TestSentimentView(t *testing.T) {
	a, _ := newApp(t, nil)

	view, err := a.SentimentView(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 25, view.Totals.NegativePct)
	assert.Equal(t, 2, view.Totals.PositiveCombined)

	missing, err := a.SentimentView(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, "not found", missing.Error)
}

func TestDigestDisabled(t *testing.T) {
	a, _ := newApp(t, nil)

	_, err := a.Digest(context.Background(), "a1")
	assert.ErrorIs(t, err, ErrDigestDisabled)
	assert.False(t, a.DigestEnabled())
}

func TestDigest(t *testing.T) {
	fake := &fakeLLM{}
	a, _ := newApp(t, fake)

	d, err := a.Digest(context.Background(), "a1")

	require.NoError(t, err)
	assert.Equal(t, "Two conversations, mostly positive.", d.Summary)
	assert.Equal(t, "fake", d.Provider)
	require.Len(t, fake.req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, fake.req.Messages[0].Role)
	assert.Contains(t, fake.req.Messages[1].Content, "Conversations: 2")
	assert.Contains(t, fake.req.Messages[1].Content, "positive 50%")
}

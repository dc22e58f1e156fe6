package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chat-analyzer/gateway/internal/app"
	"github.com/chat-analyzer/gateway/internal/model"
)

func newBackend(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/login/":
			var creds model.Credentials
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds.Password != "pw" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte("invalid credentials"))
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "s1", Path: "/"})
			_, _ = w.Write([]byte(`{}`))
		case "/api/auth/user/":
			if _, err := r.Cookie("sessionid"); err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"content":{"content":{"username":"ada","email":"ada@example.com","pk":1}}}`))
		case "/api/agent/":
			_, _ = w.Write([]byte(`{"content":[{"id":"a1","name":"Support","connection_type":"file"}]}`))
		case "/api/chat/conversations/a1":
			_, _ = w.Write([]byte(`{"content":[{"id":"c1","agent_id":"a1","created_at":"2024-01-01T10:00:00Z"}]}`))
		case "/api/chat/conversation/c1/messages/":
			_, _ = w.Write([]byte(`{"content":[` +
				`{"id":"m1","conversation":"c1","sender_type":"user","content":"hi","created_at":"2024-01-01T10:00:00Z"},` +
				`{"id":"m2","conversation":"c1","sender_type":"assistant","content":"hello","created_at":"2024-01-01T10:00:03Z"}]}`))
		case "/api/chat/conversations/a2":
			_, _ = w.Write([]byte(`{"content":[{"id":"c9","agent_id":"a2"}]}`))
		case "/api/chat/conversation/c9/messages/":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("thread unavailable"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAgentsCmd(t *testing.T) {
	url := newBackend(t)

	out, err := run(t, "agents", "--api-base-url", url, "-u", "ada", "-p", "pw")
	require.NoError(t, err)

	var agents []model.Agent
	require.NoError(t, json.Unmarshal([]byte(out), &agents))
	require.Len(t, agents, 1)
	assert.Equal(t, "Support", agents[0].Name)
}

func TestLoginFailureIsReported(t *testing.T) {
	url := newBackend(t)

	_, err := run(t, "agents", "--api-base-url", url, "-u", "ada", "-p", "nope")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())
}

func TestWithoutCredentials(t *testing.T) {
	url := newBackend(t)
	t.Setenv("ANALYZER_USERNAME", "")

	_, err := run(t, "agents", "--api-base-url", url)
	assert.ErrorIs(t, err, errNotAuthenticated)
}

func TestStatsCmd(t *testing.T) {
	url := newBackend(t)

	out, err := run(t, "stats", "a1", "--api-base-url", url, "-u", "ada", "-p", "pw")
	require.NoError(t, err)

	var view app.StatisticsView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 1, view.Conversations)
	assert.Equal(t, 2, view.Messages.TotalMessages)
	assert.Equal(t, 1, view.ResponseTimes.Count)
}

func TestStatsCmdReportsMessageError(t *testing.T) {
	url := newBackend(t)

	out, err := run(t, "stats", "a2", "--api-base-url", url, "-u", "ada", "-p", "pw")
	require.Error(t, err)
	assert.Equal(t, "thread unavailable", err.Error())
	assert.Empty(t, out)
}

func TestConversationsCmdRequiresAgent(t *testing.T) {
	_, err := run(t, "conversations")
	assert.Error(t, err)
}

package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chat-analyzer/gateway/internal/model"
)

func TestAgentFetchReplacesList(t *testing.T) {
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"SUCCESS","content":[{"id":"a1","name":"One","connection_type":"file"}]}`)
	})
	s := NewAgentStore(deps)
	s.SetAgents(context.Background(), []model.Agent{{ID: "old", Name: "Old"}})

	agents := s.Fetch(context.Background(), "")

	require.Len(t, agents, 1)
	assert.Equal(t, []string{"GET /api/agent/"}, b.Calls())
	assert.Equal(t, agents, s.Agents())
	assert.False(t, s.Loading())
	assert.Empty(t, s.Err())
}

func TestAgentFetchWithConnectionTypeSetsSublist(t *testing.T) {
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"content":[{"id":"j1","name":"J","connection_type":"jotform"}]}`)
	})
	s := NewAgentStore(deps)

	s.Fetch(context.Background(), model.ConnectionJotform)

	assert.Equal(t, []string{"GET /api/connection/jotform/agent/"}, b.Calls())
	assert.Len(t, s.AgentsForConnection(model.ConnectionJotform), 1)
	assert.Len(t, s.Agents(), 1)
}

func TestAgentFetchFailureKeepsCache(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	})
	s := NewAgentStore(deps)
	s.SetAgents(context.Background(), []model.Agent{{ID: "a1"}})

	agents := s.Fetch(context.Background(), "")

	assert.Empty(t, agents)
	assert.Equal(t, "not found", s.Err())
	assert.Len(t, s.Agents(), 1)
	assert.False(t, s.Loading())
}

func TestAgentFetchLatchSkipsSecondCall(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		writeJSON(w, `{"content":[{"id":"a1"}]}`)
	})
	s := NewAgentStore(deps)

	done := make(chan []model.Agent)
	go func() { done <- s.Fetch(context.Background(), "") }()
	<-started

	assert.True(t, s.Loading())
	second := s.Fetch(context.Background(), "")
	assert.Empty(t, second)

	close(release)
	first := <-done
	assert.Len(t, first, 1)
	assert.Equal(t, int32(1), b.hits.Load())
}

func TestAgentFetchUnauthenticatedIssuesNoRequest(t *testing.T) {
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"content":[]}`)
	})
	deps.Gate = GateFunc(func() bool { return false })
	s := NewAgentStore(deps)

	s.Fetch(context.Background(), "")
	s.FetchForConnection(context.Background(), model.ConnectionFile)

	assert.Zero(t, b.hits.Load())
}

func TestFetchForConnectionCached(t *testing.T) {
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"content":[{"id":"f2"}]}`)
	})
	s := NewAgentStore(deps)
	s.SetAgentsForConnection(context.Background(), model.ConnectionFile, []model.Agent{{ID: "f1"}})

	s.FetchForConnection(context.Background(), model.ConnectionFile)
	assert.Zero(t, b.hits.Load())

	s.FetchForConnection(context.Background(), model.ConnectionChatGPT)
	assert.Equal(t, []string{"GET /api/connection/chatgpt/agent/"}, b.Calls())
	assert.Len(t, s.Agents(), 2)
}

func TestSetAgentsForConnectionMergesFlatList(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	s := NewAgentStore(deps)
	ctx := context.Background()

	s.SetAgents(ctx, []model.Agent{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}})
	s.SetAgentsForConnection(ctx, model.ConnectionFile, []model.Agent{{ID: "b", Name: "B2"}, {ID: "c"}})

	agents := s.Agents()
	require.Len(t, agents, 3)
	assert.Equal(t, "B2", agents[1].Name)
	assert.Equal(t, model.ConnectionJotform, s.SelectedConnectionType())
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s := NewAgentStore(deps)
	ctx := context.Background()
	s.SetAgentsForConnection(ctx, model.ConnectionFile, []model.Agent{{ID: "a1"}, {ID: "a2"}})
	s.SetAgentsForConnection(ctx, model.ConnectionJotform, []model.Agent{{ID: "a1"}})

	require.NoError(t, s.Delete(ctx, "a1"))

	assert.Equal(t, []string{"DELETE /api/agent/a1/"}, b.Calls())
	assert.Equal(t, []model.Agent{{ID: "a2"}}, s.Agents())
	assert.Empty(t, s.AgentsForConnection(model.ConnectionJotform))
	assert.Len(t, s.AgentsForConnection(model.ConnectionFile), 1)
}

func TestDeleteFailureRethrows(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("forbidden"))
	})
	s := NewAgentStore(deps)
	s.SetAgents(context.Background(), []model.Agent{{ID: "a1"}})

	err := s.Delete(context.Background(), "a1")

	require.Error(t, err)
	assert.Equal(t, "forbidden", err.Error())
	assert.Equal(t, "forbidden", s.Err())
	assert.Len(t, s.Agents(), 1)
}

func TestUpdateLabels(t *testing.T) {
	var got model.UpdateLabelsRequest
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, `{}`)
	})
	s := NewAgentStore(deps)
	ctx := context.Background()
	s.SetAgentsForConnection(ctx, model.ConnectionFile, []model.Agent{{ID: "a1", LabelChoices: []string{"bug"}}})

	require.NoError(t, s.AddLabel(ctx, "a1", "praise"))
	assert.Equal(t, []string{"bug", "praise"}, got.LabelChoices)

	require.NoError(t, s.RemoveLabel(ctx, "a1", "bug"))
	assert.Equal(t, []string{"praise"}, got.LabelChoices)

	agent, ok := s.Agent("a1")
	require.True(t, ok)
	assert.Equal(t, []string{"praise"}, agent.LabelChoices)
	assert.Equal(t, []string{"praise"}, s.AgentsForConnection(model.ConnectionFile)[0].LabelChoices)
	assert.Equal(t, []string{"PUT /api/agent/a1/", "PUT /api/agent/a1/"}, b.Calls())

	assert.ErrorIs(t, s.AddLabel(ctx, "missing", "x"), ErrUnknownAgent)
}

func TestFetchJotformRequiresSuccess(t *testing.T) {
	var status atomic.Value
	status.Store("SUCCESS")
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"`+status.Load().(string)+`","content":{"unsynced":[{"id":"1","name":"A"}],"synced":[]}}`)
	})
	s := NewAgentStore(deps)

	result, err := s.FetchJotform(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Unsynced, 1)
	assert.Empty(t, result.Synced)

	status.Store("FAIL")
	_, err = s.FetchJotform(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestSyncJotformDefaultsRenderURL(t *testing.T) {
	var got model.SyncAgentsRequest
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, `{}`)
	})
	s := NewAgentStore(deps)
	custom := "https://custom/x"

	err := s.SyncJotform(context.Background(), []model.JotformAgent{
		{ID: "11", Name: "A"},
		{ID: "22", Name: "B", JotformRenderURL: &custom},
	})
	require.NoError(t, err)

	require.Len(t, got.Agents, 2)
	assert.Equal(t, "https://agent.jotform.com/11", *got.Agents[0].JotformRenderURL)
	assert.Equal(t, custom, *got.Agents[1].JotformRenderURL)
	assert.Equal(t, model.ConnectionJotform, got.Agents[0].ConnectionType)
	assert.Len(t, s.Agents(), 2)
}

func TestCreateFromFile(t *testing.T) {
	var fields map[string]string
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fields = map[string]string{
			"agent_name":       r.FormValue("agent_name"),
			"agent_avatar_url": r.FormValue("agent_avatar_url"),
		}
		f, _, err := r.FormFile("file")
		if err == nil {
			data, _ := io.ReadAll(f)
			fields["file"] = string(data)
			f.Close()
		}
		writeJSON(w, `{"status":"CREATED","content":{"id":42}}`)
	})
	s := NewAgentStore(deps)

	id, err := s.CreateFromFile(context.Background(), Upload{
		AgentName: "Support",
		AvatarURL: "https://img/a.png",
		FileName:  "Export.JSON",
		File:      strings.NewReader(`[]`),
	})

	require.NoError(t, err)
	assert.Equal(t, model.ID("42"), id)
	assert.Equal(t, "Support", fields["agent_name"])
	assert.Equal(t, "https://img/a.png", fields["agent_avatar_url"])
	assert.Equal(t, "[]", fields["file"])
}

func TestCreateFromFileTopLevelID(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"id":"abc"}`)
	})
	s := NewAgentStore(deps)

	id, err := s.CreateFromFile(context.Background(), Upload{FileName: "a.csv", File: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, model.ID("abc"), id)
}

func TestCreateFromFileMissingID(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"CREATED","content":{}}`)
	})
	s := NewAgentStore(deps)

	_, err := s.CreateFromFile(context.Background(), Upload{FileName: "a.csv", File: strings.NewReader("x")})
	require.ErrorIs(t, err, ErrMissingAgentID)
	assert.Equal(t, "Agent ID missing in response", err.Error())
}

func TestCreateFromFileRejectsText(t *testing.T) {
	b, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"id":"x"}`)
	})
	s := NewAgentStore(deps)

	_, err := s.CreateFromFile(context.Background(), Upload{FileName: "notes.txt", File: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrInvalidFileType)
	assert.Zero(t, b.hits.Load())
}

func TestAgentEventsEmitted(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	n := &recordingNotifier{}
	deps.Notifier = n
	s := NewAgentStore(deps)

	s.AddAgents(context.Background(), []model.Agent{{ID: "a"}})
	s.Clear(context.Background())

	require.Len(t, n.events, 2)
	assert.Equal(t, AgentsStore, n.events[0].Store)
	assert.Equal(t, model.ActionMerged, n.events[0].Action)
	assert.Equal(t, 1, n.events[0].Count)
	assert.Equal(t, model.ActionCleared, n.events[1].Action)
	assert.NotEmpty(t, n.events[0].ID)
}

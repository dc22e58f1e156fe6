package store

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chat-analyzer/gateway/internal/model"
)

func TestConnectionCreateAppends(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"CREATED","content":{"content":{"id":5,"connection_type":"jotform","api_key":"k","sync_interval":60}}}`)
	})
	s := NewConnectionStore(deps)

	conn, err := s.Create(context.Background(), model.CreateConnectionRequest{ConnectionType: model.ConnectionJotform, APIKey: "k"})

	require.NoError(t, err)
	assert.Equal(t, model.ID("5"), conn.ID)
	assert.Equal(t, 60, conn.SyncInterval)
	assert.Len(t, s.Connections(), 1)
}

func TestConnectionCreateRequiresCreated(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"SUCCESS","content":{"content":{"id":5}}}`)
	})
	s := NewConnectionStore(deps)

	conn, err := s.Create(context.Background(), model.CreateConnectionRequest{})

	assert.Nil(t, conn)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.NotEmpty(t, s.Err())
	assert.Empty(t, s.Connections())
}

func TestConnectionFetchAndClear(t *testing.T) {
	_, deps := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"content":[{"id":1},{"id":2}]}`)
	})
	s := NewConnectionStore(deps)
	ctx := context.Background()

	s.Fetch(ctx)
	assert.Len(t, s.Connections(), 2)

	s.setErr("stale")
	s.Clear(ctx)
	assert.Empty(t, s.Connections())
	assert.Empty(t, s.Err())
}

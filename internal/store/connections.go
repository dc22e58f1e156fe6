package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/transport"
	"github.com/chat-analyzer/gateway/pkg/metrics"
)

// ConnectionStore caches the user's third-party connections.
type ConnectionStore struct {
	base

	mu          sync.RWMutex
	connections []model.Connection
}

// NewConnectionStore creates an empty connection store.
func NewConnectionStore(deps Deps) *ConnectionStore {
	s := &ConnectionStore{}
	s.init(ConnectionsStore, deps)
	return s
}

// Connections returns a copy of the cached connections.
func (s *ConnectionStore) Connections() []model.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Connection{}, s.connections...)
}

// Clear drops the cached connections and the recorded error.
func (s *ConnectionStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.connections = nil
	s.mu.Unlock()
	s.setErr("")
	metrics.SetEntries(ConnectionsStore, 0)
	s.emit(ctx, model.ActionCleared, "", 0)
}

// Fetch replaces the cached connections from the backend.
func (s *ConnectionStore) Fetch(ctx context.Context) {
	if !s.allowed() || !s.begin() {
		return
	}
	defer s.latch.Release()

	body, err := s.client.Do(ctx, "/api/connection/", transport.Options{Method: http.MethodGet})
	if err != nil {
		s.fail("fetch", err, "Failed to fetch connections")
		return
	}
	connections := transport.ContentList[model.Connection](body)

	s.mu.Lock()
	s.connections = connections
	s.mu.Unlock()

	metrics.SetEntries(ConnectionsStore, len(connections))
	s.emit(ctx, model.ActionReplaced, "", len(connections))
	s.succeeded()
}

// Create registers a new connection and appends it to the cache. It returns
// nil without error when another connection call is in flight.
func (s *ConnectionStore) Create(ctx context.Context, req model.CreateConnectionRequest) (*model.Connection, error) {
	if !s.begin() {
		return nil, nil
	}
	defer s.latch.Release()

	if req.Config == nil {
		req.Config = map[string]any{}
	}
	body, err := s.client.Do(ctx, "/api/connection/", transport.Options{Method: http.MethodPost, Body: req})
	if err != nil {
		s.fail("create", err, "Failed to create connection")
		return nil, err
	}

	if env := body.Envelope(); env.Status != model.StatusCreated {
		err := fmt.Errorf("Failed to create connection: %w", ErrUnexpectedStatus)
		s.fail("create", err, "Failed to create connection")
		return nil, err
	}

	var conn model.Connection
	raw := transport.NestedContent(body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &conn); err != nil {
			s.fail("create", err, "Failed to create connection")
			return nil, fmt.Errorf("failed to decode connection: %w", err)
		}
	}

	s.mu.Lock()
	s.connections = append(s.connections, conn)
	n := len(s.connections)
	s.mu.Unlock()

	metrics.SetEntries(ConnectionsStore, n)
	s.emit(ctx, model.ActionAppended, conn.ID.String(), n)
	s.succeeded()
	return &conn, nil
}

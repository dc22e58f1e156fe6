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

// DetailsStore caches one AgentDetails snapshot per agent. A snapshot is
// fetched once and not refreshed until cleared.
type DetailsStore struct {
	base

	mu      sync.RWMutex
	byAgent map[model.ID]model.AgentDetails
}

// NewDetailsStore creates an empty details store.
func NewDetailsStore(deps Deps) *DetailsStore {
	s := &DetailsStore{byAgent: make(map[model.ID]model.AgentDetails)}
	s.init(DetailsStoreName, deps)
	return s
}

// Get returns the cached details of an agent.
func (s *DetailsStore) Get(agentID model.ID) (model.AgentDetails, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byAgent[agentID]
	return d, ok
}

// Fetch loads an agent's details unless they are already cached.
func (s *DetailsStore) Fetch(ctx context.Context, agentID model.ID) (model.AgentDetails, bool) {
	if agentID == "" {
		return model.AgentDetails{}, false
	}
	if d, ok := s.Get(agentID); ok {
		metrics.RecordFetch(DetailsStoreName, metrics.OutcomeCached)
		return d, true
	}
	if !s.allowed() || !s.begin() {
		return model.AgentDetails{}, false
	}
	defer s.latch.Release()

	body, err := s.client.Do(ctx, fmt.Sprintf("/api/agent/%s/details", agentID), transport.Options{Method: http.MethodGet})
	if err != nil {
		s.fail("fetch", err, "Failed to load agent details")
		return model.AgentDetails{}, false
	}
	var details model.AgentDetails
	if err := transport.Content(body, &details); err != nil {
		s.fail("fetch", err, "Failed to load agent details")
		return model.AgentDetails{}, false
	}

	s.mu.Lock()
	s.byAgent[agentID] = details
	n := len(s.byAgent)
	s.mu.Unlock()

	metrics.SetEntries(DetailsStoreName, n)
	s.emit(ctx, model.ActionReplaced, agentID.String(), 1)
	s.succeeded()
	return details, true
}

// Remove drops the cached details of one agent.
func (s *DetailsStore) Remove(ctx context.Context, agentID model.ID) {
	s.mu.Lock()
	delete(s.byAgent, agentID)
	n := len(s.byAgent)
	s.mu.Unlock()
	metrics.SetEntries(DetailsStoreName, n)
	s.emit(ctx, model.ActionRemoved, agentID.String(), n)
}

// Clear drops every cached snapshot.
func (s *DetailsStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.byAgent = make(map[model.ID]model.AgentDetails)
	s.mu.Unlock()
	metrics.SetEntries(DetailsStoreName, 0)
	s.emit(ctx, model.ActionCleared, "", 0)
}

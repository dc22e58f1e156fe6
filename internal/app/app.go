// Package app wires the transport, session and stores into one application
// context and derives the view-models served by the gateway.
package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chat-analyzer/gateway/internal/llm"
	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/session"
	"github.com/chat-analyzer/gateway/internal/store"
	"github.com/chat-analyzer/gateway/internal/transport"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

var (
	ErrNoAgentSelected = errors.New("no agent selected")
	ErrDigestDisabled  = errors.New("digest is disabled: no LLM configured")
)

// Options configures an App.
type Options struct {
	Client   transport.Requester
	Notifier store.Notifier
	Logger   *logger.Logger

	// LLM is optional; without it Digest returns ErrDigestDisabled.
	LLM             llm.Client
	DigestModel     string
	DigestMaxTokens int

	// Location is used for weekday and hour bucketing. Defaults to time.Local.
	Location *time.Location
}

// App is the application context of one signed-in user.
type App struct {
	Session       *session.Session
	Selection     *session.Selection
	Agents        *store.AgentStore
	Conversations *store.ConversationStore
	Messages      *store.MessageStore
	Connections   *store.ConnectionStore
	Details       *store.DetailsStore

	client          transport.Requester
	llm             llm.Client
	digestModel     string
	digestMaxTokens int
	loc             *time.Location
	logger          *logger.Logger
}

// New builds the application context. Logging out clears every store and the
// selection.
func New(opts Options) *App {
	log := logger.OrGlobal(opts.Logger)
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	sess := session.New(opts.Client, log)
	deps := store.Deps{
		Client:   opts.Client,
		Gate:     sess,
		Notifier: opts.Notifier,
		Logger:   log,
	}

	a := &App{
		Session:         sess,
		Selection:       session.NewSelection(),
		Agents:          store.NewAgentStore(deps),
		Conversations:   store.NewConversationStore(deps),
		Messages:        store.NewMessageStore(deps),
		Connections:     store.NewConnectionStore(deps),
		Details:         store.NewDetailsStore(deps),
		client:          opts.Client,
		llm:             opts.LLM,
		digestModel:     opts.DigestModel,
		digestMaxTokens: opts.DigestMaxTokens,
		loc:             loc,
		logger:          log.Named("app"),
	}
	sess.OnLogout(a.clearAll)
	return a
}

func (a *App) clearAll(ctx context.Context) {
	a.Agents.Clear(ctx)
	a.Conversations.ClearAll(ctx)
	a.Messages.ClearAll(ctx)
	a.Connections.Clear(ctx)
	a.Details.Clear(ctx)
	a.Selection.Reset()
}

// Location returns the time zone used for local bucketing.
func (a *App) Location() *time.Location {
	return a.loc
}

// DigestEnabled reports whether an LLM is configured.
func (a *App) DigestEnabled() bool {
	return a.llm != nil
}

// resolveAgent falls back to the selected agent.
func (a *App) resolveAgent(agentID model.ID) (model.ID, error) {
	if agentID != "" {
		return agentID, nil
	}
	if id := a.Selection.AgentID(); id != "" {
		return id, nil
	}
	return "", ErrNoAgentSelected
}

// DeleteAgent deletes an agent and purges everything cached under it.
func (a *App) DeleteAgent(ctx context.Context, agentID model.ID) error {
	if err := a.Agents.Delete(ctx, agentID); err != nil {
		return err
	}

	for _, c := range a.Conversations.ForAgent(agentID) {
		a.Messages.ClearConversation(ctx, c.ID)
	}
	a.Conversations.ClearAgent(ctx, agentID)
	a.Details.Remove(ctx, agentID)

	if a.Selection.AgentID() == agentID {
		a.Selection.Reset()
	}
	a.logger.Info("Agent deleted", zap.String("agent_id", agentID.String()))
	return nil
}

// LoadAgentMessages fetches, one at a time, the messages of every cached
// conversation of an agent whose thread is not cached yet. It stops at the
// first failed fetch so the message store keeps that error, and stops issuing
// fetches once ctx is done.
func (a *App) LoadAgentMessages(ctx context.Context, agentID model.ID) error {
	return a.loadAgentMessages(ctx, agentID, false)
}

// ReloadAgentMessages is LoadAgentMessages that refreshes cached threads too.
func (a *App) ReloadAgentMessages(ctx context.Context, agentID model.ID) error {
	return a.loadAgentMessages(ctx, agentID, true)
}

func (a *App) loadAgentMessages(ctx context.Context, agentID model.ID, reload bool) error {
	for _, c := range a.Conversations.ForAgent(agentID) {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case reload:
			a.Messages.Refresh(ctx, c.ID)
		case a.Messages.Has(c.ID):
			continue
		default:
			a.Messages.Fetch(ctx, c.ID)
		}
		if msg := a.Messages.Err(); msg != "" {
			a.logger.Warn("Stopped loading agent messages",
				zap.String("agent_id", agentID.String()),
				zap.String("conversation_id", c.ID.String()),
				zap.String("error", msg),
			)
			return nil
		}
	}
	return nil
}

// CreateAgentFromFile uploads an export and refreshes the agent lists.
func (a *App) CreateAgentFromFile(ctx context.Context, upload store.Upload) (model.ID, error) {
	id, err := a.Agents.CreateFromFile(ctx, upload)
	if err != nil {
		return "", err
	}

	a.Agents.Fetch(ctx, "")
	a.Agents.FetchForConnection(ctx, model.ConnectionFile)
	if msg := a.Agents.Err(); msg != "" {
		a.logger.Warn("Failed to refresh agents after upload", zap.String("error", msg))
	}
	return id, nil
}

// SemanticSearch runs a vector search over an agent's messages. An empty
// query returns no results without a request.
func (a *App) SemanticSearch(ctx context.Context, agentID model.ID, query string) ([]model.SearchResult, error) {
	agentID, err := a.resolveAgent(agentID)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.SearchResult{}, nil
	}

	body, err := a.client.Do(ctx, "/api/analyze/qdrant_search/", transport.Options{
		Method: http.MethodPost,
		Body:   model.SearchRequest{AgentID: agentID, Query: query},
	})
	if err != nil {
		return nil, err
	}
	return transport.ContentList[model.SearchResult](body), nil
}

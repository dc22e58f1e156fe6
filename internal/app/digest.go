package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chat-analyzer/gateway/internal/llm"
	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/pkg/metrics"
)

const digestSystemPrompt = "You summarize customer conversation analytics for a support team. " +
	"Write at most five short sentences. Mention notable volume, response time and sentiment shifts. " +
	"Do not invent numbers that are not in the data."

// Digest is a short natural-language summary of an agent's dashboard.
type Digest struct {
	AgentID   model.ID  `json:"agent_id"`
	Summary   string    `json:"summary"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// Digest asks the configured LLM to summarize an agent's dashboard.
func (a *App) Digest(ctx context.Context, agentID model.ID) (*Digest, error) {
	if a.llm == nil {
		return nil, ErrDigestDisabled
	}
	view, err := a.Dashboard(ctx, agentID)
	if err != nil {
		return nil, err
	}
	agentID, _ = a.resolveAgent(agentID)

	start := time.Now()
	resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
		Model:       a.digestModel,
		MaxTokens:   a.digestMaxTokens,
		Temperature: 0.2,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: digestSystemPrompt},
			{Role: llm.RoleUser, Content: DigestPrompt(view)},
		},
	})
	if err != nil {
		metrics.RecordDigest(a.llm.Name(), "error", time.Since(start).Seconds())
		a.logger.Warn("Digest generation failed", zap.String("agent_id", agentID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to generate digest: %w", err)
	}
	metrics.RecordDigest(a.llm.Name(), "ok", time.Since(start).Seconds())

	return &Digest{
		AgentID:   agentID,
		Summary:   strings.TrimSpace(resp.Content),
		Provider:  a.llm.Name(),
		Model:     resp.Model,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DigestPrompt renders a dashboard as the plain-text data block sent to the
// LLM.
func DigestPrompt(view *DashboardView) string {
	var b strings.Builder
	name := "Unknown"
	if view.Agent != nil && view.Agent.Name != "" {
		name = view.Agent.Name
	}
	fmt.Fprintf(&b, "Agent: %s\n", name)
	fmt.Fprintf(&b, "Conversations: %d\n", view.TotalConversations)
	fmt.Fprintf(&b, "Messages: %d\n", view.TotalMessages)
	fmt.Fprintf(&b, "Replies measured: %d, average %s, p90 %.0fms\n",
		view.ResponseTimes.Count, view.AvgResponse, view.ResponseTimes.P90)

	if len(view.Trend) > 0 {
		b.WriteString("Conversations per day:")
		for _, d := range view.Trend {
			fmt.Fprintf(&b, " %s=%d", d.Label, d.Count)
		}
		b.WriteString("\n")
	}
	b.WriteString("Conversations per weekday:")
	for _, d := range view.Weekday {
		fmt.Fprintf(&b, " %s=%d", d.Label, d.Count)
	}
	b.WriteString("\n")

	s := view.Sentiment
	if s.Total > 0 {
		fmt.Fprintf(&b, "Sentiment of %d messages: super positive %d%%, positive %d%%, neutral %d%%, negative %d%%, super negative %d%%\n",
			s.Total, s.SuperPositivePct, s.PositivePct, s.NeutralPct, s.NegativePct, s.SuperNegativePct)
	} else {
		b.WriteString("Sentiment: not analyzed\n")
	}
	return b.String()
}

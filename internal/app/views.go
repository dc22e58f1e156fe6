package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/stats"
)

// StoreErrors are the last error messages recorded by the stores a view read.
type StoreErrors struct {
	Agents        string `json:"agents,omitempty"`
	Conversations string `json:"conversations,omitempty"`
	Messages      string `json:"messages,omitempty"`
	Details       string `json:"details,omitempty"`
}

// DashboardView is the agent overview.
type DashboardView struct {
	Agent              *model.Agent          `json:"agent"`
	Details            *model.AgentDetails   `json:"details"`
	TotalConversations int                   `json:"total_conversations"`
	TotalMessages      int                   `json:"total_messages"`
	Trend              []stats.Count         `json:"trend"`
	Weekday            []stats.Count         `json:"weekday"`
	ResponseTimes      stats.Summary         `json:"response_times"`
	AvgResponse        string                `json:"avg_response"`
	Sentiment          stats.SentimentTotals `json:"sentiment"`
	Loading            bool                  `json:"loading"`
	Errors             StoreErrors           `json:"errors"`
}

// StatisticsView is the full statistics page of an agent.
type StatisticsView struct {
	AgentID       model.ID             `json:"agent_id"`
	Conversations int                  `json:"conversations"`
	Messages      stats.MessageSummary `json:"messages"`
	Trend         []stats.Count        `json:"trend"`
	Activity      stats.Activity       `json:"activity"`
	ResponseTimes stats.Summary        `json:"response_times"`
	Aggregation   stats.Aggregation    `json:"aggregation"`
	Sources       stats.SourceCounts   `json:"sources"`
	Durations     DurationLabels       `json:"durations"`
}

// DurationLabels are preformatted durations for display.
type DurationLabels struct {
	AvgResponse     string `json:"avg_response"`
	P90Response     string `json:"p90_response"`
	AvgConversation string `json:"avg_conversation"`
	MaxConversation string `json:"max_conversation"`
}

// SentimentView is the sentiment breakdown of an agent.
type SentimentView struct {
	AgentID        model.ID              `json:"agent_id"`
	SentimentScore float64               `json:"sentiment_score"`
	Totals         stats.SentimentTotals `json:"totals"`
	Error          string                `json:"error,omitempty"`
}

// TranscriptView is one conversation with its ordered messages.
type TranscriptView struct {
	Conversation  *model.Conversation  `json:"conversation"`
	Messages      []model.Message      `json:"messages"`
	Summary       stats.MessageSummary `json:"summary"`
	ResponseTimes stats.Summary        `json:"response_times"`
}

// Dashboard loads an agent's details and conversations concurrently and
// derives the overview from the caches.
func (a *App) Dashboard(ctx context.Context, agentID model.ID) (*DashboardView, error) {
	agentID, err := a.resolveAgent(agentID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Details.Fetch(gctx, agentID)
		return nil
	})
	g.Go(func() error {
		a.Conversations.Fetch(gctx, agentID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	conversations := a.Conversations.ForAgent(agentID)
	messages := stats.Flatten(conversations, a.Messages.ByConversation())
	responses := stats.ResponseTimesFromMessages(messages)

	view := &DashboardView{
		TotalConversations: len(conversations),
		TotalMessages:      len(messages),
		Trend:              stats.Trend(stats.ConversationsByDay(conversations)),
		Weekday:            stats.WeekdayHistogram(conversations, a.loc),
		ResponseTimes:      responses,
		AvgResponse:        stats.FormatDuration(responses.Avg),
		Loading:            a.Details.Loading() || a.Conversations.Loading(),
		Errors: StoreErrors{
			Conversations: a.Conversations.Err(),
			Details:       a.Details.Err(),
		},
	}
	if agent, ok := a.Agents.Agent(agentID); ok {
		view.Agent = &agent
	}
	if details, ok := a.Details.Get(agentID); ok {
		view.Details = &details
		view.Sentiment = stats.Sentiment(&details)
		if view.TotalMessages == 0 {
			view.TotalMessages = details.TotalMessages
		}
	}
	return view, nil
}

// Statistics derives the statistics page from cached conversations and
// messages. It issues no requests.
func (a *App) Statistics(agentID model.ID) (*StatisticsView, error) {
	agentID, err := a.resolveAgent(agentID)
	if err != nil {
		return nil, err
	}

	conversations := a.Conversations.ForAgent(agentID)
	byConversation := a.Messages.ByConversation()
	messages := stats.Flatten(conversations, byConversation)
	responses := stats.ResponseTimes(conversations, byConversation)
	agg := stats.Aggregate(conversations, byConversation)

	return &StatisticsView{
		AgentID:       agentID,
		Conversations: len(conversations),
		Messages:      stats.MessageStats(messages),
		Trend:         stats.Trend(stats.ConversationsByDay(conversations)),
		Activity:      stats.ActivityMaps(messages, conversations, a.loc),
		ResponseTimes: responses,
		Aggregation:   agg,
		Sources:       stats.SourceBreakdown(conversations),
		Durations: DurationLabels{
			AvgResponse:     stats.FormatDuration(responses.Avg),
			P90Response:     stats.FormatDuration(responses.P90),
			AvgConversation: stats.FormatDuration(agg.AvgDuration),
			MaxConversation: stats.FormatDuration(agg.MaxDuration),
		},
	}, nil
}

// SentimentView returns the sentiment breakdown, loading details if needed.
func (a *App) SentimentView(ctx context.Context, agentID model.ID) (*SentimentView, error) {
	agentID, err := a.resolveAgent(agentID)
	if err != nil {
		return nil, err
	}

	view := &SentimentView{AgentID: agentID}
	details, ok := a.Details.Fetch(ctx, agentID)
	if !ok {
		view.Error = a.Details.Err()
		return view, nil
	}
	view.SentimentScore = details.SentimentScore
	view.Totals = stats.Sentiment(&details)
	return view, nil
}

// Transcript returns a cached conversation and its messages, oldest first.
func (a *App) Transcript(agentID, conversationID model.ID) (*TranscriptView, error) {
	agentID, err := a.resolveAgent(agentID)
	if err != nil {
		return nil, err
	}
	if conversationID == "" {
		conversationID = a.Selection.ConversationID()
	}

	conversation := model.Conversation{ID: conversationID, AgentID: agentID}
	view := &TranscriptView{}
	if c, ok := a.Conversations.Find(agentID, conversationID); ok {
		conversation = c
	}
	view.Conversation = &conversation

	thread := map[model.ID][]model.Message{conversationID: a.Messages.ForConversation(conversationID)}
	view.Messages = stats.Flatten([]model.Conversation{conversation}, thread)
	view.Summary = stats.MessageStats(view.Messages)
	view.ResponseTimes = stats.Summarize(stats.Latencies(view.Messages))
	return view, nil
}

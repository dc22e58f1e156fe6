package model

// ConnectionType identifies the source an agent was created from.
type ConnectionType string

const (
	ConnectionJotform ConnectionType = "jotform"
	ConnectionChatGPT ConnectionType = "chatgpt"
	ConnectionFile    ConnectionType = "file"
)

// Label returns a display name for the connection type.
func (c ConnectionType) Label() string {
	switch c {
	case ConnectionJotform:
		return "JotForm"
	case ConnectionChatGPT:
		return "ChatGPT"
	case ConnectionFile:
		return "File"
	default:
		return string(c)
	}
}

// Agent is a chat source that owns conversations.
type Agent struct {
	ID               ID             `json:"id"`
	Name             string         `json:"name"`
	AvatarURL        *string        `json:"avatar_url"`
	ConnectionType   ConnectionType `json:"connection_type"`
	LabelChoices     []string       `json:"label_choices,omitempty"`
	JotformRenderURL *string        `json:"jotform_render_url,omitempty"`
}

// EntityID returns the cache key of the agent.
func (a Agent) EntityID() string { return string(a.ID) }

// JotformAgent is an agent discovered through a Jotform connection.
type JotformAgent struct {
	ID               ID             `json:"id"`
	Name             string         `json:"name"`
	AvatarURL        *string        `json:"avatar_url"`
	JotformRenderURL *string        `json:"jotform_render_url,omitempty"`
	ConnectionType   ConnectionType `json:"connection_type"`
}

// JotformAgents splits discovered agents by whether they are already synced.
type JotformAgents struct {
	Unsynced []JotformAgent `json:"unsynced"`
	Synced   []JotformAgent `json:"synced"`
}

// SyncAgentsRequest is the bulk agent sync payload.
type SyncAgentsRequest struct {
	Agents []Agent `json:"agents"`
}

// UpdateLabelsRequest replaces an agent's label choices.
type UpdateLabelsRequest struct {
	LabelChoices []string `json:"label_choices"`
}

// AgentDetails is the per-agent snapshot shown on the dashboard.
type AgentDetails struct {
	ID                  ID      `json:"id"`
	Name                string  `json:"name"`
	AvatarURL           *string `json:"avatar_url"`
	JotformRenderURL    *string `json:"jotform_render_url,omitempty"`
	TotalConversations  int     `json:"total_conversations"`
	TotalMessages       int     `json:"total_messages"`
	SentimentScore      float64 `json:"sentiment_score"`
	TotalSentimentCount int     `json:"total_sentiment_count"`
	SuperPositiveCount  int     `json:"super_positive_count"`
	PositiveCount       int     `json:"positive_count"`
	NeutralCount        int     `json:"neutral_count"`
	NegativeCount       int     `json:"negative_count"`
	SuperNegativeCount  int     `json:"super_negative_count"`
}

package model

// SearchRequest is a semantic search over one agent's messages.
type SearchRequest struct {
	AgentID ID     `json:"agent_id"`
	Query   string `json:"query"`
}

// SearchResult is one ranked hit from the vector index.
type SearchResult struct {
	ID      ID             `json:"id"`
	Score   *float64       `json:"score,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Text returns the hit's message content, if any.
func (r SearchResult) Text() string {
	if r.Payload == nil {
		return ""
	}
	s, _ := r.Payload["content"].(string)
	return s
}

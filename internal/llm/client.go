// Package llm provides LLM clients used to write dashboard digests.
package llm

import (
	"context"
	"fmt"
)

// Roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

const defaultMaxTokens = 1024

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

// Select picks the preferred provider when its key is set, otherwise any
// provider with a key.
func Select(preferred Provider, anthropicKey, openaiKey string) (Client, error) {
	keys := map[Provider]string{ProviderAnthropic: anthropicKey, ProviderOpenAI: openaiKey}
	if key := keys[preferred]; key != "" {
		return NewClient(preferred, key)
	}
	if anthropicKey != "" {
		return NewAnthropicClient(anthropicKey)
	}
	if openaiKey != "" {
		return NewOpenAIClient(openaiKey)
	}
	return nil, ErrNoAPIKey
}

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	_, err := Select(ProviderAnthropic, "", "")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	c, err := Select(ProviderAnthropic, "", "sk-openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	c, err = Select(ProviderOpenAI, "sk-ant", "sk-openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	c, err = Select(ProviderOpenAI, "sk-ant", "")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(Provider("mystery"), "key")
	assert.Error(t, err)
}

func TestOpenAIComplete(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: RoleAssistant, Content: "Busy week."},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 12, CompletionTokens: 3},
		})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test")
	cfg.BaseURL = srv.URL + "/v1"
	c := NewOpenAIClientWithConfig(cfg)

	resp, err := c.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: RoleSystem, Content: "Summarize."}, {Role: RoleUser, Content: "stats"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Busy week.", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, openai.GPT4oMini, got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 2)
}

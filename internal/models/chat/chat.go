package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/anchoredrag/core/internal/models/utils/ollama"
	"github.com/anchoredrag/core/internal/types"
)

// ChatOptions holds the generation parameters passed to the underlying model.
type ChatOptions struct {
	Temperature         float64 `json:"temperature"`
	TopP                float64 `json:"top_p"`
	Seed                int     `json:"seed"`
	MaxTokens           int     `json:"max_tokens"`
	MaxCompletionTokens int     `json:"max_completion_tokens"`
	FrequencyPenalty    float64 `json:"frequency_penalty"`
	PresencePenalty     float64 `json:"presence_penalty"`
	Thinking            *bool   `json:"thinking"`
}

// Message is one turn in a chat completion request.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Chat is the model-agnostic contract the Answer Generation component
// drives: a local Ollama backend or a remote API backend, selected by config.
type Chat interface {
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*types.ChatResponse, error)

	ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan types.StreamResponse, error)

	GetModelName() string

	GetModelID() string
}

type ChatConfig struct {
	Source    types.ModelSource
	BaseURL   string
	ModelName string
	APIKey    string
	ModelID   string
}

// NewChat creates a chat client for the configured model source. The Ollama
// service, when needed, is constructed once at startup and passed in explicitly.
func NewChat(config *ChatConfig, ollamaService *ollama.OllamaService) (Chat, error) {
	switch strings.ToLower(string(config.Source)) {
	case string(types.ModelSourceLocal):
		if ollamaService == nil {
			return nil, fmt.Errorf("ollama service required for local chat source")
		}
		return NewOllamaChat(config, ollamaService)
	case string(types.ModelSourceRemote):
		return NewRemoteAPIChat(config)
	default:
		return nil, fmt.Errorf("unsupported chat model source: %s", config.Source)
	}
}

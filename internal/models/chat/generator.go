package chat

import (
	"context"

	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

// generatorAdapter satisfies interfaces.Generator over a concrete Chat
// client, translating interfaces.ChatTurn (this module's provider-agnostic
// turn type) to/from Chat's own Message/ChatOptions shape.
type generatorAdapter struct {
	chat Chat
	opts *ChatOptions
}

// NewGenerator adapts a Chat client into the interfaces.Generator contract
// that internal/conversation, internal/reformulate, internal/verify and
// internal/memory are written against, so any of this module's chat
// backends (local Ollama, remote API) can serve any of those packages
// without them depending on this package's own Chat/Message types.
func NewGenerator(c Chat, opts *ChatOptions) interfaces.Generator {
	if opts == nil {
		opts = &ChatOptions{Temperature: 0.7}
	}
	return &generatorAdapter{chat: c, opts: opts}
}

func (g *generatorAdapter) Chat(ctx context.Context, turns []interfaces.ChatTurn) (*types.ChatResponse, error) {
	return g.chat.Chat(ctx, toMessages(turns), g.opts)
}

func (g *generatorAdapter) ChatStream(ctx context.Context, turns []interfaces.ChatTurn) (<-chan types.StreamResponse, error) {
	return g.chat.ChatStream(ctx, toMessages(turns), g.opts)
}

func toMessages(turns []interfaces.ChatTurn) []Message {
	messages := make([]Message, len(turns))
	for i, t := range turns {
		messages[i] = Message{Role: t.Role, Content: t.Content}
	}
	return messages
}

// Package reformulate implements the Query Reformulator: a
// fail-open stage that rewrites a user's query using conversation history
// before retrieval runs. The fail-open shape (always return something
// usable, never propagate an error) falls back to the original query on
// any failure instead of aborting the pipeline.
package reformulate

import (
	"context"
	"fmt"

	"github.com/anchoredrag/core/internal/common"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

// AgentResponse is what the reformulation LLM agent returns.
type AgentResponse struct {
	NeedsReformulation bool   `json:"needsReformulation"`
	IsFollowUp         bool   `json:"isFollowUp"`
	Query              string `json:"query"`
	Reasoning          string `json:"reasoning"`
}

// Agent calls the reformulation LLM with the recent exchange, the full
// merged history transcript, and the original query.
type Agent interface {
	Reformulate(ctx context.Context, recentExchange, fullHistory, originalQuery string) (AgentResponse, error)
}

const agentSystemPrompt = `You rewrite a user's latest message into a standalone search query using the conversation history for context. Respond with strict JSON: {"needsReformulation": bool, "isFollowUp": bool, "query": string, "reasoning": string}. If the message is already standalone, set needsReformulation=false and query to the original message.`

// LLMAgent implements Agent over an interfaces.Generator.
type LLMAgent struct {
	generator interfaces.Generator
}

// NewLLMAgent builds a reformulation agent backed by a chat generator.
func NewLLMAgent(generator interfaces.Generator) *LLMAgent {
	return &LLMAgent{generator: generator}
}

func (a *LLMAgent) Reformulate(ctx context.Context, recentExchange, fullHistory, originalQuery string) (AgentResponse, error) {
	userContent := fmt.Sprintf(
		"Recent exchange:\n%s\n\nFull history:\n%s\n\nLatest message: %s",
		recentExchange, fullHistory, originalQuery,
	)
	messages := []interfaces.ChatTurn{
		{Role: "system", Content: agentSystemPrompt},
		{Role: "user", Content: userContent},
	}

	resp, err := a.generator.Chat(ctx, messages)
	if err != nil {
		return AgentResponse{}, err
	}

	var out AgentResponse
	if err := common.ParseLLMJsonResponse(resp.Content, &out); err != nil {
		return AgentResponse{}, fmt.Errorf("reformulate: parse agent response: %w", err)
	}
	return out, nil
}

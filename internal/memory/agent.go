package memory

import (
	"context"
	"fmt"

	"github.com/anchoredrag/core/internal/common"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

// ExtractedMemory is one item of the LLM's extraction response, before
// threshold filtering and dedup.
type ExtractedMemory struct {
	Type       types.MemoryType `json:"type"`
	Content    string           `json:"content"`
	Importance float64          `json:"importance"`
}

// ExtractionAgent asks an LLM to extract durable facts/preferences/insights
// from one conversation turn.
type ExtractionAgent interface {
	Extract(ctx context.Context, userMessage, assistantMessage string) ([]ExtractedMemory, error)
}

const extractionSystemPrompt = `Extract durable facts, preferences, or insights from this exchange that would be useful to remember in future conversations. Respond with strict JSON: an array of {"type": "fact"|"preference"|"insight", "content": string, "importance": number between 0 and 1}. Return an empty array if nothing is worth remembering.`

// LLMExtractionAgent implements ExtractionAgent over an interfaces.Generator.
type LLMExtractionAgent struct {
	generator interfaces.Generator
}

// NewLLMExtractionAgent builds a memory-extraction agent backed by a chat generator.
func NewLLMExtractionAgent(generator interfaces.Generator) *LLMExtractionAgent {
	return &LLMExtractionAgent{generator: generator}
}

func (a *LLMExtractionAgent) Extract(ctx context.Context, userMessage, assistantMessage string) ([]ExtractedMemory, error) {
	messages := []interfaces.ChatTurn{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("User: %s\nAssistant: %s", userMessage, assistantMessage)},
	}
	resp, err := a.generator.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	var out []ExtractedMemory
	if err := common.ParseLLMJsonResponse(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("memory: parse extraction response: %w", err)
	}
	return out, nil
}

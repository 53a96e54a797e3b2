// Package compaction implements Compaction: once a session's
// non-compacted transcript grows past a message or token threshold, the
// oldest batch is summarized by an LLM and replaced with one ChatSummary,
// keeping the sliding window small without losing earlier context.
package compaction

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

// Config holds the "Compaction" tunables.
type Config struct {
	MessageThreshold  int
	TokenThreshold    int
	SlidingWindowSize int
	BatchSize         int
}

// DefaultConfig matches the reference values.
func DefaultConfig() Config {
	return Config{MessageThreshold: 30, TokenThreshold: 3000, SlidingWindowSize: 10, BatchSize: 20}
}

// summarizePromptTemplate mirrors zkoranges-go-claw's compaction prompt,
// adapted to this module's own phrasing for the same four preserved
// categories.
const summarizePromptTemplate = `Summarize the following conversation history into a concise summary that preserves:
- Key facts, decisions, and conclusions
- User preferences and constraints mentioned
- Any ongoing tasks or action items
- Important context needed for future turns

Conversation:
%s`

// Compactor implements the "Compaction" algorithm.
type Compactor struct {
	messages  interfaces.MessageRepository
	summaries interfaces.SummaryRepository
	generator interfaces.Generator
	cfg       Config
}

// New builds a Compactor.
func New(messages interfaces.MessageRepository, summaries interfaces.SummaryRepository, generator interfaces.Generator, cfg Config) *Compactor {
	return &Compactor{messages: messages, summaries: summaries, generator: generator, cfg: cfg}
}

// CheckAsync evaluates whether a session needs compaction and, if so, runs
// it. It never propagates an error to its caller (fire-and-forget);
// failures are logged, leaving the session's transcript untouched so the
// next turn simply re-evaluates.
func (c *Compactor) CheckAsync(ctx context.Context, sessionID string) {
	log := logger.GetLogger(ctx)

	n, tokens, err := c.messages.CountAndSumTokensNonCompacted(ctx, sessionID)
	if err != nil {
		log.Errorf("compaction: count messages for session %s: %v", sessionID, err)
		return
	}

	if n <= c.cfg.SlidingWindowSize {
		return
	}
	if n <= c.cfg.MessageThreshold && tokens <= c.cfg.TokenThreshold {
		return
	}

	batch, err := c.messages.OldestNonCompacted(ctx, sessionID, c.cfg.SlidingWindowSize, c.cfg.BatchSize)
	if err != nil {
		log.Errorf("compaction: load oldest messages for session %s: %v", sessionID, err)
		return
	}
	if len(batch) == 0 {
		return
	}

	summaryContent := c.summarize(ctx, batch)

	ids := make([]string, len(batch))
	originalTokens := 0
	for i, m := range batch {
		ids[i] = m.ID
		originalTokens += m.TokenCount
	}

	summary := &types.ChatSummary{
		ID: uuid.New().String(), SessionID: sessionID,
		FromTimestamp: batch[0].EpochTimestamp(), ToTimestamp: batch[len(batch)-1].EpochTimestamp(),
		SummaryContent: summaryContent, MessageCount: len(batch),
		OriginalTokenCount: originalTokens, TokenCount: types.EstimateTokenCount(summaryContent),
		CreatedAt: time.Now(),
	}
	if err := c.summaries.Create(ctx, summary); err != nil {
		log.Errorf("compaction: persist summary for session %s: %v", sessionID, err)
		return
	}
	if err := c.messages.MarkCompacted(ctx, ids, summary.ID); err != nil {
		log.Errorf("compaction: mark messages compacted for session %s: %v", sessionID, err)
	}
}

// summarize asks the generator to summarize the batch, falling back to a
// per-message first-sentence concatenation on failure.
func (c *Compactor) summarize(ctx context.Context, batch []types.ChatMessage) string {
	log := logger.GetLogger(ctx)

	var transcript strings.Builder
	for _, m := range batch {
		transcript.WriteString(string(m.Role))
		transcript.WriteString(": ")
		transcript.WriteString(m.Content)
		transcript.WriteString("\n")
	}
	prompt := fmt.Sprintf(summarizePromptTemplate, transcript.String())

	resp, err := c.generator.Chat(ctx, []interfaces.ChatTurn{{Role: "user", Content: prompt}})
	if err != nil {
		log.Warnf("compaction: summarization call failed, falling back to truncation: %v", err)
		return fallbackSummary(batch)
	}
	return strings.TrimSpace(resp.Content)
}

const fallbackSnippetLen = 100

// fallbackSummary concatenates each message's first sentence, truncated to
// fallbackSnippetLen runes, when the LLM summarization call fails.
func fallbackSummary(batch []types.ChatMessage) string {
	var sb strings.Builder
	for _, m := range batch {
		sentence := firstSentence(m.Content)
		if utf8.RuneCountInString(sentence) > fallbackSnippetLen {
			runes := []rune(sentence)
			sentence = string(runes[:fallbackSnippetLen])
		}
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(sentence)
		sb.WriteString("\n")
	}
	return sb.String()
}

func firstSentence(text string) string {
	end := -1
	for _, terminator := range []string{". ", "! ", "? "} {
		if idx := strings.Index(text, terminator); idx >= 0 && (end < 0 || idx < end) {
			end = idx
		}
	}
	if end < 0 {
		return text
	}
	return text[:end+1]
}

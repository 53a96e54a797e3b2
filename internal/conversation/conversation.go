// Package conversation implements the Conversation Core: StreamChat
// runs one fixed pipeline stage by stage (Reformulate -> Search -> Rerank ->
// Diversify -> BuildContext -> Generate -> Persist -> Index ->
// BackgroundTrigger) as a straight-line sequence over this module's
// session/message/memory model, rather than a pluggable plugin chain.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/anchoredrag/core/internal/errors"
	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/resilience"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
	"github.com/anchoredrag/core/internal/verify"
)

// Retriever is the Hybrid Retriever contract this package consumes, kept
// local so conversation doesn't import internal/retriever's concrete type.
type Retriever interface {
	Search(ctx context.Context, sessionID, query string, mode types.Mode, anchorDocIDs []string) (types.SearchResult, error)
}

// Reformulator is the Query Reformulator contract this package consumes.
type Reformulator interface {
	Reformulate(ctx context.Context, sessionID, originalQuery string, mode types.Mode) types.ReformulatedQuery
}

// MemoryProvider supplies relevant session memories for context assembly.
type MemoryProvider interface {
	GetRelevantMemories(ctx context.Context, sessionID, query string, limit int) ([]types.Memory, error)
}

// MemoryExtractor is triggered fire-and-forget after a completed turn.
type MemoryExtractor interface {
	ExtractAsync(ctx context.Context, sessionID, userMessage, assistantMessage string)
}

// Compactor is triggered fire-and-forget after a completed turn.
type Compactor interface {
	CheckAsync(ctx context.Context, sessionID string)
}

// AnswerVerifier scores a generated answer's cited claims against the chunks
// it cites. It is optional, advisory, and never
// gates the response StreamChat already emitted.
type AnswerVerifier interface {
	Verify(ctx context.Context, answer string, citedChunks []types.ScoredChunk) []types.ClaimVerification
}

// Config holds the tunables StreamChat consumes.
type Config struct {
	SlidingWindowSize  int
	MemoryContextLimit int
	StreamChatTimeout  time.Duration
	GeneratorTimeout   time.Duration
}

// DefaultConfig matches the reference values.
func DefaultConfig() Config {
	return Config{
		SlidingWindowSize:  10,
		MemoryContextLimit: 5,
		StreamChatTimeout:  60 * time.Second,
		GeneratorTimeout:   30 * time.Second,
	}
}

// Core implements StreamChat.
type Core struct {
	sessions     interfaces.SessionRepository
	messages     interfaces.MessageRepository
	summaries    interfaces.SummaryRepository
	messageIndex interfaces.IndexService[types.ChatMessage]
	embedder     interfaces.Embedder
	generator    interfaces.Generator
	retriever    Retriever
	reformulator Reformulator
	memories     MemoryProvider
	extractor    MemoryExtractor
	compactor    Compactor
	verifier     AnswerVerifier
	tokenizer    *verify.QueryTokenizer
	confWeights  verify.ConfidenceWeights
	cfg          Config
}

// New constructs a conversation Core.
func New(
	sessions interfaces.SessionRepository,
	messages interfaces.MessageRepository,
	summaries interfaces.SummaryRepository,
	messageIndex interfaces.IndexService[types.ChatMessage],
	embedder interfaces.Embedder,
	generator interfaces.Generator,
	retriever Retriever,
	reformulator Reformulator,
	memories MemoryProvider,
	extractor MemoryExtractor,
	compactor Compactor,
	verifier AnswerVerifier,
	tokenizer *verify.QueryTokenizer,
	cfg Config,
) *Core {
	return &Core{
		sessions: sessions, messages: messages, summaries: summaries,
		messageIndex: messageIndex, embedder: embedder, generator: generator,
		retriever: retriever, reformulator: reformulator, memories: memories,
		extractor: extractor, compactor: compactor, verifier: verifier, tokenizer: tokenizer,
		confWeights: verify.DefaultConfidenceWeights(), cfg: cfg,
	}
}

// StreamChat runs the full pipeline. The returned channel is closed
// once the stream ends, whether by Done, Error, or consumer cancellation.
// SessionNotFound is the one failure mode rejected synchronously, before any
// event is produced, since no stream can usefully exist without a session.
func (c *Core) StreamChat(ctx context.Context, sessionID, userMessage string, mode types.Mode) (<-chan types.Event, error) {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("conversation: load session %s: %w", sessionID, err)
	}
	if session == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("session %s not found", sessionID))
	}

	userMsg := &types.ChatMessage{
		ID: uuid.New().String(), SessionID: sessionID, Role: types.RoleUser,
		Content: userMessage, CreatedAt: time.Now(), TokenCount: types.EstimateTokenCount(userMessage),
		IsCompacted: false,
	}
	if err := c.messages.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("conversation: persist user message: %w", err)
	}

	events := make(chan types.Event, 16)
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StreamChatTimeout)

	go func() {
		defer cancel()
		defer close(events)
		c.run(ctx, session, userMsg, mode, events)
	}()

	return events, nil
}

func (c *Core) run(ctx context.Context, session *types.Session, userMsg *types.ChatMessage, mode types.Mode, events chan<- types.Event) {
	log := logger.GetLogger(ctx)

	reformulated := c.reformulator.Reformulate(ctx, session.ID, userMsg.Content, mode)

	result, err := c.retriever.Search(ctx, session.ID, reformulated.Query, mode, reformulated.AnchorDocumentIDs)
	if err != nil {
		log.Warnf("conversation: retrieval failed for session %s, continuing without context: %v", session.ID, err)
		result = types.SearchResult{}
	}

	confidence := verify.Confidence(reformulated.Query, result, c.tokenizer, c.confWeights)
	log.Infof("conversation: session %s retrieval confidence=%.2f level=%s", session.ID, confidence.Score, confidence.Level)

	turns, err := c.buildContext(ctx, session.ID, userMsg, mode, reformulated.Query, result)
	if err != nil {
		log.Errorf("conversation: build context failed for session %s: %v", session.ID, err)
	}

	stream, err := c.streamGenerate(ctx, turns)
	if err != nil {
		if !trySend(ctx, events, types.Event{Type: types.EventError, ErrorID: uuid.New().String(), Message: "the assistant is temporarily unavailable, please try again"}) {
			return
		}
		log.Errorf("conversation: generator call failed for session %s: %v", session.ID, err)
		return
	}

	var answer strings.Builder
	for chunk := range stream {
		if chunk.Content != "" {
			answer.WriteString(chunk.Content)
			if !trySend(ctx, events, types.Event{Type: types.EventToken, Token: chunk.Content}) {
				return
			}
		}
	}

	if ctx.Err() != nil {
		log.Warnf("conversation: stream for session %s ended by cancellation, skipping completion", session.ID)
		return
	}

	c.complete(ctx, session, userMsg, answer.String(), result, events)
}

// streamGenerate wraps the call that establishes the stream in the
// retry policy; once the channel is handed back, streaming itself is not
// retried (a partial answer can't be safely replayed) and runs against the
// caller's ctx for its full duration. GeneratorTimeout is not applied here:
// establishing and consuming the stream are bounded only by ctx, which
// StreamChat limits to StreamChatTimeout.
func (c *Core) streamGenerate(ctx context.Context, turns []interfaces.ChatTurn) (<-chan types.StreamResponse, error) {
	return resilience.Retry(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) (<-chan types.StreamResponse, error) {
		return c.generator.ChatStream(ctx, turns)
	})
}

func (c *Core) complete(ctx context.Context, session *types.Session, userMsg *types.ChatMessage, answer string, result types.SearchResult, events chan<- types.Event) {
	log := logger.GetLogger(ctx)

	for _, sc := range result.FinalResults {
		citation := citationFor(sc)
		if !trySend(ctx, events, types.Event{Type: types.EventCitation, Citation: &citation}) {
			return
		}
	}

	anchorJSON, err := json.Marshal(result.DistinctDocumentIDs())
	if err != nil {
		log.Errorf("conversation: marshal anchor lineage for session %s: %v", session.ID, err)
		anchorJSON = []byte("[]")
	}

	assistantMsg := &types.ChatMessage{
		ID: uuid.New().String(), SessionID: session.ID, Role: types.RoleAssistant,
		Content: answer, CreatedAt: time.Now(), TokenCount: types.EstimateTokenCount(answer),
		IsCompacted: false, RetrievedContextJSON: string(anchorJSON),
	}
	if err := c.messages.Create(ctx, assistantMsg); err != nil {
		log.Errorf("conversation: persist assistant message for session %s: %v", session.ID, err)
	}

	c.indexMessages(ctx, *userMsg, *assistantMsg)

	bgCtx := logger.CloneContext(ctx)
	if c.extractor != nil {
		go c.extractor.ExtractAsync(bgCtx, session.ID, userMsg.Content, assistantMsg.Content)
	}
	if c.compactor != nil {
		go c.compactor.CheckAsync(bgCtx, session.ID)
	}
	if c.verifier != nil {
		go c.verifyAnswer(bgCtx, assistantMsg.ID, assistantMsg.Content, result.FinalResults)
	}

	trySend(ctx, events, types.Event{Type: types.EventDone, MessageID: assistantMsg.ID, TokenCount: assistantMsg.TokenCount})
}

// verifyAnswer runs Answer Verification against the chunks the
// generator was actually given, after the response has already been
// streamed and persisted. It is advisory: the result is logged, not
// surfaced on the stream, and never affects an answer already delivered.
func (c *Core) verifyAnswer(ctx context.Context, messageID, answer string, citedChunks []types.ScoredChunk) {
	log := logger.GetLogger(ctx)
	claims := c.verifier.Verify(ctx, answer, citedChunks)

	flagged := 0
	for _, claim := range claims {
		if claim.Flagged {
			flagged++
		}
	}
	if flagged > 0 {
		log.Warnf("conversation: answer verification flagged %d/%d claims for message %s", flagged, len(claims), messageID)
	}
}

// indexMessages embeds and indexes the just-persisted turn into the
// Chat-Message index; failures here are logged, not
// propagated, since the authoritative record is already durable.
func (c *Core) indexMessages(ctx context.Context, userMsg, assistantMsg types.ChatMessage) {
	log := logger.GetLogger(ctx)
	for _, msg := range []*types.ChatMessage{&userMsg, &assistantMsg} {
		msg.Timestamp = msg.CreatedAt.Unix()
		if vec, err := c.embedder.Embed(ctx, msg.Content); err == nil {
			msg.Embedding = vec
		} else {
			log.Warnf("conversation: embed message %s for indexing failed: %v", msg.ID, err)
		}
	}
	if _, err := c.messageIndex.Index(ctx, []types.ChatMessage{userMsg, assistantMsg}); err != nil {
		log.Errorf("conversation: index chat messages for session %s failed: %v", userMsg.SessionID, err)
	}
}

// buildContext assembles the ordered turn list for generation.
func (c *Core) buildContext(ctx context.Context, sessionID string, userMsg *types.ChatMessage, mode types.Mode, query string, result types.SearchResult) ([]interfaces.ChatTurn, error) {
	contextBlock := buildContextBlock(result.FinalResults)
	turns := []interfaces.ChatTurn{{Role: "system", Content: systemPrompt(mode, contextBlock)}}

	if summary, err := c.summaries.MostRecentBySession(ctx, sessionID); err == nil && summary != nil {
		turns = append(turns, interfaces.ChatTurn{Role: "system", Content: "Previous conversation summary: " + summary.SummaryContent})
	}

	if c.cfg.MemoryContextLimit > 0 && c.memories != nil {
		if mems, err := c.memories.GetRelevantMemories(ctx, sessionID, query, c.cfg.MemoryContextLimit); err == nil && len(mems) > 0 {
			turns = append(turns, interfaces.ChatTurn{Role: "system", Content: memoryContext(mems)})
		}
	}

	window, err := c.messages.NonCompactedBySession(ctx, sessionID, c.cfg.SlidingWindowSize+1)
	if err != nil {
		return nil, fmt.Errorf("conversation: load sliding window for session %s: %w", sessionID, err)
	}
	for _, m := range slidingWindow(window, userMsg.ID, c.cfg.SlidingWindowSize) {
		turns = append(turns, interfaces.ChatTurn{Role: string(m.Role), Content: m.Content})
	}

	turns = append(turns, interfaces.ChatTurn{Role: "user", Content: userMsg.Content})
	return turns, nil
}

func memoryContext(mems []types.Memory) string {
	var sb strings.Builder
	sb.WriteString("Relevant memories from this session:\n")
	for _, m := range mems {
		sb.WriteString("- ")
		sb.WriteString(m.MemoryContent)
		sb.WriteString("\n")
	}
	return sb.String()
}

// slidingWindow drops excludeID (the message just persisted this turn),
// caps to limit, and returns the remainder in chronological order; the
// repository returns createdAt DESC per its contract.
func slidingWindow(messages []types.ChatMessage, excludeID string, limit int) []types.ChatMessage {
	filtered := make([]types.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.ID == excludeID {
			continue
		}
		filtered = append(filtered, m)
		if len(filtered) == limit {
			break
		}
	}
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}
	return filtered
}

func trySend(ctx context.Context, events chan<- types.Event, ev types.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

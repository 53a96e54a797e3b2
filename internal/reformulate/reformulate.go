package reformulate

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/anchoredrag/core/internal/fusion"
	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

// Config holds the "Query reformulation" tunables.
type Config struct {
	Enabled           bool
	HistoryWindow     int
	MinRecentMessages int
	MaxQueryLength    int
}

// DefaultConfig is the reference reformulation configuration.
func DefaultConfig() Config {
	return Config{Enabled: true, HistoryWindow: 5, MinRecentMessages: 2, MaxQueryLength: 500}
}

// Reformulator implements Reformulate(sessionId, originalQuery, mode).
type Reformulator struct {
	messages     interfaces.MessageRepository
	messageIndex interfaces.IndexService[types.ChatMessage]
	embedder     interfaces.Embedder
	agent        Agent
	cfg          Config
}

// New constructs a Reformulator.
func New(messages interfaces.MessageRepository, messageIndex interfaces.IndexService[types.ChatMessage], embedder interfaces.Embedder, agent Agent, cfg Config) *Reformulator {
	return &Reformulator{messages: messages, messageIndex: messageIndex, embedder: embedder, agent: agent, cfg: cfg}
}

func passThrough(query string) types.ReformulatedQuery {
	return types.ReformulatedQuery{Query: query, IsFollowUp: false, AnchorDocumentIDs: nil}
}

// Reformulate runs the full query-rewriting algorithm. It never returns an error:
// any failure degrades to the original query, per the documented failure
// semantics.
func (r *Reformulator) Reformulate(ctx context.Context, sessionID, originalQuery string, mode types.Mode) types.ReformulatedQuery {
	if !r.cfg.Enabled {
		return passThrough(originalQuery)
	}

	recent, err := r.messages.RecentBySession(ctx, sessionID, r.cfg.MinRecentMessages)
	if err != nil {
		logger.Warnf(ctx, "reformulate: failed to load recent messages for session %s: %v", sessionID, err)
		return passThrough(originalQuery)
	}

	semantic := r.semanticHistory(ctx, sessionID, originalQuery)

	merged := mergeByID(recent, semantic, r.cfg.HistoryWindow)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].EpochTimestamp() < merged[j].EpochTimestamp() })

	var recentExchange strings.Builder
	for _, m := range recent {
		recentExchange.WriteString(string(m.Role))
		recentExchange.WriteString(": ")
		recentExchange.WriteString(m.Content)
		recentExchange.WriteString("\n")
	}

	var fullHistory strings.Builder
	for _, m := range merged {
		fullHistory.WriteString(string(m.Role))
		fullHistory.WriteString(": ")
		fullHistory.WriteString(m.Content)
		fullHistory.WriteString("\n")
	}

	anchorDocumentIDs := latestAssistantAnchors(merged)

	resp, err := r.agent.Reformulate(ctx, recentExchange.String(), fullHistory.String(), originalQuery)
	if err != nil {
		logger.Warnf(ctx, "reformulate: agent call failed for session %s: %v", sessionID, err)
		return passThrough(originalQuery)
	}

	query := strings.TrimSpace(resp.Query)
	if query == "" {
		query = originalQuery
	}
	if r.cfg.MaxQueryLength > 0 && len(query) > r.cfg.MaxQueryLength {
		query = query[:r.cfg.MaxQueryLength]
	}

	result := types.ReformulatedQuery{Query: query, IsFollowUp: resp.IsFollowUp}
	if resp.IsFollowUp {
		result.AnchorDocumentIDs = anchorDocumentIDs
	}
	return result
}

func (r *Reformulator) semanticHistory(ctx context.Context, sessionID, query string) []types.Scored[types.ChatMessage] {
	filter := types.Filter{SessionID: sessionID}
	keyword, err := r.messageIndex.KeywordSearch(ctx, filter, query, r.cfg.HistoryWindow)
	if err != nil {
		logger.Warnf(ctx, "reformulate: keyword history search failed for session %s: %v", sessionID, err)
		keyword = nil
	}

	var vector []types.Scored[types.ChatMessage]
	if queryVector, embedErr := r.embedder.Embed(ctx, query); embedErr == nil && len(queryVector) > 0 {
		vector, err = r.messageIndex.VectorSearch(ctx, filter, queryVector, r.cfg.HistoryWindow)
		if err != nil {
			logger.Warnf(ctx, "reformulate: vector history search failed for session %s: %v", sessionID, err)
			vector = nil
		}
	}

	return fusion.FuseRRF(vector, keyword, fusion.RRFConstant, func(m types.ChatMessage) string { return m.ID })
}

// mergeByID puts recent messages first, then fills up to limit from the
// semantic result set, deduplicated by message id.
func mergeByID(recent []types.ChatMessage, semantic []types.Scored[types.ChatMessage], limit int) []types.ChatMessage {
	seen := make(map[string]struct{}, len(recent))
	merged := make([]types.ChatMessage, 0, limit)
	for _, m := range recent {
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, s := range semantic {
		if len(merged) >= limit {
			break
		}
		if _, ok := seen[s.Doc.ID]; ok {
			continue
		}
		seen[s.Doc.ID] = struct{}{}
		merged = append(merged, s.Doc)
	}
	return merged
}

// latestAssistantAnchors parses the most recent Assistant message's
// retrievedContextJson into a document id list.
func latestAssistantAnchors(chronological []types.ChatMessage) []string {
	for i := len(chronological) - 1; i >= 0; i-- {
		m := chronological[i]
		if m.Role != types.RoleAssistant || m.RetrievedContextJSON == "" {
			continue
		}
		var ids []string
		if err := json.Unmarshal([]byte(m.RetrievedContextJSON), &ids); err != nil {
			return nil
		}
		return ids
	}
	return nil
}

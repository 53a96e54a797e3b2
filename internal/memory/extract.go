// Package memory implements Memory extraction and retrieval: durable
// facts/preferences/insights pulled out of each conversation turn, deduped
// against what a session already remembers, capped per session, and made
// retrievable for future context assembly via a hybrid-search-then-fuse
// scoring pass over similarity and importance.
package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

// Config holds the "Memory" tunables.
type Config struct {
	Enabled             bool
	MaxPerSession       int
	ExtractionThreshold float64
	ContextLimit        int
	SemanticWeight      float64
}

// DefaultConfig matches the reference values.
func DefaultConfig() Config {
	return Config{Enabled: true, MaxPerSession: 50, ExtractionThreshold: 0.3, ContextLimit: 5, SemanticWeight: 0.7}
}

// Extractor implements the "Memory extraction" algorithm.
type Extractor struct {
	repo     interfaces.MemoryRepository
	index    interfaces.IndexService[types.Memory]
	embedder interfaces.Embedder
	agent    ExtractionAgent
	cfg      Config
}

// NewExtractor builds a memory Extractor.
func NewExtractor(repo interfaces.MemoryRepository, index interfaces.IndexService[types.Memory], embedder interfaces.Embedder, agent ExtractionAgent, cfg Config) *Extractor {
	return &Extractor{repo: repo, index: index, embedder: embedder, agent: agent, cfg: cfg}
}

// ExtractAsync runs extraction for one completed turn. It never propagates
// an error to its caller (it is invoked as a fire-and-forget background
// task); failures are logged and the turn is simply not remembered.
func (e *Extractor) ExtractAsync(ctx context.Context, sessionID, userMessage, assistantMessage string) {
	if !e.cfg.Enabled {
		return
	}
	log := logger.GetLogger(ctx)

	candidates, err := e.agent.Extract(ctx, userMessage, assistantMessage)
	if err != nil {
		log.Warnf("memory: extraction failed for session %s: %v", sessionID, err)
		return
	}
	if len(candidates) == 0 {
		return
	}

	existing, err := e.repo.ListBySession(ctx, sessionID)
	if err != nil {
		log.Errorf("memory: list existing memories for session %s: %v", sessionID, err)
		return
	}

	var touched []types.Memory
	for _, c := range candidates {
		if c.Importance < e.cfg.ExtractionThreshold {
			continue
		}
		mem, action := e.upsert(ctx, sessionID, c, existing)
		if mem == nil {
			continue
		}
		touched = append(touched, *mem)
		if action == actionInserted {
			existing = append(existing, *mem)
		}
	}

	e.evictOverCap(ctx, sessionID, existing)

	if len(touched) > 0 {
		e.indexMemories(ctx, touched)
	}
}

type upsertAction int

const (
	actionSkipped upsertAction = iota
	actionUpdated
	actionInserted
)

// upsert implements the dedup rule: exact content match skips, substring
// containment in either direction updates the existing memory's importance
// to max(old, new) and touches lastAccessedAt, otherwise a new memory is
// inserted.
func (e *Extractor) upsert(ctx context.Context, sessionID string, c ExtractedMemory, existing []types.Memory) (*types.Memory, upsertAction) {
	log := logger.GetLogger(ctx)

	for i := range existing {
		if existing[i].MemoryContent == c.Content {
			return nil, actionSkipped
		}
	}
	for i := range existing {
		if containsEither(existing[i].MemoryContent, c.Content) {
			updated := existing[i]
			if c.Importance > updated.Importance {
				updated.Importance = c.Importance
			}
			updated.LastAccessedAt = time.Now()
			if err := e.repo.Update(ctx, &updated); err != nil {
				log.Errorf("memory: update memory %s for session %s: %v", updated.ID, sessionID, err)
				return nil, actionSkipped
			}
			return &updated, actionUpdated
		}
	}

	now := time.Now()
	mem := &types.Memory{
		ID: uuid.New().String(), SessionID: sessionID, MemoryContent: c.Content,
		MemoryType: c.Type, Importance: c.Importance, CreatedAt: now, LastAccessedAt: now,
	}
	if err := e.repo.Create(ctx, mem); err != nil {
		log.Errorf("memory: create memory for session %s: %v", sessionID, err)
		return nil, actionSkipped
	}
	return mem, actionInserted
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// evictOverCap enforces MaxPerSession, evicting lowest-importance memories
// first, ties broken by oldest createdAt.
func (e *Extractor) evictOverCap(ctx context.Context, sessionID string, all []types.Memory) {
	if len(all) <= e.cfg.MaxPerSession {
		return
	}
	log := logger.GetLogger(ctx)

	sorted := append([]types.Memory{}, all...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Importance != sorted[j].Importance {
			return sorted[i].Importance < sorted[j].Importance
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	toEvict := len(sorted) - e.cfg.MaxPerSession
	for _, mem := range sorted[:toEvict] {
		if err := e.repo.Delete(ctx, mem.ID); err != nil {
			log.Errorf("memory: evict memory %s for session %s: %v", mem.ID, sessionID, err)
		}
	}
}

func (e *Extractor) indexMemories(ctx context.Context, mems []types.Memory) {
	log := logger.GetLogger(ctx)
	for i := range mems {
		vec, err := e.embedder.Embed(ctx, mems[i].MemoryContent)
		if err != nil {
			log.Warnf("memory: embed memory %s failed: %v", mems[i].ID, err)
			continue
		}
		mems[i].Embedding = vec
	}
	if _, err := e.index.Index(ctx, mems); err != nil {
		log.Errorf("memory: index memories failed: %v", err)
	}
}

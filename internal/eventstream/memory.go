package eventstream

import (
	"context"
	"sync"
	"time"

	"github.com/anchoredrag/core/internal/types"
)

const evictAfter = 30 * time.Second

// MemoryManager is a single-instance Manager: a nested map guarded by one
// RWMutex, entries evicted 30s after completion.
type MemoryManager struct {
	mu      sync.RWMutex
	streams map[string]map[string]*State
}

// NewMemoryManager builds a MemoryManager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{streams: make(map[string]map[string]*State)}
}

func (m *MemoryManager) RegisterStream(ctx context.Context, sessionID, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.streams[sessionID]; !ok {
		m.streams[sessionID] = make(map[string]*State)
	}
	m.streams[sessionID][requestID] = &State{SessionID: sessionID, RequestID: requestID, LastUpdated: time.Now()}
	return nil
}

func (m *MemoryManager) AppendEvent(ctx context.Context, sessionID, requestID string, ev types.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessionMap, ok := m.streams[sessionID]
	if !ok {
		return nil
	}
	state, ok := sessionMap[requestID]
	if !ok {
		return nil
	}
	state.Apply(ev)
	if state.IsCompleted {
		go m.evict(sessionID, requestID)
	}
	return nil
}

func (m *MemoryManager) GetStream(ctx context.Context, sessionID, requestID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessionMap, ok := m.streams[sessionID]
	if !ok {
		return nil, nil
	}
	state, ok := sessionMap[requestID]
	if !ok {
		return nil, nil
	}
	copy := *state
	return &copy, nil
}

func (m *MemoryManager) evict(sessionID, requestID string) {
	time.Sleep(evictAfter)
	m.mu.Lock()
	defer m.mu.Unlock()
	if sessionMap, ok := m.streams[sessionID]; ok {
		delete(sessionMap, requestID)
		if len(sessionMap) == 0 {
			delete(m.streams, sessionID)
		}
	}
}

var _ Manager = (*MemoryManager)(nil)

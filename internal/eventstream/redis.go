package eventstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anchoredrag/core/internal/types"
)

// RedisManager is a multi-instance Manager: each (sessionID, requestID) is
// one JSON-encoded key with a TTL, read-modify-written on every event.
type RedisManager struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisManager builds a RedisManager. ttl defaults to 1 hour, prefix to
// "eventstream:" when left zero-valued.
func NewRedisManager(client *redis.Client, prefix string, ttl time.Duration) *RedisManager {
	if ttl == 0 {
		ttl = time.Hour
	}
	if prefix == "" {
		prefix = "eventstream:"
	}
	return &RedisManager{client: client, ttl: ttl, prefix: prefix}
}

func (r *RedisManager) key(sessionID, requestID string) string {
	return fmt.Sprintf("%s%s:%s", r.prefix, sessionID, requestID)
}

func (r *RedisManager) RegisterStream(ctx context.Context, sessionID, requestID string) error {
	state := &State{SessionID: sessionID, RequestID: requestID, LastUpdated: time.Now()}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("eventstream: marshal stream state: %w", err)
	}
	return r.client.Set(ctx, r.key(sessionID, requestID), data, r.ttl).Err()
}

func (r *RedisManager) AppendEvent(ctx context.Context, sessionID, requestID string, ev types.Event) error {
	key := r.key(sessionID, requestID)
	state, err := r.load(ctx, key)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	state.Apply(ev)
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("eventstream: marshal stream state: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return err
	}
	if state.IsCompleted {
		go func() {
			time.Sleep(evictAfter)
			r.client.Del(context.Background(), key)
		}()
	}
	return nil
}

func (r *RedisManager) GetStream(ctx context.Context, sessionID, requestID string) (*State, error) {
	return r.load(ctx, r.key(sessionID, requestID))
}

func (r *RedisManager) load(ctx context.Context, key string) (*State, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("eventstream: get stream state: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("eventstream: unmarshal stream state: %w", err)
	}
	return &state, nil
}

var _ Manager = (*RedisManager)(nil)

package worker

import (
	"runtime"

	"github.com/hibiken/asynq"

	"github.com/anchoredrag/core/internal/config"
)

// maxIngestConcurrency caps the ingestion worker pool at 8 even on large
// machines's documentProcessingExecutor sizing rule.
const maxIngestConcurrency = 8

// DefaultConcurrency returns min(cpu*2, 8), the worker pool size.
func DefaultConcurrency() int {
	c := runtime.NumCPU() * 2
	if c > maxIngestConcurrency {
		return maxIngestConcurrency
	}
	return c
}

func redisClientOpt(cfg config.AsynqConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// NewClient builds the asynq client a Queue enqueues through.
func NewClient(cfg config.AsynqConfig) *asynq.Client {
	return asynq.NewClient(redisClientOpt(cfg))
}

// NewServer builds the asynq server that drains this package's task
// queue, concurrency sized per DefaultConcurrency.
func NewServer(cfg config.AsynqConfig) *asynq.Server {
	return asynq.NewServer(redisClientOpt(cfg), asynq.Config{
		Concurrency: DefaultConcurrency(),
		Queues: map[string]int{
			"default": 1,
		},
	})
}

// Package config loads the application's top-level Config from a YAML file
// with environment-variable overlay: viper resolves the file, then a second
// pass expands ${ENV_VAR} references embedded in the raw file content before
// unmarshalling, since viper's AutomaticEnv alone doesn't reach values
// embedded inside other config strings.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/anchoredrag/core/internal/compaction"
	"github.com/anchoredrag/core/internal/conversation"
	"github.com/anchoredrag/core/internal/ingest"
	"github.com/anchoredrag/core/internal/ingest/chunker"
	"github.com/anchoredrag/core/internal/memory"
	"github.com/anchoredrag/core/internal/models/chat"
	"github.com/anchoredrag/core/internal/models/embedding"
	"github.com/anchoredrag/core/internal/models/rerank"
	"github.com/anchoredrag/core/internal/reformulate"
	"github.com/anchoredrag/core/internal/resilience"
	"github.com/anchoredrag/core/internal/retriever"
	"github.com/anchoredrag/core/internal/verify"
)

// Config is the application's top-level configuration, one section
// "Configuration (recognized options)" group plus the ambient server,
// database and model-client settings this module needs to actually run.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Database      DatabaseConfig      `yaml:"database" json:"database"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch" json:"elasticsearch"`
	Concurrency   ConcurrencyConfig   `yaml:"concurrency" json:"concurrency"`
	StreamManager StreamManagerConfig `yaml:"stream_manager" json:"stream_manager"`

	Embedding embedding.Config   `yaml:"embedding" json:"embedding"`
	Chat      chat.ChatConfig    `yaml:"chat" json:"chat"`
	Reranker  rerank.RerankerConfig `yaml:"reranker" json:"reranker"`

	Chunking           chunker.PlaintextConfig `yaml:"chunking" json:"chunking"`
	Ingestion          ingest.Config           `yaml:"ingestion" json:"ingestion"`
	Retrieval          retriever.Config        `yaml:"retrieval" json:"retrieval"`
	Diversity          DiversityConfig         `yaml:"diversity" json:"diversity"`
	QueryReformulation reformulate.Config      `yaml:"query_reformulation" json:"query_reformulation"`
	Compaction         compaction.Config       `yaml:"compaction" json:"compaction"`
	Memory             memory.Config           `yaml:"memory" json:"memory"`
	Verification       verify.VerificationConfig `yaml:"verification" json:"verification"`
	ConfidenceWeights  verify.ConfidenceWeights  `yaml:"confidence_weights" json:"confidence_weights"`
	Conversation       conversation.Config       `yaml:"conversation" json:"conversation"`

	Retry          resilience.RetryConfig         `yaml:"retry" json:"retry"`
	CircuitBreaker resilience.CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`

	Asynq AsynqConfig `yaml:"asynq" json:"asynq"`
}

// AsynqConfig configures the background task queue ingestion, memory
// extraction and compaction run on when a multi-instance deployment
// routes the fire-and-forget triggers through internal/worker instead of
// an in-process goroutine.
type AsynqConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// ServerConfig holds the HTTP-facing settings.
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	Host            string        `yaml:"host" json:"host"`
	LogPath         string        `yaml:"log_path" json:"log_path"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DatabaseConfig holds the relational store's connection settings, consumed
// by cmd/ wiring to open the *gorm.DB passed into internal/repository.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" json:"dsn"`
}

// ElasticsearchConfig holds the Search Index Abstraction's backing store
// settings — one cluster, three indices (chunks, chat messages,
// memories), named and dimensioned per this config.
type ElasticsearchConfig struct {
	Addresses        []string `yaml:"addresses" json:"addresses"`
	Username         string   `yaml:"username" json:"username"`
	Password         string   `yaml:"password" json:"password"`
	ChunkIndexName   string   `yaml:"chunk_index_name" json:"chunk_index_name"`
	MessageIndexName string   `yaml:"message_index_name" json:"message_index_name"`
	MemoryIndexName  string   `yaml:"memory_index_name" json:"memory_index_name"`
	EmbeddingDims    int      `yaml:"embedding_dims" json:"embedding_dims"`
}

// ConcurrencyConfig sizes the ants worker pool batch embedding calls fan out
// over.
type ConcurrencyConfig struct {
	EmbedPoolSize int `yaml:"embed_pool_size" json:"embed_pool_size"`
}

// StreamManagerConfig selects and configures the multi-instance event-stream
// backend StreamChat's events fan out through.
type StreamManagerConfig struct {
	Type  string      `yaml:"type" json:"type"` // "memory" or "redis"
	Redis RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig configures the redis-backed event stream.
type RedisConfig struct {
	Address  string        `yaml:"address" json:"address"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// DiversityConfig holds the "Diversity" tunable the reranking stack's
// DiversityReranker consumes.
type DiversityConfig struct {
	MinChunksPerDocument int `yaml:"min_chunks_per_document" json:"min_chunks_per_document"`
}

// Default returns the reference configuration, for use when no config file
// is present (e.g. tests, local dev).
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, Host: "0.0.0.0", ShutdownTimeout: 30 * time.Second},
		Database: DatabaseConfig{DSN: "host=localhost user=postgres dbname=anchoredrag sslmode=disable"},
		Elasticsearch: ElasticsearchConfig{
			Addresses:        []string{"http://localhost:9200"},
			ChunkIndexName:   "notebooklm-chunks",
			MessageIndexName: "notebooklm-chat-messages",
			MemoryIndexName:  "notebooklm-memories",
			EmbeddingDims:    3072,
		},
		Concurrency: ConcurrencyConfig{EmbedPoolSize: 5},
		StreamManager: StreamManagerConfig{
			Type:  "memory",
			Redis: RedisConfig{Address: "localhost:6379", Prefix: "anchoredrag:stream:", TTL: time.Hour},
		},
		Chunking:           chunker.DefaultPlaintextConfig(),
		Ingestion:          ingest.DefaultConfig(),
		Retrieval:          retriever.DefaultConfig(),
		Diversity:          DiversityConfig{MinChunksPerDocument: 2},
		QueryReformulation: reformulate.DefaultConfig(),
		Compaction:         compaction.DefaultConfig(),
		Memory:             memory.DefaultConfig(),
		Verification:       verify.DefaultVerificationConfig(),
		ConfidenceWeights:  verify.DefaultConfidenceWeights(),
		Conversation:       conversation.DefaultConfig(),
		Retry:              resilience.DefaultRetryConfig(),
		CircuitBreaker:     resilience.DefaultCircuitBreakerConfig(),
		Asynq:              AsynqConfig{Addr: "localhost:6379"},
	}
}

// Load reads config.yaml (or the environment's override), expanding
// ${ENV_VAR} references embedded in the raw file content before
// unmarshalling, so secrets (API keys, DSNs) can be injected without being
// committed to the file.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/anchoredrag/")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := Default()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read config file: %w", err)
	}

	raw, err := os.ReadFile(viper.ConfigFileUsed())
	if err != nil {
		return nil, fmt.Errorf("config: read config file content: %w", err)
	}

	envRef := regexp.MustCompile(`\$\{([^}]+)\}`)
	expanded := envRef.ReplaceAllStringFunc(string(raw), func(match string) string {
		name := match[2 : len(match)-1]
		if value := os.Getenv(name); value != "" {
			return value
		}
		return match
	})

	if err := viper.ReadConfig(strings.NewReader(expanded)); err != nil {
		return nil, fmt.Errorf("config: reparse expanded config: %w", err)
	}

	if err := viper.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("config: decode config into struct: %w", err)
	}

	return cfg, nil
}

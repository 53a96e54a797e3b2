// Command server wires every collaborator this core depends on and keeps
// the process alive until a shutdown signal arrives. There is no HTTP or
// SSE layer here (out of scope, per the module's own docs) — this binary
// exists to prove the dependency graph assembles and to run the background
// workers (document ingestion, memory extraction, compaction) that a real
// transport layer would sit in front of.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/anchoredrag/core/internal/compaction"
	"github.com/anchoredrag/core/internal/config"
	"github.com/anchoredrag/core/internal/conversation"
	"github.com/anchoredrag/core/internal/eventstream"
	"github.com/anchoredrag/core/internal/index"
	"github.com/anchoredrag/core/internal/ingest"
	"github.com/anchoredrag/core/internal/ingest/chunker"
	"github.com/anchoredrag/core/internal/lifecycle"
	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/memory"
	"github.com/anchoredrag/core/internal/models/chat"
	"github.com/anchoredrag/core/internal/models/embedding"
	modelrerank "github.com/anchoredrag/core/internal/models/rerank"
	"github.com/anchoredrag/core/internal/models/utils/ollama"
	"github.com/anchoredrag/core/internal/reformulate"
	"github.com/anchoredrag/core/internal/rerank"
	"github.com/anchoredrag/core/internal/retriever"
	"github.com/anchoredrag/core/internal/tracing"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
	"github.com/anchoredrag/core/internal/verify"
	"github.com/anchoredrag/core/internal/worker"

	"github.com/anchoredrag/core/internal/repository"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	tracer, err := tracing.InitTracer()
	if err != nil {
		log.Fatalf("init tracer: %v", err)
	}

	ctx := context.Background()
	conv, cleanup, err := build(ctx, cfg)
	if err != nil {
		log.Fatalf("build dependency graph: %v", err)
	}

	logger.Info(ctx, "anchoredrag core started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := tracer.Cleanup(shutdownCtx); err != nil {
		logger.Errorf(shutdownCtx, "tracer cleanup: %v", err)
	}
	cleanup()

	_ = conv // retained: proves StreamChat's dependency graph is fully constructed
}

// conversationCore is the subset of the built graph main needs a hook into;
// everything else (ingest pipeline, worker server) runs on its own.
type conversationCore struct {
	*conversation.Core
}

// build assembles every package's constructor into the running system,
// matching the explicit-composition style the rest of this module follows
// rather than a DI container: config.Load's Config is passed by value into
// each layer, no global state is touched.
func build(ctx context.Context, cfg *config.Config) (*conversationCore, func(), error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(
		&types.Session{}, &types.Document{}, &types.ChatMessage{}, &types.ChatSummary{}, &types.Memory{},
	); err != nil {
		return nil, nil, fmt.Errorf("automigrate: %w", err)
	}

	esClient, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	dims := cfg.Elasticsearch.EmbeddingDims
	chunkIndex := index.NewChunkIndex(esClient, cfg.Elasticsearch.ChunkIndexName, dims)
	messageIndex := index.NewChatMessageIndex(esClient, cfg.Elasticsearch.MessageIndexName, dims)
	memoryIndex := index.NewMemoryIndex(esClient, cfg.Elasticsearch.MemoryIndexName, dims)
	for _, initer := range []interface{ InitIndex(context.Context) error }{chunkIndex, messageIndex, memoryIndex} {
		if err := initer.InitIndex(ctx); err != nil {
			return nil, nil, fmt.Errorf("init index: %w", err)
		}
	}

	sessions := repository.NewSessionRepository(db)
	documents := repository.NewDocumentRepository(db)
	messages := repository.NewMessageRepository(db)
	summaries := repository.NewSummaryRepository(db)
	memories := repository.NewMemoryRepository(db)

	var ollamaService *ollama.OllamaService
	if cfg.Embedding.Source == types.ModelSourceLocal || cfg.Chat.Source == types.ModelSourceLocal {
		ollamaService, err = ollama.GetOllamaService()
		if err != nil {
			return nil, nil, fmt.Errorf("get ollama service: %w", err)
		}
	}

	embedPool, err := ants.NewPool(cfg.Concurrency.EmbedPoolSize, ants.WithPreAlloc(true))
	if err != nil {
		return nil, nil, fmt.Errorf("create embed pool: %w", err)
	}
	batchPooler := embedding.NewBatchEmbedder(embedPool)
	embedder, err := embedding.NewEmbedder(cfg.Embedding, batchPooler, ollamaService)
	if err != nil {
		return nil, nil, fmt.Errorf("create embedder: %w", err)
	}

	chatClient, err := chat.NewChat(&cfg.Chat, ollamaService)
	if err != nil {
		return nil, nil, fmt.Errorf("create chat client: %w", err)
	}
	generator := chat.NewGenerator(chatClient, nil)

	var rerankBackend interfaces.Reranker
	rerankEnabled := cfg.Reranker.Source != ""
	if rerankEnabled {
		vendorReranker, err := modelrerank.NewReranker(&cfg.Reranker)
		if err != nil {
			return nil, nil, fmt.Errorf("create reranker: %w", err)
		}
		rerankBackend = modelrerank.NewAdapter(vendorReranker)
	}
	crossEncoder := rerank.NewCrossEncoderReranker(rerankBackend, cfg.Reranker.ModelID, rerankEnabled)
	diversity := rerank.NewDiversityReranker(cfg.Diversity.MinChunksPerDocument)
	rerankStack := rerank.NewStack(crossEncoder, diversity)

	retrieverCore := retriever.New(chunkIndex, embedder, rerankStack, cfg.Retrieval)

	reformulateAgent := reformulate.NewLLMAgent(generator)
	reformulator := reformulate.New(messages, messageIndex, embedder, reformulateAgent, cfg.QueryReformulation)

	memoryAgent := memory.NewLLMExtractionAgent(generator)
	memoryExtractor := memory.NewExtractor(memories, memoryIndex, embedder, memoryAgent, cfg.Memory)
	memoryProvider := memory.NewProvider(memories, memoryIndex, embedder, cfg.Memory)

	compactor := compaction.New(messages, summaries, generator, cfg.Compaction)

	claimScorer := verify.NewLLMClaimScorer(generator)
	answerVerifier := verify.NewVerifier(claimScorer, cfg.Verification)
	tokenizer := verify.NewQueryTokenizer()

	chunkingRegistry := chunker.NewRegistry(
		chunker.NewMarkdownStrategy(),
		chunker.NewHTMLStrategy(),
		chunker.NewPlaintextStrategy(cfg.Chunking),
	)
	ingestPipeline := ingest.New(documents, chunkIndex, embedder, chunkingRegistry, cfg.Ingestion)

	lifecycleManager := lifecycle.New(sessions, chunkIndex, messageIndex, memoryIndex)
	_ = lifecycleManager // exercised by DeleteSession callers outside this binary's scope

	var streamManager eventstream.Manager
	switch cfg.StreamManager.Type {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.StreamManager.Redis.Address,
			Password: cfg.StreamManager.Redis.Password,
			DB:       cfg.StreamManager.Redis.DB,
		})
		streamManager = eventstream.NewRedisManager(redisClient, cfg.StreamManager.Redis.Prefix, cfg.StreamManager.Redis.TTL)
	default:
		streamManager = eventstream.NewMemoryManager()
	}
	_ = streamManager // handed to an out-of-scope HTTP/SSE layer via eventstream.Pump

	asynqClient := worker.NewClient(cfg.Asynq)
	queue := worker.NewQueue(asynqClient)
	handlers := worker.NewHandlers(ingestPipeline, memoryExtractor, compactor)
	asynqServer := worker.NewServer(cfg.Asynq)

	serverDone := make(chan error, 1)
	go func() { serverDone <- asynqServer.Run(handlers.Mux()) }()

	core := conversation.New(
		sessions, messages, summaries, messageIndex, embedder, generator,
		retrieverCore, reformulator, memoryProvider, queue, queue, answerVerifier, tokenizer,
		cfg.Conversation,
	)

	cleanup := func() {
		asynqServer.Shutdown()
		asynqClient.Close()
		embedPool.Release()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		select {
		case err := <-serverDone:
			if err != nil {
				log.Printf("asynq server exited with error: %v", err)
			}
		case <-time.After(5 * time.Second):
		}
	}

	return &conversationCore{Core: core}, cleanup, nil
}

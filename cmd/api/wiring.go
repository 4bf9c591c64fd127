package main

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/customHttpClient"
	"github.com/akolanti/ragstream/internal/data/redisStore"
	"github.com/akolanti/ragstream/internal/data/store"
	jobmodel "github.com/akolanti/ragstream/internal/domain/jobModel"
	"github.com/akolanti/ragstream/internal/rag/embedding"
	"github.com/akolanti/ragstream/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/ragstream/internal/rag/embedding/ollamaEmbedding"
	"github.com/akolanti/ragstream/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/ragstream/internal/rag/llm"
	"github.com/akolanti/ragstream/internal/rag/llm/gemini"
	"github.com/akolanti/ragstream/internal/rag/llm/ollamaLLM"
	"github.com/akolanti/ragstream/internal/rag/llm/openaiLLM"
	"github.com/akolanti/ragstream/internal/rag/retrieval"
	"github.com/akolanti/ragstream/internal/rag/semanticCache"
	"github.com/akolanti/ragstream/internal/rag/vectorDB"
	"github.com/akolanti/ragstream/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/ragstream/internal/rag/vectorDB/pgvectorDB"
	"github.com/akolanti/ragstream/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/ragstream/internal/settings"
	"github.com/akolanti/ragstream/pkg/logger_i"
)

const (
	providerRetries    = 2
	ensureIndexTimeout = 30 * time.Second
)

var wiringLog = logger_i.NewLogger("main")

type stores struct {
	jobs     jobmodel.JobStore
	messages jobmodel.MessageStore
	settings settings.Persister
}

// initStores prefers Redis and falls back to process memory for anything Redis cannot serve.
func initStores(ctx context.Context, env config.Env) stores {
	var s stores
	jobDB := redisStore.GetRedisStore(ctx, env, config.RedisJobStore)
	messageDB := redisStore.GetRedisStore(ctx, env, config.RedisMessageStore)
	settingsDB := redisStore.GetRedisStore(ctx, env, config.RedisSettingsStore)

	if jobDB == nil || messageDB == nil {
		wiringLog.Error("Redis stores are offline, jobs and chats are kept in memory")
		s.jobs = store.InitInMemoryJobStore()
		s.messages = store.InitMessageStore()
	} else {
		s.jobs = store.NewRedisJobStore(jobDB)
		s.messages = store.NewRedisMessageStore(messageDB)
	}
	if settingsDB != nil {
		s.settings = store.NewRedisSettingsPersister(settingsDB)
	} else {
		wiringLog.Warn("Settings changes will not survive a restart")
	}
	return s
}

type indexes struct {
	documents vectorDB.Index
	cache     vectorDB.Index
	close     func()
}

func initIndexes(ctx context.Context, env config.Env) (indexes, error) {
	dim := env.EmbeddingDimension
	switch env.VectorBackend {
	case config.BackendPgvector:
		db, err := pgvectorDB.Open(ctx, env.PostgresDSN)
		if err != nil {
			return indexes{}, err
		}
		return indexes{
			documents: pgvectorDB.NewIndex(db, config.DocumentIndexName, dim),
			cache:     pgvectorDB.NewIndex(db, config.CacheIndexName, dim),
			close:     closer("postgres", db),
		}, nil

	case config.BackendMemory:
		db, err := memoryDB.Open(env.MemoryIndexPath)
		if err != nil {
			return indexes{}, err
		}
		return indexes{
			documents: memoryDB.NewIndex(db, config.DocumentIndexName, dim),
			cache:     memoryDB.NewIndex(db, config.CacheIndexName, dim),
			close:     func() {},
		}, nil

	default:
		client, err := qdrantDB.GetQuadrantClient(ctx, env)
		if err != nil {
			return indexes{}, err
		}
		return indexes{
			documents: qdrantDB.NewIndex(client, config.DocumentIndexName, dim),
			cache:     qdrantDB.NewIndex(client, config.CacheIndexName, dim),
			close:     closer("qdrant", client),
		}, nil
	}
}

type closable interface{ Close() error }

func closer(name string, c closable) func() {
	return func() {
		if err := c.Close(); err != nil {
			wiringLog.Error("Error closing vector store", "backend", name, "error", err)
		}
	}
}

func ensureIndexes(ctx context.Context, passages *retrieval.PassageStore, cache *semanticCache.Cache) error {
	ctx, cancel := context.WithTimeout(ctx, ensureIndexTimeout)
	defer cancel()
	if err := passages.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("document index: %w", err)
	}
	if err := cache.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("cache index: %w", err)
	}
	return nil
}

func initEmbedder(ctx context.Context, env config.Env) (embedding.Embedder, error) {
	httpClient := customHttpClient.NewClient(config.EmbeddingHTTPTimeout)
	model := env.EmbeddingModelName()
	switch env.EmbeddingProvider {
	case config.ProviderOpenAI:
		return openaiEmbedding.New(openaiEmbedding.Config{
			APIKey:     env.OpenAIAPIKey,
			BaseURL:    env.OpenAIBaseURL,
			Model:      model,
			Dimension:  env.EmbeddingDimension,
			MaxRetries: providerRetries,
			HTTPClient: httpClient,
		}), nil
	case config.ProviderOllama:
		return ollamaEmbedding.New(env.OllamaServerURL, model, env.EmbeddingDimension, httpClient)
	default:
		return googleEmbedding.GetGoogleEmbeddingClient(ctx, model, env.GoogleAPIKey, env.EmbeddingDimension, httpClient)
	}
}

// initProvider uses an unbounded client, generation streams are bounded by their context.
func initProvider(ctx context.Context, env config.Env) (llm.Provider, error) {
	httpClient := customHttpClient.NewClient(0)
	switch env.GenerationProvider {
	case config.ProviderOpenAI:
		return openaiLLM.New(openaiLLM.Config{
			APIKey:     env.OpenAIAPIKey,
			BaseURL:    env.OpenAIBaseURL,
			MaxRetries: providerRetries,
			HTTPClient: httpClient,
		}), nil
	case config.ProviderOllama:
		return ollamaLLM.New(env.OllamaServerURL, httpClient)
	default:
		return gemini.GetGeminiClient(ctx, env.GoogleAPIKey, httpClient)
	}
}

// withProviderModel swaps the built in gemini model for the provider's default when the settings file
// did not pick one.
func withProviderModel(s config.Settings, provider config.ProviderName) config.Settings {
	if s.Generation.Model != config.DefaultGenerationModel {
		return s
	}
	switch provider {
	case config.ProviderOpenAI:
		s.Generation.Model = config.OpenAIModelName
	case config.ProviderOllama:
		s.Generation.Model = config.OllamaModelName
	}
	return s
}

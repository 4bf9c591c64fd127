package config

import (
	"log/slog"
	"time"
)

type traceKey string

const (
	LOG_LEVEL_PROD              = slog.LevelInfo
	TRACE_ID_KEY       traceKey = "traceId"
	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//retrieval defaults
	DefaultTopK           = 5
	DefaultScoreThreshold = 0.3

	//semantic cache defaults
	DefaultCacheEnabled             = true
	DefaultCacheSimilarityThreshold = 0.97
	DefaultCacheTTLSeconds          = 0 //0 keeps entries until an explicit flush
	CacheScanDepth                  = 5 //neighbours inspected so expired entries don't shadow live ones

	//generation defaults
	DefaultGenerationModel  = "gemini-2.5-flash-lite"
	DefaultTemperature      = 0.7
	DefaultMaxTokens        = 1024
	NoRelevantDocuments     = "No relevant documents found."
	ContextPlaceholder      = "{context}"
	DefaultSystemPrompt     = "You are a helpful assistant. Answer the user's question using only the context below. Cite sources by their label, e.g. [Source 1]. If the context does not contain the answer, say you don't know.\n\nContext:\n{context}"
	DefaultNoDocsPrompt     = "You are a helpful assistant. No documents relevant to this question were found in the knowledge base ({context}). Tell the user that, then answer from general knowledge only if you are confident, and say that the answer is not grounded in their documents."
	GenerationStreamTimeout = 2 * time.Minute

	//chunking defaults
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	//embeddings
	EmbeddingOutputDimensionality int32 = 1536
	EmbeddingBatchSize                  = 100
	GoogleEmbeddingModel                = "gemini-embedding-001"
	OpenAIEmbeddingModel                = "text-embedding-3-small"
	OllamaEmbeddingModel                = "nomic-embed-text"

	//vector indexes, the document index and the cache index are separate
	DocumentIndexName = "rag-documents"
	CacheIndexName    = "semantic-cache"

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	IngestJobTimeout                = 10 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit   = 100
	MaxUploadSize = 32 << 20 //32mb
	UploadDir     = "uploads"

	//parsing
	PageExtractTimeout = 10 * time.Second

	//vectorDB
	QdrantHost             = "localhost"
	QdrantGrpcPort         = 6334
	QdrantUseTLS           = false
	QdrantPoolSize         = 1                //2-5 is preferred for prod according to documentation
	QdrantKeepAliveTimeout = 30 * time.Second //5 * time.Minute for prod maybe- fine tune for performance

	//llm
	GeminiModelName = "gemini-2.5-flash-lite"
	OpenAIModelName = "gpt-4o-mini"
	OllamaModelName = "llama3.1"
	OllamaServerURL = "http://localhost:11434"

	EmbeddingHTTPTimeout = 30 * time.Second

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore      = 0
	RedisMessageStore  = 1
	RedisSettingsStore = 2

	//redis timeouts
	RedisJobStoreTTL     = 24 * time.Hour
	RedisMessageStoreTTL = 24 * time.Hour
	RedisSettingsKey     = "ragstream:settings"
	ChatHistoryLimit     = 10

	//observability
	EventBufferSize       = 500
	EventSubscriberBuffer = 64
)

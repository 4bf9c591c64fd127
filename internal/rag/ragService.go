package rag

import (
	"context"
	"time"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/commonModels"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/metrics"
	"github.com/akolanti/ragstream/internal/observability"
	"github.com/akolanti/ragstream/internal/rag/embedding"
	"github.com/akolanti/ragstream/internal/rag/ingest"
	"github.com/akolanti/ragstream/internal/rag/llm"
	"github.com/akolanti/ragstream/internal/rag/retrieval"
	"github.com/akolanti/ragstream/internal/rag/semanticCache"
	"github.com/akolanti/ragstream/pkg/logger_i"
)

// Service is what the transport layer and the worker pool see. The vector indexes, the cache and the
// providers stay behind it.
type Service interface {
	Answer(ctx context.Context, req AnswerRequest) (<-chan chatModel.StreamEvent, error)
	Search(ctx context.Context, query string, settings config.RetrievalSettings) ([]commonModels.Passage, error)
	Ingest(ctx context.Context, docs []commonModels.SourceDocument, settings config.IngestionSettings) []commonModels.IngestResult
	ClearDocuments(ctx context.Context) (int, error)
	CountDocuments(ctx context.Context) (int, error)
	ClearCache(ctx context.Context) (int, error)
	CountCache(ctx context.Context) (int, error)
}

// AnswerRequest carries the whole conversation and the settings snapshot taken when the request arrived.
type AnswerRequest struct {
	Messages []chatModel.Message
	Settings config.Settings
}

type PassageStore interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, passages []commonModels.StoredPassage) error
	Search(ctx context.Context, vector []float32, topK int) ([]commonModels.Passage, error)
	DeleteAll(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

type AnswerCache interface {
	EnsureIndex(ctx context.Context) error
	LookupVector(ctx context.Context, vector []float32, similarityThreshold float64) semanticCache.LookupResult
	StoreVector(ctx context.Context, prompt string, vector []float32, response string, ttl time.Duration) bool
	Clear(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

var (
	_ PassageStore = (*retrieval.PassageStore)(nil)
	_ AnswerCache  = (*semanticCache.Cache)(nil)
)

type service struct {
	embedder embedding.Embedder
	passages PassageStore
	cache    AnswerCache
	provider llm.Provider
	ingester *ingest.Pipeline
	sink     observability.Sink
	logger   *logger_i.Logger
}

func NewService(em embedding.Embedder, passages PassageStore, cache AnswerCache, provider llm.Provider, sink observability.Sink) Service {
	if sink == nil {
		sink = observability.NopSink{}
	}
	return &service{
		embedder: em,
		passages: passages,
		cache:    cache,
		provider: provider,
		ingester: ingest.NewPipeline(em, passages, sink),
		sink:     sink,
		logger:   logger_i.NewLogger("RAG Service"),
	}
}

// Answer runs embed, search, filter and cache check before returning, so those failures come back as an
// error. Once the channel is returned every outcome is an event and the channel is closed after exactly one
// terminal event, or early if ctx is cancelled.
func (s *service) Answer(ctx context.Context, req AnswerRequest) (<-chan chatModel.StreamEvent, error) {
	log := s.logger.WithTrace(ctx)
	start := time.Now()

	latest, ok := chatModel.LatestUserMessage(req.Messages)
	if !ok || latest.Content == "" {
		return nil, ragErrors.Newf(ragErrors.InvalidInput, "conversation has no user message")
	}
	settings := req.Settings

	vector, err := s.executeEmbeddingStep(ctx, log, latest.Content)
	if err != nil {
		metrics.CaptureJobMetrics("answer_error", time.Since(start))
		return nil, err
	}

	passages, err := s.executeSearchStep(ctx, log, vector, settings.Retrieval)
	if err != nil {
		metrics.CaptureJobMetrics("answer_error", time.Since(start))
		return nil, err
	}
	assembled := retrieval.BuildContext(passages)
	sources := retrieval.Sources(passages)

	if settings.Cache.Enabled {
		if hit := s.executeCacheCheckStep(ctx, log, vector, settings.Cache); hit.Hit {
			metrics.CaptureJobMetrics("answer_cached", time.Since(start))
			return cachedAnswer(sources, hit), nil
		}
	} else {
		metrics.CacheLookup("disabled")
	}

	systemPrompt := selectSystemPrompt(settings.Generation, assembled)
	stream, cancel, err := s.executeGenerationStep(ctx, log, req.Messages, systemPrompt, settings.Generation)
	if err != nil {
		metrics.CaptureJobMetrics("answer_error", time.Since(start))
		return nil, err
	}

	events := make(chan chatModel.StreamEvent, eventBuffer)
	go s.relay(ctx, relayJob{
		stream:   stream,
		cancel:   cancel,
		events:   events,
		sources:  sources,
		prompt:   latest.Content,
		vector:   vector,
		settings: settings.Cache,
		start:    start,
	})
	return events, nil
}

// Search embeds the query and returns the passages that pass the score filter.
func (s *service) Search(ctx context.Context, query string, settings config.RetrievalSettings) ([]commonModels.Passage, error) {
	if query == "" {
		return nil, ragErrors.Newf(ragErrors.InvalidInput, "query is empty")
	}
	log := s.logger.WithTrace(ctx)
	vector, err := s.executeEmbeddingStep(ctx, log, query)
	if err != nil {
		return nil, err
	}
	return s.executeSearchStep(ctx, log, vector, settings)
}

func (s *service) Ingest(ctx context.Context, docs []commonModels.SourceDocument, settings config.IngestionSettings) []commonModels.IngestResult {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	results := s.ingester.Ingest(ctx, docs, settings)
	s.warnIfCacheStale(ctx, results)
	return results
}

func (s *service) ClearDocuments(ctx context.Context) (int, error) {
	n, err := s.passages.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.WithTrace(ctx).Info("cleared document index", "removed", n)
	observability.Record(ctx, s.sink, observability.LevelInfo, observability.CategoryIngestion, "documents cleared",
		map[string]any{"removed": n})
	return n, nil
}

func (s *service) CountDocuments(ctx context.Context) (int, error) {
	return s.passages.Count(ctx)
}

func (s *service) ClearCache(ctx context.Context) (int, error) {
	return s.cache.Clear(ctx)
}

func (s *service) CountCache(ctx context.Context) (int, error) {
	return s.cache.Count(ctx)
}

// New documents do not invalidate cached answers. An administrator clears the cache when that matters.
func (s *service) warnIfCacheStale(ctx context.Context, results []commonModels.IngestResult) {
	ingested := 0
	for _, r := range results {
		if r.Status == commonModels.IngestStatusOK && r.Chunks > 0 {
			ingested++
		}
	}
	if ingested == 0 {
		return
	}
	cached, err := s.cache.Count(ctx)
	if err != nil || cached == 0 {
		return
	}
	s.logger.WithTrace(ctx).Warn("cached answers may be stale after ingestion", "cached_entries", cached)
	observability.Record(ctx, s.sink, observability.LevelWarn, observability.CategoryCache,
		"cached answers may be stale after ingestion", map[string]any{"cached_entries": cached, "documents": ingested})
}

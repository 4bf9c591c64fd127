package rag

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/commonModels"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/metrics"
	"github.com/akolanti/ragstream/internal/observability"
	"github.com/akolanti/ragstream/internal/rag/llm"
	"github.com/akolanti/ragstream/internal/rag/retrieval"
	"github.com/akolanti/ragstream/internal/rag/semanticCache"
	"github.com/akolanti/ragstream/pkg/logger_i"
)

const (
	eventBuffer       = 16
	cacheStoreTimeout = 5 * time.Second
	genericFailure    = "generation failed"
)

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, text string) ([]float32, error) {
	log.Debug("embedding query")
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		log.Error("embedding failed", "error", err)
		return nil, asKind(err, ragErrors.ProviderError, "embed query")
	}
	return vector, nil
}

func (s *service) executeSearchStep(ctx context.Context, log *logger_i.Logger, vector []float32, settings config.RetrievalSettings) ([]commonModels.Passage, error) {
	log.Debug("searching documents", "top_k", settings.TopK)
	start := time.Now()
	raw, err := s.passages.Search(ctx, vector, settings.TopK)
	metrics.CaptureExecutionMetrics("vector_search", time.Since(start))
	if err != nil {
		log.Error("vector search failed", "error", err)
		return nil, asKind(err, ragErrors.StoreError, "search documents")
	}

	filtered := retrieval.FilterByScore(raw, settings.ScoreThreshold)
	metrics.RetrievedPassages("raw", len(raw))
	metrics.RetrievedPassages("filtered", len(filtered))

	top := 0.0
	if len(raw) > 0 {
		top = raw[0].Similarity()
	}
	log.Debug("retrieval finished", "found", len(raw), "kept", len(filtered), "top_similarity", top)
	observability.Record(ctx, s.sink, observability.LevelInfo, observability.CategoryRetrieval, "passages retrieved",
		map[string]any{"found": len(raw), "kept": len(filtered), "threshold": settings.ScoreThreshold, "top_similarity": top})
	return filtered, nil
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, vector []float32, settings config.CacheSettings) semanticCache.LookupResult {
	log.Debug("checking semantic cache")
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	return s.cache.LookupVector(ctx, vector, settings.SimilarityThreshold)
}

// executeGenerationStep opens the provider stream under its own timeout. The returned cancel belongs to the
// relay goroutine.
func (s *service) executeGenerationStep(ctx context.Context, log *logger_i.Logger, messages []chatModel.Message, systemPrompt string, settings config.GenerationSettings) (llm.Stream, context.CancelFunc, error) {
	log.Debug("starting generation", "model", settings.Model)
	genCtx, cancel := context.WithTimeout(ctx, config.GenerationStreamTimeout)

	start := time.Now()
	stream, err := s.provider.StreamGenerate(genCtx, messages, systemPrompt, llm.GenerationParams{
		Model:       settings.Model,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	})
	metrics.CaptureExecutionMetrics("llm_stream_open", time.Since(start))
	if err != nil {
		cancel()
		log.Error("generation failed to start", "error", err)
		observability.Record(ctx, s.sink, observability.LevelError, observability.CategoryGeneration, "generation failed to start",
			map[string]any{"model": settings.Model, "error": err.Error()})
		return nil, nil, asKind(err, ragErrors.ProviderError, "start generation")
	}
	observability.Record(ctx, s.sink, observability.LevelInfo, observability.CategoryGeneration, "generation started",
		map[string]any{"model": settings.Model})
	return stream, cancel, nil
}

type relayJob struct {
	stream   llm.Stream
	cancel   context.CancelFunc
	events   chan<- chatModel.StreamEvent
	sources  []chatModel.SourceRef
	prompt   string
	vector   []float32
	settings config.CacheSettings
	start    time.Time
}

// relay forwards fragments as they arrive. The answer is cached only after a clean finish.
func (s *service) relay(ctx context.Context, job relayJob) {
	log := s.logger.WithTrace(ctx)
	defer close(job.events)
	defer job.cancel()
	defer func() { _ = job.stream.Close() }()

	send := func(e chatModel.StreamEvent) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case job.events <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !send(chatModel.StreamEvent{Type: chatModel.EventSources, Sources: job.sources}) {
		s.abandoned(ctx, log, 0)
		return
	}

	var answer strings.Builder
	fragments := 0
	for job.stream.Next() {
		fragment := job.stream.Fragment()
		answer.WriteString(fragment)
		fragments++
		metrics.GenerationFragment()
		if !send(chatModel.StreamEvent{Type: chatModel.EventToken, Content: fragment}) {
			s.abandoned(ctx, log, fragments)
			return
		}
	}

	if err := job.stream.Err(); err != nil {
		if ctx.Err() != nil {
			s.abandoned(ctx, log, fragments)
			return
		}
		log.Error("generation failed mid-stream", "error", err, "fragments", fragments)
		observability.Record(ctx, s.sink, observability.LevelError, observability.CategoryGeneration, "generation failed",
			map[string]any{"fragments": fragments, "error": err.Error()})
		metrics.CaptureJobMetrics("answer_error", time.Since(job.start))
		send(chatModel.StreamEvent{Type: chatModel.EventError, Error: genericFailure})
		return
	}

	log.Info("generation finished", "fragments", fragments, "duration", time.Since(job.start))
	observability.Record(ctx, s.sink, observability.LevelInfo, observability.CategoryGeneration, "generation finished",
		map[string]any{"fragments": fragments, "chars": answer.Len()})
	metrics.CaptureJobMetrics("answer_generated", time.Since(job.start))
	if !send(chatModel.StreamEvent{Type: chatModel.EventDone}) {
		s.abandoned(ctx, log, fragments)
		return
	}

	if job.settings.Enabled && answer.Len() > 0 {
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheStoreTimeout)
		defer cancel()
		ttl := time.Duration(job.settings.TTLSeconds) * time.Second
		s.cache.StoreVector(storeCtx, job.prompt, job.vector, answer.String(), ttl)
	}
}

func (s *service) abandoned(ctx context.Context, log *logger_i.Logger, fragments int) {
	log.Warn("client went away, generation cancelled", "fragments", fragments)
	observability.Record(ctx, s.sink, observability.LevelWarn, observability.CategoryGeneration, "generation cancelled",
		map[string]any{"fragments": fragments})
}

func cachedAnswer(sources []chatModel.SourceRef, hit semanticCache.LookupResult) <-chan chatModel.StreamEvent {
	events := make(chan chatModel.StreamEvent, 3)
	events <- chatModel.StreamEvent{Type: chatModel.EventSources, Sources: sources}
	events <- chatModel.StreamEvent{Type: chatModel.EventCached, Content: hit.Response, Similarity: hit.Similarity}
	events <- chatModel.StreamEvent{Type: chatModel.EventDone}
	close(events)
	return events
}

func selectSystemPrompt(settings config.GenerationSettings, assembled string) string {
	template := settings.SystemPromptTemplate
	if retrieval.IsNoDocuments(assembled) {
		template = settings.NoDocsPromptTemplate
	}
	return strings.ReplaceAll(template, config.ContextPlaceholder, assembled)
}

// asKind keeps an existing kind and tags anything untyped with fallback.
func asKind(err error, fallback ragErrors.Kind, op string) error {
	if ragErrors.KindOf(err) != ragErrors.Unknown {
		return err
	}
	return ragErrors.New(fallback, op, err)
}

package semanticCache

import (
	"context"
	"strconv"
	"time"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/metrics"
	"github.com/akolanti/ragstream/internal/observability"
	"github.com/akolanti/ragstream/internal/rag/embedding"
	"github.com/akolanti/ragstream/internal/rag/vectorDB"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/google/uuid"
)

var logger = logger_i.NewLogger("SemanticCache")

const (
	responseKey  = "response"
	timestampKey = "timestamp"
	expiresAtKey = "expires_at"
)

// CacheEntry is one stored prompt and its answer. A zero TTL never expires.
type CacheEntry struct {
	Id        string
	Prompt    string
	Response  string
	Embedding []float32
	Timestamp time.Time
	TTL       time.Duration
}

func (e CacheEntry) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.Timestamp.Add(e.TTL)
}

type LookupResult struct {
	Hit        bool
	Response   string
	Prompt     string
	Similarity float64
}

// Cache keys answers by the embedding of the prompt alone, so two prompts worded alike share an answer
// even when retrieval would have found different passages.
type Cache struct {
	index    vectorDB.Index
	embedder embedding.Embedder
	sink     observability.Sink
	now      func() time.Time
}

func New(index vectorDB.Index, embedder embedding.Embedder, sink observability.Sink) *Cache {
	if sink == nil {
		sink = observability.NopSink{}
	}
	return &Cache{
		index:    index,
		embedder: embedder,
		sink:     sink,
		now:      time.Now,
	}
}

func (c *Cache) EnsureIndex(ctx context.Context) error {
	return c.index.EnsureIndex(ctx)
}

// Admits reports whether a neighbour at distance is close enough for a similarity threshold. The
// boundary is inclusive.
func Admits(distance, similarityThreshold float64) bool {
	return vectorDB.WithinDistance(distance, 1-similarityThreshold)
}

// Lookup embeds prompt and looks for a cached answer. Failures are reported and treated as a miss.
func (c *Cache) Lookup(ctx context.Context, prompt string, similarityThreshold float64) LookupResult {
	vector, err := c.embedder.Embed(ctx, prompt)
	if err != nil {
		c.fail(ctx, "cache lookup embedding failed", err)
		return LookupResult{}
	}
	return c.LookupVector(ctx, vector, similarityThreshold)
}

// LookupVector checks the nearest live entries to an already embedded prompt. Expired entries found on
// the way are skipped and removed.
func (c *Cache) LookupVector(ctx context.Context, vector []float32, similarityThreshold float64) LookupResult {
	log := logger.WithTrace(ctx)

	matches, err := c.index.Search(ctx, vector, config.CacheScanDepth)
	if err != nil {
		c.fail(ctx, "cache lookup failed", err)
		return LookupResult{}
	}

	now := c.now()
	var expired []string
	result := LookupResult{}
	for _, m := range matches {
		if isExpired(m.Payload, now) {
			expired = append(expired, m.Id)
			continue
		}
		// matches are sorted, the first live one decides
		result.Similarity = 1 - m.Distance
		if Admits(m.Distance, similarityThreshold) {
			result.Hit = true
			result.Response = m.Payload[responseKey]
			result.Prompt = m.Payload[vectorDB.ContentKey]
		}
		break
	}

	if len(expired) > 0 {
		if err := c.index.Delete(ctx, expired...); err != nil {
			log.Warn("could not evict expired cache entries", "error", err)
		} else {
			log.Debug("evicted expired cache entries", "count", len(expired))
		}
	}

	if result.Hit {
		metrics.CacheLookup("hit")
		log.Info("cache hit", "similarity", result.Similarity)
		observability.Record(ctx, c.sink, observability.LevelInfo, observability.CategoryCache, "cache hit",
			map[string]any{"similarity": result.Similarity, "threshold": similarityThreshold})
		return result
	}

	metrics.CacheLookup("miss")
	log.Debug("cache miss", "nearest_similarity", result.Similarity)
	observability.Record(ctx, c.sink, observability.LevelInfo, observability.CategoryCache, "cache miss",
		map[string]any{"nearest_similarity": result.Similarity, "threshold": similarityThreshold})
	return LookupResult{Similarity: result.Similarity}
}

// Store embeds prompt and saves the answer. It reports whether the entry was written, failures are only
// logged.
func (c *Cache) Store(ctx context.Context, prompt, response string, ttl time.Duration) bool {
	vector, err := c.embedder.Embed(ctx, prompt)
	if err != nil {
		c.failStore(ctx, err)
		return false
	}
	return c.StoreVector(ctx, prompt, vector, response, ttl)
}

func (c *Cache) StoreVector(ctx context.Context, prompt string, vector []float32, response string, ttl time.Duration) bool {
	entry := CacheEntry{
		Id:        uuid.NewString(),
		Prompt:    prompt,
		Response:  response,
		Embedding: vector,
		Timestamp: c.now().UTC(),
		TTL:       ttl,
	}
	if err := c.index.Upsert(ctx, []vectorDB.Point{toPoint(entry)}); err != nil {
		c.failStore(ctx, err)
		return false
	}

	metrics.CacheStore("ok")
	logger.WithTrace(ctx).Debug("stored answer in cache", "id", entry.Id, "ttl", ttl)
	observability.Record(ctx, c.sink, observability.LevelInfo, observability.CategoryCache, "cache entry stored",
		map[string]any{"id": entry.Id, "ttl_seconds": int(ttl.Seconds())})
	return true
}

// Clear removes every entry and reports how many there were.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	n, err := c.index.DeleteAll(ctx)
	if err != nil {
		return 0, ragErrors.New(ragErrors.CacheError, "clear cache", err)
	}
	observability.Record(ctx, c.sink, observability.LevelInfo, observability.CategoryCache, "cache cleared",
		map[string]any{"removed": n})
	return n, nil
}

func (c *Cache) Count(ctx context.Context) (int, error) {
	return c.index.Count(ctx)
}

func (c *Cache) fail(ctx context.Context, msg string, err error) {
	err = ragErrors.New(ragErrors.CacheError, "lookup", err)
	metrics.CacheLookup("error")
	logger.WithTrace(ctx).Warn(msg, "error", err)
	observability.Record(ctx, c.sink, observability.LevelWarn, observability.CategoryCache, msg,
		map[string]any{"error": err.Error()})
}

func (c *Cache) failStore(ctx context.Context, err error) {
	err = ragErrors.New(ragErrors.CacheError, "store", err)
	metrics.CacheStore("error")
	logger.WithTrace(ctx).Warn("cache store failed", "error", err)
	observability.Record(ctx, c.sink, observability.LevelWarn, observability.CategoryCache, "cache store failed",
		map[string]any{"error": err.Error()})
}

func toPoint(e CacheEntry) vectorDB.Point {
	payload := map[string]string{
		vectorDB.ContentKey: e.Prompt,
		responseKey:         e.Response,
		timestampKey:        e.Timestamp.Format(time.RFC3339Nano),
	}
	if exp := e.ExpiresAt(); !exp.IsZero() {
		payload[expiresAtKey] = strconv.FormatInt(exp.UnixNano(), 10)
	}
	return vectorDB.Point{Id: e.Id, Vector: e.Embedding, Payload: payload}
}

func isExpired(payload map[string]string, now time.Time) bool {
	raw, ok := payload[expiresAtKey]
	if !ok || raw == "" {
		return false
	}
	exp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return !now.Before(time.Unix(0, exp))
}

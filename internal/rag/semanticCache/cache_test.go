package semanticCache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/observability"
	"github.com/akolanti/ragstream/internal/rag/vectorDB"
	"github.com/akolanti/ragstream/internal/rag/vectorDB/memoryDB"
	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f fakeEmbedder) Dimension() int { return 3 }

type stubIndex struct {
	matches   []vectorDB.Match
	searchErr error
	upsertErr error
	deleted   []string
}

func (s *stubIndex) Name() string                      { return "stub" }
func (s *stubIndex) EnsureIndex(context.Context) error { return nil }
func (s *stubIndex) Upsert(context.Context, []vectorDB.Point) error {
	return s.upsertErr
}
func (s *stubIndex) Search(context.Context, []float32, int) ([]vectorDB.Match, error) {
	return s.matches, s.searchErr
}
func (s *stubIndex) Delete(_ context.Context, ids ...string) error {
	s.deleted = append(s.deleted, ids...)
	return nil
}
func (s *stubIndex) DeleteAll(context.Context) (int, error) { return len(s.matches), s.searchErr }
func (s *stubIndex) Count(context.Context) (int, error)     { return len(s.matches), nil }

type recordingSink struct {
	events []observability.Event
}

func (r *recordingSink) Publish(e observability.Event) { r.events = append(r.events, e) }

func (r *recordingSink) levels() []observability.Level {
	var out []observability.Level
	for _, e := range r.events {
		out = append(out, e.Level)
	}
	return out
}

var embedder = fakeEmbedder{vectors: map[string][]float32{
	"What color is the sky?":   {1, 0, 0},
	"what colour is the sky":   {0.99, 0.1, 0},
	"How do plants get water?": {0, 1, 0},
}}

func newMemoryCache(t *testing.T) *Cache {
	t.Helper()
	return New(memoryDB.NewIndex(chromem.NewDB(), "semantic-cache", 3), embedder, nil)
}

func TestAdmits(t *testing.T) {
	assert.True(t, Admits(0.25, 0.75))
	assert.False(t, Admits(0.25001, 0.75))
	assert.True(t, Admits(0, 1))
	assert.True(t, Admits(1.1920929e-07, 1))
	assert.False(t, Admits(0.0001, 1))
	assert.True(t, Admits(1, 0))
}

func TestCacheExactPromptHitsAtFullThreshold(t *testing.T) {
	ctx := context.Background()
	prompts := map[string][]float32{
		"a": {0.3, 0.5, 0.7},
		"b": {0.11, 0.23, 0.97},
		"c": {0.61, 0.29, 0.41},
		"d": {0.7, 0.7, 0.1},
	}
	cache := New(memoryDB.NewIndex(chromem.NewDB(), "semantic-cache", 3), fakeEmbedder{vectors: prompts}, nil)

	for prompt := range prompts {
		require.True(t, cache.Store(ctx, prompt, "answer "+prompt, 0))
	}
	for prompt := range prompts {
		res := cache.Lookup(ctx, prompt, 1)
		assert.True(t, res.Hit, "prompt %s", prompt)
		assert.Equal(t, "answer "+prompt, res.Response)
		assert.LessOrEqual(t, res.Similarity, 1.0)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache(t)
	require.NoError(t, cache.EnsureIndex(ctx))

	assert.False(t, cache.Lookup(ctx, "What color is the sky?", 0.97).Hit)

	require.True(t, cache.Store(ctx, "What color is the sky?", "Blue [Source 1].", 0))

	res := cache.Lookup(ctx, "What color is the sky?", 0.97)
	assert.True(t, res.Hit)
	assert.Equal(t, "Blue [Source 1].", res.Response)
	assert.Equal(t, "What color is the sky?", res.Prompt)
	assert.InDelta(t, 1, res.Similarity, 1e-5)

	assert.True(t, cache.Lookup(ctx, "what colour is the sky", 0.97).Hit)
	assert.False(t, cache.Lookup(ctx, "How do plants get water?", 0.97).Hit)
}

func TestCacheDuplicatesAllowed(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache(t)

	require.True(t, cache.Store(ctx, "What color is the sky?", "Blue.", 0))
	require.True(t, cache.Store(ctx, "What color is the sky?", "Blue.", 0))

	n, err := cache.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, cache.Lookup(ctx, "What color is the sky?", 0.97).Hit)

	removed, err := cache.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.False(t, cache.Lookup(ctx, "What color is the sky?", 0.97).Hit)
}

func TestCacheThresholdBoundary(t *testing.T) {
	ctx := context.Background()

	at := &stubIndex{matches: []vectorDB.Match{{Id: "a", Distance: 0.25, Payload: map[string]string{responseKey: "cached"}}}}
	res := New(at, embedder, nil).LookupVector(ctx, []float32{1, 0, 0}, 0.75)
	assert.True(t, res.Hit)
	assert.Equal(t, "cached", res.Response)

	outside := &stubIndex{matches: []vectorDB.Match{{Id: "a", Distance: 0.25001, Payload: map[string]string{responseKey: "cached"}}}}
	res = New(outside, embedder, nil).LookupVector(ctx, []float32{1, 0, 0}, 0.75)
	assert.False(t, res.Hit)
	assert.Empty(t, res.Response)
}

func TestCacheEmptyIndexIsMiss(t *testing.T) {
	sink := &recordingSink{}
	cache := New(&stubIndex{}, embedder, sink)

	res := cache.Lookup(context.Background(), "anything", 0)
	assert.False(t, res.Hit)
	assert.Equal(t, []observability.Level{observability.LevelInfo}, sink.levels())
}

func TestCacheTTL(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache(t)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return start }

	require.True(t, cache.Store(ctx, "What color is the sky?", "Blue.", time.Minute))
	assert.True(t, cache.Lookup(ctx, "What color is the sky?", 0.97).Hit)

	cache.now = func() time.Time { return start.Add(time.Minute) }
	assert.False(t, cache.Lookup(ctx, "What color is the sky?", 0.97).Hit)

	n, err := cache.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCacheExpiredEntriesDoNotShadowLiveOnes(t *testing.T) {
	now := time.Now()
	past := strconv.FormatInt(now.Add(-time.Second).UnixNano(), 10)
	idx := &stubIndex{matches: []vectorDB.Match{
		{Id: "old", Distance: 0, Payload: map[string]string{responseKey: "stale", expiresAtKey: past}},
		{Id: "live", Distance: 0.01, Payload: map[string]string{responseKey: "fresh"}},
	}}
	cache := New(idx, embedder, nil)
	cache.now = func() time.Time { return now }

	res := cache.LookupVector(context.Background(), []float32{1, 0, 0}, 0.95)
	assert.True(t, res.Hit)
	assert.Equal(t, "fresh", res.Response)
	assert.Equal(t, []string{"old"}, idx.deleted)
}

func TestCacheFailuresAreRecovered(t *testing.T) {
	ctx := context.Background()

	t.Run("search error is a miss", func(t *testing.T) {
		sink := &recordingSink{}
		cache := New(&stubIndex{searchErr: errors.New("unreachable")}, embedder, sink)
		assert.False(t, cache.Lookup(ctx, "What color is the sky?", 0.5).Hit)
		assert.Equal(t, []observability.Level{observability.LevelWarn}, sink.levels())
	})

	t.Run("embedding error is a miss", func(t *testing.T) {
		cache := New(&stubIndex{}, fakeEmbedder{err: errors.New("quota")}, nil)
		assert.False(t, cache.Lookup(ctx, "What color is the sky?", 0.5).Hit)
		assert.False(t, cache.Store(ctx, "What color is the sky?", "Blue.", 0))
	})

	t.Run("upsert error is swallowed", func(t *testing.T) {
		sink := &recordingSink{}
		cache := New(&stubIndex{upsertErr: errors.New("disk full")}, embedder, sink)
		assert.False(t, cache.Store(ctx, "What color is the sky?", "Blue.", 0))
		require.Len(t, sink.events, 1)
		assert.Equal(t, observability.LevelWarn, sink.events[0].Level)
		assert.Equal(t, observability.CategoryCache, sink.events[0].Category)
	})

	t.Run("clear error is a cache error", func(t *testing.T) {
		cache := New(&stubIndex{searchErr: errors.New("unreachable")}, embedder, nil)
		_, err := cache.Clear(ctx)
		assert.True(t, ragErrors.Is(err, ragErrors.CacheError))
	})
}

func TestCacheEntryExpiresAt(t *testing.T) {
	ts := time.Unix(100, 0)
	assert.True(t, CacheEntry{Timestamp: ts}.ExpiresAt().IsZero())
	assert.Equal(t, ts.Add(time.Hour), CacheEntry{Timestamp: ts, TTL: time.Hour}.ExpiresAt())

	p := toPoint(CacheEntry{Id: "x", Prompt: "p", Response: "r", Timestamp: ts, TTL: time.Second})
	assert.Equal(t, "p", p.Payload[vectorDB.ContentKey])
	assert.True(t, isExpired(p.Payload, ts.Add(time.Second)))
	assert.False(t, isExpired(p.Payload, ts))
}

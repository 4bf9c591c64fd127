package rag_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/commonModels"
	"github.com/akolanti/ragstream/internal/observability"
	"github.com/akolanti/ragstream/internal/rag/llm"
	"github.com/akolanti/ragstream/internal/rag/semanticCache"
)

var vocabulary = []string{"sky", "grass", "cat"}

// keywordVector gives texts sharing a vocabulary word a high cosine similarity. The constant last
// component keeps every vector non-zero.
func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(vocabulary)+1)
	for i, word := range vocabulary {
		v[i] = float32(strings.Count(lower, word))
	}
	v[len(vocabulary)] = 0.1
	return v
}

const dimension = 4

// MockEmbedder implements embedding.Embedder
type MockEmbedder struct {
	OnEmbed      func(ctx context.Context, text string) ([]float32, error)
	OnEmbedBatch func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.OnEmbed != nil {
		return m.OnEmbed(ctx, text)
	}
	return keywordVector(text), nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.OnEmbedBatch != nil {
		return m.OnEmbedBatch(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = keywordVector(t)
	}
	return out, nil
}

func (m *MockEmbedder) Dimension() int { return dimension }

// SliceStream replays fixed fragments, then fails with Failure if set.
type SliceStream struct {
	Fragments []string
	Failure   error
	pos       int
	closed    bool
}

func (s *SliceStream) Next() bool {
	if s.closed || s.pos >= len(s.Fragments) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceStream) Fragment() string { return s.Fragments[s.pos-1] }

func (s *SliceStream) Err() error {
	if s.pos >= len(s.Fragments) {
		return s.Failure
	}
	return nil
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// MockLLM implements llm.Provider and remembers the last system prompt it was given.
type MockLLM struct {
	OnStreamGenerate func(ctx context.Context, messages []chatModel.Message, systemPrompt string, params llm.GenerationParams) (llm.Stream, error)

	mu               sync.Mutex
	Calls            int
	LastSystemPrompt string
}

func (m *MockLLM) StreamGenerate(ctx context.Context, messages []chatModel.Message, systemPrompt string, params llm.GenerationParams) (llm.Stream, error) {
	m.mu.Lock()
	m.Calls++
	m.LastSystemPrompt = systemPrompt
	m.mu.Unlock()
	if m.OnStreamGenerate != nil {
		return m.OnStreamGenerate(ctx, messages, systemPrompt, params)
	}
	return &SliceStream{Fragments: []string{"The sky is blue ", "[Source 1]."}}, nil
}

// MockCache implements rag.AnswerCache and counts every call.
type MockCache struct {
	OnLookupVector func(ctx context.Context, vector []float32, threshold float64) semanticCache.LookupResult
	OnStoreVector  func(ctx context.Context, prompt string, vector []float32, response string, ttl time.Duration) bool

	mu      sync.Mutex
	Lookups int
	Stores  int
}

func (m *MockCache) EnsureIndex(ctx context.Context) error { return nil }

func (m *MockCache) LookupVector(ctx context.Context, vector []float32, threshold float64) semanticCache.LookupResult {
	m.mu.Lock()
	m.Lookups++
	m.mu.Unlock()
	if m.OnLookupVector != nil {
		return m.OnLookupVector(ctx, vector, threshold)
	}
	return semanticCache.LookupResult{}
}

func (m *MockCache) StoreVector(ctx context.Context, prompt string, vector []float32, response string, ttl time.Duration) bool {
	m.mu.Lock()
	m.Stores++
	m.mu.Unlock()
	if m.OnStoreVector != nil {
		return m.OnStoreVector(ctx, prompt, vector, response, ttl)
	}
	return true
}

func (m *MockCache) Clear(ctx context.Context) (int, error) { return 0, nil }
func (m *MockCache) Count(ctx context.Context) (int, error) { return 0, nil }

func (m *MockCache) Counts() (lookups, stores int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Lookups, m.Stores
}

// MockPassageStore implements rag.PassageStore
type MockPassageStore struct {
	OnSearch func(ctx context.Context, vector []float32, topK int) ([]commonModels.Passage, error)
}

func (m *MockPassageStore) EnsureIndex(ctx context.Context) error { return nil }
func (m *MockPassageStore) Upsert(ctx context.Context, passages []commonModels.StoredPassage) error {
	return nil
}
func (m *MockPassageStore) Search(ctx context.Context, vector []float32, topK int) ([]commonModels.Passage, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, vector, topK)
	}
	return nil, nil
}
func (m *MockPassageStore) DeleteAll(ctx context.Context) (int, error) { return 0, nil }
func (m *MockPassageStore) Count(ctx context.Context) (int, error)     { return 0, nil }

// RecordingSink keeps every published event.
type RecordingSink struct {
	mu     sync.Mutex
	events []observability.Event
}

func (r *RecordingSink) Publish(e observability.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *RecordingSink) Find(level observability.Level, category observability.Category) []observability.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []observability.Event
	for _, e := range r.events {
		if e.Level == level && e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

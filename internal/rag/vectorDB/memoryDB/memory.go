package memoryDB

import (
	"context"
	"errors"
	"sync"

	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag/vectorDB"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/philippgille/chromem-go"
)

var logger = logger_i.NewLogger("MemoryIndex")

var errNoEmbedding = errors.New("memory index only accepts precomputed vectors")

// Open returns an in-process database. An empty path keeps everything in memory, otherwise chromem
// persists each collection as gob files below path.
func Open(path string) (*chromem.DB, error) {
	if path == "" {
		return chromem.NewDB(), nil
	}
	db, err := chromem.NewPersistentDB(path, true)
	if err != nil {
		return nil, ragErrors.New(ragErrors.StoreError, "open chromem", err)
	}
	return db, nil
}

// Index is one chromem collection. Vectors always come from the embedding gateway, so the collection's
// embedding func refuses to run.
type Index struct {
	db        *chromem.DB
	name      string
	dimension int
	log       *logger_i.Logger

	mu         sync.RWMutex
	collection *chromem.Collection
}

func NewIndex(db *chromem.DB, name string, dimension int) *Index {
	return &Index{
		db:        db,
		name:      name,
		dimension: dimension,
		log:       logger.With("collection", name),
	}
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedding
}

func (m *Index) Name() string {
	return m.name
}

func (m *Index) EnsureIndex(ctx context.Context) error {
	_, err := m.ensure()
	return err
}

func (m *Index) ensure() (*chromem.Collection, error) {
	m.mu.RLock()
	c := m.collection
	m.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLocked()
}

// acquire returns the live collection with the read lock held. Callers must call release when done.
func (m *Index) acquire() (c *chromem.Collection, release func(), err error) {
	if _, err := m.ensure(); err != nil {
		return nil, nil, err
	}
	m.mu.RLock()
	if m.collection == nil {
		m.mu.RUnlock()
		return nil, nil, ragErrors.New(ragErrors.StoreError, "acquire collection", errors.New("collection dropped concurrently"))
	}
	return m.collection, m.mu.RUnlock, nil
}

// ensureLocked expects mu to be held for writing.
func (m *Index) ensureLocked() (*chromem.Collection, error) {
	if m.collection != nil {
		return m.collection, nil
	}
	if m.name == "" {
		return nil, ragErrors.New(ragErrors.StoreError, "ensure index", errors.New("empty collection name"))
	}
	c, err := m.db.GetOrCreateCollection(m.name, nil, refuseEmbedding)
	if err != nil {
		return nil, ragErrors.New(ragErrors.StoreError, "chromem get or create collection", err)
	}
	m.collection = c
	return c, nil
}

// Upsert validates every point before writing any of them.
func (m *Index) Upsert(ctx context.Context, points []vectorDB.Point) error {
	if len(points) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != m.dimension {
			return ragErrors.Newf(ragErrors.StoreError, "chromem upsert: point %s has dimension %d, want %d", p.Id, len(p.Vector), m.dimension)
		}
		docs = append(docs, chromem.Document{
			ID:        p.Id,
			Metadata:  p.Payload,
			Embedding: p.Vector,
			Content:   p.Payload[vectorDB.ContentKey],
		})
	}

	c, release, err := m.acquire()
	if err != nil {
		return err
	}
	defer release()
	if err := c.AddDocuments(ctx, docs, 1); err != nil {
		m.log.WithTrace(ctx).Error("chromem upsert failed", "error", err)
		return ragErrors.New(ragErrors.StoreError, "chromem upsert", err)
	}
	return nil
}

func (m *Index) Search(ctx context.Context, vector []float32, topK int) ([]vectorDB.Match, error) {
	if topK <= 0 {
		return []vectorDB.Match{}, nil
	}
	c, release, err := m.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	// chromem refuses nResults above the collection size
	n := min(topK, c.Count())
	if n == 0 {
		return []vectorDB.Match{}, nil
	}
	results, err := c.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		m.log.WithTrace(ctx).Error("chromem query failed", "error", err)
		return nil, ragErrors.New(ragErrors.StoreError, "chromem query", err)
	}
	return toMatches(results), nil
}

func (m *Index) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	c, release, err := m.acquire()
	if err != nil {
		return err
	}
	defer release()
	if err := c.Delete(ctx, nil, nil, ids...); err != nil {
		return ragErrors.New(ragErrors.StoreError, "chromem delete", err)
	}
	return nil
}

// DeleteAll drops the collection and creates an empty one under the same name. The write lock is held
// throughout so no upsert lands in the dropped collection.
func (m *Index) DeleteAll(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.ensureLocked()
	if err != nil {
		return 0, err
	}
	count := c.Count()
	if err := m.db.DeleteCollection(m.name); err != nil {
		return 0, ragErrors.New(ragErrors.StoreError, "chromem delete collection", err)
	}
	m.collection = nil
	if _, err := m.ensureLocked(); err != nil {
		return count, err
	}
	m.log.WithTrace(ctx).Info("cleared collection", "removed", count)
	return count, nil
}

func (m *Index) Count(ctx context.Context) (int, error) {
	c, release, err := m.acquire()
	if err != nil {
		return 0, err
	}
	defer release()
	return c.Count(), nil
}

func toMatches(results []chromem.Result) []vectorDB.Match {
	matches := make([]vectorDB.Match, 0, len(results))
	for _, r := range results {
		payload := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			payload[k] = v
		}
		matches = append(matches, vectorDB.Match{
			Id:       r.ID,
			Payload:  payload,
			Distance: vectorDB.DistanceFromSimilarity(r.Similarity),
		})
	}
	vectorDB.SortByDistance(matches)
	return matches
}

package retrieval

import (
	"context"
	"strconv"

	"github.com/akolanti/ragstream/internal/domain/commonModels"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag/vectorDB"
	"github.com/google/uuid"
)

const (
	filenameKey    = "filename"
	chunkIndexKey  = "chunk_index"
	totalChunksKey = "total_chunks"
)

// PassageStore maps passages onto a vector index. Every embedding it accepts or searches with has the
// same dimension.
type PassageStore struct {
	index     vectorDB.Index
	dimension int
}

func NewPassageStore(index vectorDB.Index, dimension int) *PassageStore {
	return &PassageStore{index: index, dimension: dimension}
}

func (s *PassageStore) EnsureIndex(ctx context.Context) error {
	return s.index.EnsureIndex(ctx)
}

// Upsert writes passages, generating ids for those without one.
func (s *PassageStore) Upsert(ctx context.Context, passages []commonModels.StoredPassage) error {
	points := make([]vectorDB.Point, 0, len(passages))
	for i := range passages {
		p := &passages[i]
		if len(p.Embedding) != s.dimension {
			return ragErrors.Newf(ragErrors.StoreError, "passage %d of %s: embedding dimension %d, want %d",
				p.Metadata.ChunkIndex, p.Metadata.Filename, len(p.Embedding), s.dimension)
		}
		if p.Id == "" {
			p.Id = uuid.NewString()
		}
		points = append(points, vectorDB.Point{
			Id:      p.Id,
			Vector:  p.Embedding,
			Payload: toPayload(*p),
		})
	}
	return s.index.Upsert(ctx, points)
}

// Search returns up to topK passages ordered by ascending distance.
func (s *PassageStore) Search(ctx context.Context, vector []float32, topK int) ([]commonModels.Passage, error) {
	if len(vector) != s.dimension {
		return nil, ragErrors.Newf(ragErrors.ProviderError, "query embedding dimension %d, want %d", len(vector), s.dimension)
	}
	matches, err := s.index.Search(ctx, vector, topK)
	if err != nil {
		if ragErrors.KindOf(err) == ragErrors.Unknown {
			return nil, ragErrors.New(ragErrors.StoreError, "search "+s.index.Name(), err)
		}
		return nil, err
	}
	passages := make([]commonModels.Passage, len(matches))
	for i, m := range matches {
		passages[i] = fromMatch(m)
	}
	return passages, nil
}

func (s *PassageStore) DeleteAll(ctx context.Context) (int, error) {
	return s.index.DeleteAll(ctx)
}

func (s *PassageStore) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

func toPayload(p commonModels.StoredPassage) map[string]string {
	return map[string]string{
		vectorDB.ContentKey: p.Content,
		filenameKey:         p.Metadata.Filename,
		chunkIndexKey:       strconv.Itoa(p.Metadata.ChunkIndex),
		totalChunksKey:      strconv.Itoa(p.Metadata.TotalChunks),
	}
}

func fromMatch(m vectorDB.Match) commonModels.Passage {
	idx, _ := strconv.Atoi(m.Payload[chunkIndexKey])
	return commonModels.Passage{
		Id:         m.Id,
		Content:    m.Payload[vectorDB.ContentKey],
		Filename:   m.Payload[filenameKey],
		ChunkIndex: idx,
		Distance:   m.Distance,
	}
}

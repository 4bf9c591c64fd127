package vectorDB

import (
	"context"
	"sort"
)

// ContentKey is the payload field holding the indexed text, shared by passages and cache entries.
const ContentKey = "content"

// Point is one vector with a flat string payload. Ids are UUID strings.
type Point struct {
	Id      string
	Vector  []float32
	Payload map[string]string
}

// Match is a search hit. Distance is cosine distance (1 - cosine similarity), lower is closer.
type Match struct {
	Id       string
	Payload  map[string]string
	Distance float64
}

// Index is one named vector index. The document store and the semantic cache each get their own instance.
type Index interface {
	Name() string
	// EnsureIndex creates the index if it is absent. An existing index is never recreated or migrated.
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, points []Point) error
	// Search returns at most topK matches sorted by ascending distance. An empty index yields no matches.
	Search(ctx context.Context, vector []float32, topK int) ([]Match, error)
	Delete(ctx context.Context, ids ...string) error
	// DeleteAll empties the index and reports how many points were removed.
	DeleteAll(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

// ScoreTolerance absorbs the float32 rounding stores apply to cosine scores, so identical vectors still
// meet a threshold of 1.
const ScoreTolerance = 1e-6

// DistanceFromSimilarity converts a cosine similarity score, as reported by stores that rank by score.
func DistanceFromSimilarity(similarity float32) float64 {
	return ClampDistance(1 - float64(similarity))
}

// ClampDistance keeps a cosine distance within [0,2].
func ClampDistance(distance float64) float64 {
	return min(max(distance, 0), 2)
}

// WithinDistance reports distance <= maxDistance, tolerating store rounding.
func WithinDistance(distance, maxDistance float64) bool {
	return distance <= maxDistance+ScoreTolerance
}

// MeetsSimilarity reports similarity >= threshold, tolerating store rounding.
func MeetsSimilarity(similarity, threshold float64) bool {
	return similarity >= threshold-ScoreTolerance
}

func SortByDistance(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
}

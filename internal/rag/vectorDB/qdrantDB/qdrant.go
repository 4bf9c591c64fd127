package qdrantDB

import (
	"context"
	"errors"
	"sync"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag/vectorDB"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	logger           = logger_i.NewLogger("Qdrant")
	quadrantInstance *qdrant.Client
	once             sync.Once
	clientErr        error
)

// GetQuadrantClient returns the process wide client, closed when ctx is done.
func GetQuadrantClient(ctx context.Context, env config.Env) (*qdrant.Client, error) {
	once.Do(func() {
		client, err := qdrant.NewClient(&qdrant.Config{
			Host:     env.QdrantHost,
			Port:     env.QdrantPort,
			APIKey:   env.QdrantAPIKey,
			UseTLS:   config.QdrantUseTLS,
			PoolSize: uint(config.QdrantPoolSize),
		})
		if err != nil {
			logger.Error("could not instantiate", "error", err)
			clientErr = err
			return
		}
		quadrantInstance = client
		go closeQdrant(ctx, client)
	})
	if quadrantInstance == nil {
		return nil, clientErr
	}
	return quadrantInstance, nil
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
	logger.Info("Closed Qdrant")
}

// Index is one Qdrant collection.
type Index struct {
	client    *qdrant.Client
	name      string
	dimension uint64
	log       *logger_i.Logger
}

func NewIndex(client *qdrant.Client, name string, dimension int) *Index {
	return &Index{
		client:    client,
		name:      name,
		dimension: uint64(dimension),
		log:       logger.With("collection", name),
	}
}

func (db *Index) Name() string {
	return db.name
}

func (db *Index) EnsureIndex(ctx context.Context) error {
	if db.name == "" {
		return ragErrors.New(ragErrors.StoreError, "ensure index", errors.New("empty collection name"))
	}

	exists, err := db.client.CollectionExists(ctx, db.name)
	if err != nil {
		return ragErrors.New(ragErrors.StoreError, "qdrant collection exists", err)
	}
	if exists {
		return nil
	}

	err = db.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: db.name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     db.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return ragErrors.New(ragErrors.StoreError, "qdrant create collection", err)
	}
	db.log.Info("created collection", "dimension", db.dimension)
	return nil
}

func (db *Index) Upsert(ctx context.Context, points []vectorDB.Point) error {
	if len(points) == 0 {
		return nil
	}
	_, err := db.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.name,
		Points:         toPointStructs(points),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		db.log.WithTrace(ctx).Error("qdrant upsert failed", "error", err)
		return ragErrors.New(ragErrors.StoreError, "qdrant upsert", err)
	}
	return nil
}

func (db *Index) Search(ctx context.Context, vector []float32, topK int) ([]vectorDB.Match, error) {
	if topK <= 0 {
		return []vectorDB.Match{}, nil
	}
	result, err := db.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if isNotFound(err) {
			return []vectorDB.Match{}, nil
		}
		db.log.WithTrace(ctx).Error("Error querying Qdrant", "error", err)
		return nil, ragErrors.New(ragErrors.StoreError, "qdrant query", err)
	}
	return toMatches(result), nil
}

func (db *Index) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIds := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIds[i] = qdrant.NewID(id)
	}
	_, err := db.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.name,
		Points:         qdrant.NewPointsSelector(pointIds...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil && !isNotFound(err) {
		return ragErrors.New(ragErrors.StoreError, "qdrant delete", err)
	}
	return nil
}

// DeleteAll drops and recreates the collection, cheaper than deleting points one by one.
func (db *Index) DeleteAll(ctx context.Context) (int, error) {
	count, err := db.Count(ctx)
	if err != nil {
		return 0, err
	}
	if err := db.client.DeleteCollection(ctx, db.name); err != nil && !isNotFound(err) {
		return 0, ragErrors.New(ragErrors.StoreError, "qdrant delete collection", err)
	}
	if err := db.EnsureIndex(ctx); err != nil {
		return count, err
	}
	db.log.WithTrace(ctx).Info("cleared collection", "removed", count)
	return count, nil
}

func (db *Index) Count(ctx context.Context) (int, error) {
	count, err := db.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, ragErrors.New(ragErrors.StoreError, "qdrant count", err)
	}
	return int(count), nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func toPointStructs(points []vectorDB.Point) []*qdrant.PointStruct {
	out := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload := make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = v
		}
		out[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.Id),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}
	return out
}

func toMatches(result []*qdrant.ScoredPoint) []vectorDB.Match {
	matches := make([]vectorDB.Match, 0, len(result))
	for _, hit := range result {
		payload := make(map[string]string, len(hit.GetPayload()))
		for k, v := range hit.GetPayload() {
			payload[k] = v.GetStringValue()
		}
		matches = append(matches, vectorDB.Match{
			Id:       hit.GetId().GetUuid(),
			Payload:  payload,
			Distance: vectorDB.DistanceFromSimilarity(hit.GetScore()),
		})
	}
	vectorDB.SortByDistance(matches)
	return matches
}

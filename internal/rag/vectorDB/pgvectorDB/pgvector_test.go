package pgvectorDB

import (
	"context"
	"testing"

	"github.com/akolanti/ragstream/internal/rag/vectorDB"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	idA = "5c56c793-69f3-4fbf-87e6-c4bf54c28c26"
	idB = "0b0e3c4e-6f1a-4a39-a0d2-2b4a44b1f3f0"
	idC = "f1c5a3e0-3f7e-4a53-9d3c-1f9e3a1b2c4d"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "pgvector/pgvector:pg16",
		postgres.WithDatabase("ragstream"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "rag_documents", tableName("rag-documents"))
	assert.Equal(t, "semantic_cache", tableName("Semantic-Cache"))
}

func TestIsUndefinedTable(t *testing.T) {
	assert.True(t, isUndefinedTable(&pq.Error{Code: undefinedTable}))
	assert.False(t, isUndefinedTable(&pq.Error{Code: "23505"}))
	assert.False(t, isUndefinedTable(assert.AnError))
}

func TestPgvectorIndex(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	idx := NewIndex(db, "rag-documents", 3)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "missing table counts as empty")

	require.NoError(t, idx.EnsureIndex(ctx))
	require.NoError(t, idx.EnsureIndex(ctx), "ensure is idempotent")

	matches, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, idx.Upsert(ctx, []vectorDB.Point{
		{Id: idA, Vector: []float32{1, 0, 0}, Payload: map[string]string{"content": "x axis"}},
		{Id: idB, Vector: []float32{0, 1, 0}, Payload: map[string]string{"content": "y axis"}},
		{Id: idC, Vector: []float32{1, 1, 0}, Payload: map[string]string{"content": "diagonal"}},
	}))

	matches, err = idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, idA, matches[0].Id)
	assert.Equal(t, "x axis", matches[0].Payload["content"])
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
	assert.Equal(t, idC, matches[1].Id)
	assert.Less(t, matches[0].Distance, matches[1].Distance)

	require.NoError(t, idx.Delete(ctx, idB))
	count, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	removed, err := idx.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

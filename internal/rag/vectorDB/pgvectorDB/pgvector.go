package pgvectorDB

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag/vectorDB"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const undefinedTable = "42P01"

var logger = logger_i.NewLogger("pgvector")

// Open connects with lib/pq and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("connected to postgres")
	return db, nil
}

// Index stores one vector index as one table, embedding vector(D) plus a JSONB payload.
type Index struct {
	db        *sql.DB
	name      string
	table     string
	dimension int
	log       *logger_i.Logger
}

func NewIndex(db *sql.DB, name string, dimension int) *Index {
	return &Index{
		db:        db,
		name:      name,
		table:     tableName(name),
		dimension: dimension,
		log:       logger.With("index", name),
	}
}

func tableName(name string) string {
	return strings.ToLower(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name))
}

func (x *Index) Name() string {
	return x.name
}

func (x *Index) quoted() string {
	return pq.QuoteIdentifier(x.table)
}

func (x *Index) EnsureIndex(ctx context.Context) error {
	if x.dimension <= 0 {
		return ragErrors.New(ragErrors.StoreError, "pgvector ensure index", errors.New("dimension must be positive"))
	}
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb
		)`, x.quoted(), x.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pq.QuoteIdentifier(x.table+"_embedding_idx"), x.quoted()),
	}
	for _, stmt := range statements {
		if _, err := x.db.ExecContext(ctx, stmt); err != nil {
			return ragErrors.New(ragErrors.StoreError, "pgvector ensure index", err)
		}
	}
	return nil
}

func (x *Index) Upsert(ctx context.Context, points []vectorDB.Point) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return ragErrors.New(ragErrors.StoreError, "pgvector upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, embedding, payload) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`, x.quoted()))
	if err != nil {
		return ragErrors.New(ragErrors.StoreError, "pgvector upsert", err)
	}
	defer stmt.Close()

	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return ragErrors.New(ragErrors.StoreError, "pgvector upsert", err)
		}
		if _, err := stmt.ExecContext(ctx, p.Id, pgvector.NewVector(p.Vector), payload); err != nil {
			x.log.WithTrace(ctx).Error("pgvector upsert failed", "id", p.Id, "error", err)
			return ragErrors.New(ragErrors.StoreError, "pgvector upsert", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return ragErrors.New(ragErrors.StoreError, "pgvector upsert", err)
	}
	return nil
}

func (x *Index) Search(ctx context.Context, vector []float32, topK int) ([]vectorDB.Match, error) {
	if topK <= 0 {
		return []vectorDB.Match{}, nil
	}
	rows, err := x.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, payload, embedding <=> $1 AS distance FROM %s ORDER BY embedding <=> $1 LIMIT $2`, x.quoted()),
		pgvector.NewVector(vector), topK)
	if err != nil {
		if isUndefinedTable(err) {
			return []vectorDB.Match{}, nil
		}
		x.log.WithTrace(ctx).Error("pgvector search failed", "error", err)
		return nil, ragErrors.New(ragErrors.StoreError, "pgvector search", err)
	}
	defer rows.Close()

	matches := make([]vectorDB.Match, 0, topK)
	for rows.Next() {
		var (
			m       vectorDB.Match
			payload []byte
		)
		if err := rows.Scan(&m.Id, &payload, &m.Distance); err != nil {
			return nil, ragErrors.New(ragErrors.StoreError, "pgvector search scan", err)
		}
		if err := json.Unmarshal(payload, &m.Payload); err != nil {
			return nil, ragErrors.New(ragErrors.StoreError, "pgvector search payload", err)
		}
		m.Distance = vectorDB.ClampDistance(m.Distance)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, ragErrors.New(ragErrors.StoreError, "pgvector search", err)
	}
	return matches, nil
}

func (x *Index) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := x.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, x.quoted()), pq.Array(ids))
	if err != nil && !isUndefinedTable(err) {
		return ragErrors.New(ragErrors.StoreError, "pgvector delete", err)
	}
	return nil
}

func (x *Index) DeleteAll(ctx context.Context) (int, error) {
	res, err := x.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, x.quoted()))
	if err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, ragErrors.New(ragErrors.StoreError, "pgvector delete all", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, ragErrors.New(ragErrors.StoreError, "pgvector delete all", err)
	}
	return int(removed), nil
}

func (x *Index) Count(ctx context.Context) (int, error) {
	var count int
	err := x.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, x.quoted())).Scan(&count)
	if err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, ragErrors.New(ragErrors.StoreError, "pgvector count", err)
	}
	return count, nil
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == undefinedTable
}

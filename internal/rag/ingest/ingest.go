package ingest

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/commonModels"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/metrics"
	"github.com/akolanti/ragstream/internal/observability"
	"github.com/akolanti/ragstream/internal/rag/chunker"
	"github.com/akolanti/ragstream/internal/rag/embedding"
	"github.com/akolanti/ragstream/internal/rag/parser"
	"github.com/akolanti/ragstream/internal/rag/retrieval"
	"github.com/akolanti/ragstream/pkg/logger_i"
)

var logger = logger_i.NewLogger("Document Ingestion")

// PassageWriter is the part of the passage store ingestion needs.
type PassageWriter interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, passages []commonModels.StoredPassage) error
}

var _ PassageWriter = (*retrieval.PassageStore)(nil)

// Pipeline turns source documents into stored passages: parse, chunk, embed, upsert.
type Pipeline struct {
	embedder embedding.Embedder
	store    PassageWriter
	sink     observability.Sink
}

func NewPipeline(embedder embedding.Embedder, store PassageWriter, sink observability.Sink) *Pipeline {
	if sink == nil {
		sink = observability.NopSink{}
	}
	return &Pipeline{embedder: embedder, store: store, sink: sink}
}

// Ingest processes every document independently. A failing document is reported with status error and
// never stops the ones after it.
func (p *Pipeline) Ingest(ctx context.Context, docs []commonModels.SourceDocument, settings config.IngestionSettings) []commonModels.IngestResult {
	log := logger.WithTrace(ctx)
	results := make([]commonModels.IngestResult, 0, len(docs))

	ch, chunkerErr := chunker.New(settings.ChunkSize, settings.ChunkOverlap)
	indexErr := p.store.EnsureIndex(ctx)

	for _, doc := range docs {
		res := commonModels.IngestResult{Filename: doc.Filename, Status: commonModels.IngestStatusOK}
		err := errors.Join(chunkerErr, indexErr)
		if err == nil {
			res.Chunks, err = p.ingestOne(ctx, ch, doc)
		}
		res.IngestedAt = time.Now().UTC()

		if err != nil {
			res.Status = commonModels.IngestStatusError
			res.Error = publicMessage(err)
			log.Error("document ingestion failed", "filename", doc.Filename, "error", err)
			observability.Record(ctx, p.sink, observability.LevelError, observability.CategoryIngestion, "document ingestion failed",
				map[string]any{"filename": doc.Filename, "error": err.Error()})
		} else {
			log.Info("document ingested", "filename", doc.Filename, "chunks", res.Chunks)
			observability.Record(ctx, p.sink, observability.LevelInfo, observability.CategoryIngestion, "document ingested",
				map[string]any{"filename": doc.Filename, "chunks": res.Chunks})
		}
		metrics.IngestedDocument(string(res.Status))
		results = append(results, res)
	}
	return results
}

func (p *Pipeline) ingestOne(ctx context.Context, ch *chunker.Chunker, doc commonModels.SourceDocument) (int, error) {
	log := logger.WithTrace(ctx).With("filename", doc.Filename)

	raw, err := load(doc)
	if err != nil {
		return 0, err
	}
	mimeType := doc.MimeType
	if parser.DocTypeOf(mimeType) == commonModels.ERR {
		mimeType = parser.DetectMimeType(doc.Filename, raw)
	}

	text, err := parser.ParseToText(raw, mimeType)
	if err != nil {
		return 0, err
	}

	chunks := ch.Chunk(text)
	log.Debug("chunked document", "mime", mimeType, "chunks", len(chunks), "chunker", ch.String())
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	start := time.Now()
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	metrics.CaptureExecutionMetrics("embed_batch", time.Since(start))
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, ragErrors.Newf(ragErrors.ProviderError, "got %d embeddings for %d chunks", len(vectors), len(chunks))
	}

	passages := make([]commonModels.StoredPassage, len(chunks))
	for i, c := range chunks {
		passages[i] = commonModels.StoredPassage{
			Content:   c.Content,
			Embedding: vectors[i],
			Metadata: commonModels.PassageMetadata{
				Filename:    doc.Filename,
				ChunkIndex:  c.Index,
				TotalChunks: c.TotalInGroup,
			},
		}
	}

	start = time.Now()
	err = p.store.Upsert(ctx, passages)
	metrics.CaptureExecutionMetrics("vector_upsert", time.Since(start))
	if err != nil {
		return 0, err
	}
	return len(passages), nil
}

func load(doc commonModels.SourceDocument) ([]byte, error) {
	if len(doc.Raw) > 0 || doc.Path == "" {
		return doc.Raw, nil
	}
	raw, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, ragErrors.New(ragErrors.InvalidInput, "read upload", err)
	}
	return raw, nil
}

// publicMessage keeps provider and store detail out of job results.
func publicMessage(err error) string {
	switch ragErrors.KindOf(err) {
	case ragErrors.UnsupportedType:
		return "unsupported document type"
	case ragErrors.InvalidInput:
		return "document could not be read"
	case ragErrors.ProviderError:
		return "embedding provider failed"
	case ragErrors.StoreError:
		return "vector store failed"
	default:
		return "ingestion failed"
	}
}

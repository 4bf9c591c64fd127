package embedding

import (
	"context"
	"fmt"

	"github.com/akolanti/ragstream/internal/domain/ragErrors"
)

// Embedder turns text into fixed dimension vectors. EmbedBatch preserves input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// BatchCall embeds one provider sized batch.
type BatchCall func(ctx context.Context, batch []string) ([][]float32, error)

// EmbedInBatches splits texts into batches of at most batchSize, issues the calls one after another and
// concatenates the results in call order. A failing batch aborts the whole run.
func EmbedInBatches(ctx context.Context, texts []string, batchSize int, call BatchCall) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	results := make([][]float32, 0, len(texts))
	for batch, start := 0, 0; start < len(texts); batch, start = batch+1, start+batchSize {
		if err := ctx.Err(); err != nil {
			return nil, ragErrors.New(ragErrors.ProviderError, fmt.Sprintf("batch %d", batch), err)
		}
		end := min(start+batchSize, len(texts))

		vectors, err := call(ctx, texts[start:end])
		if err != nil {
			return nil, ragErrors.New(ragErrors.ProviderError, fmt.Sprintf("batch %d", batch), err)
		}
		if len(vectors) != end-start {
			return nil, ragErrors.New(ragErrors.ProviderError, fmt.Sprintf("batch %d", batch),
				fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), end-start))
		}
		results = append(results, vectors...)
	}
	return results, nil
}

// CheckDimension rejects vectors whose length differs from the configured dimension.
func CheckDimension(vector []float32, dimension int) error {
	if len(vector) != dimension {
		return fmt.Errorf("expected %d dimensions, got %d", dimension, len(vector))
	}
	return nil
}

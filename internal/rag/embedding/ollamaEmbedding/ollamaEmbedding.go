package ollamaEmbedding

import (
	"context"
	"net/http"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag/embedding"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

var logger = logger_i.NewLogger("ollama_embedding")

type client struct {
	embedder  embeddings.Embedder
	dimension int
}

// New talks to a local Ollama server. The dimension is whatever the model produces and must match EMBEDDING_DIMENSION.
func New(serverURL, model string, dimension int, httpClient *http.Client) (embedding.Embedder, error) {
	opts := []ollama.Option{
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	}
	if httpClient != nil {
		opts = append(opts, ollama.WithHTTPClient(httpClient))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(config.EmbeddingBatchSize))
	if err != nil {
		return nil, err
	}
	logger.Info("Ollama Embedding client created", "model", model, "server", serverURL)
	return &client{embedder: embedder, dimension: dimension}, nil
}

func (c *client) Dimension() int {
	return c.dimension
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		logger.WithTrace(ctx).Error("Error getting Embeddings from Ollama", "error", err)
		return nil, ragErrors.New(ragErrors.ProviderError, "ollama embed", err)
	}
	if err := embedding.CheckDimension(vec, c.dimension); err != nil {
		return nil, ragErrors.New(ragErrors.ProviderError, "ollama embed", err)
	}
	return vec, nil
}

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedding.EmbedInBatches(ctx, texts, config.EmbeddingBatchSize, c.embedder.EmbedDocuments)
}

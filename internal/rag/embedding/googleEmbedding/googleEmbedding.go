package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag/embedding"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"google.golang.org/genai"
)

const (
	taskQuery    = "RETRIEVAL_QUERY"
	taskDocument = "RETRIEVAL_DOCUMENT"
)

var (
	logger          = logger_i.NewLogger("google_embedding")
	once            sync.Once
	embeddingClient *client
	initErr         error
)

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
}

func newGoogleEmbedder(ctx context.Context, modelName, apiKey string, dimension int, httpClient *http.Client) {
	if apiKey == "" {
		initErr = errors.New("GOOGLE_API_KEY is not set")
		return
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		initErr = err
		return
	}
	embeddingClient = &client{
		genAi:     c,
		model:     modelName,
		dimension: int32(dimension),
	}
	logger.Info("Google Embedding client created", "model", modelName, "dimension", dimension)
}

// GetGoogleEmbeddingClient builds the process wide client on first use.
func GetGoogleEmbeddingClient(ctx context.Context, modelName, apiKey string, dimension int, httpClient *http.Client) (embedding.Embedder, error) {
	once.Do(func() {
		newGoogleEmbedder(ctx, modelName, apiKey, dimension, httpClient)
	})
	if embeddingClient == nil {
		return nil, fmt.Errorf("google embedding client unavailable: %w", initErr)
	}
	return embeddingClient, nil
}

func (c *client) Dimension() int {
	return int(c.dimension)
}

func (c *client) Embed(ctx context.Context, query string) ([]float32, error) {
	log := logger.WithTrace(ctx)
	log.Debug("embedding query", "length", len(query))

	res, err := withRetry(ctx, log, func() (*genai.EmbedContentResponse, error) {
		return c.doCall(ctx, genai.Text(query), taskQuery)
	})
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, ragErrors.New(ragErrors.ProviderError, "google embed", err)
	}
	vectors := vectorsFrom(res)
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, ragErrors.Newf(ragErrors.ProviderError, "google embed returned %d embeddings", len(vectors))
	}
	return vectors[0], nil
}

func (c *client) EmbedBatch(ctx context.Context, chunks []string) ([][]float32, error) {
	log := logger.WithTrace(ctx).With("chunks", len(chunks))
	log.Debug("embedding batch")

	return embedding.EmbedInBatches(ctx, chunks, config.EmbeddingBatchSize, func(ctx context.Context, batch []string) ([][]float32, error) {
		res, err := withRetry(ctx, log, func() (*genai.EmbedContentResponse, error) {
			return c.doCall(ctx, getContent(batch), taskDocument)
		})
		if err != nil {
			log.Error("Error getting batch Embeddings from Google", "error", err)
			return nil, err
		}
		return vectorsFrom(res), nil
	})
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             task,
	})
}

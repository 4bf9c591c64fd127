package openaiEmbedding

import (
	"context"
	"net/http"
	"sort"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag/embedding"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger = logger_i.NewLogger("openai_embedding")

// Config works for OpenAI itself and for any server speaking the same embeddings API.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimension  int
	MaxRetries int
	HTTPClient *http.Client
}

type client struct {
	api       openai.Client
	model     string
	dimension int
}

func New(cfg Config) embedding.Embedder {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	logger.Info("OpenAI Embedding client created", "model", cfg.Model, "dimension", cfg.Dimension)
	return &client{
		api:       openai.NewClient(opts...),
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}
}

func (c *client) Dimension() int {
	return c.dimension
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.call(ctx, []string{text})
	if err != nil {
		logger.WithTrace(ctx).Error("Error getting Embeddings from OpenAI", "error", err)
		return nil, ragErrors.New(ragErrors.ProviderError, "openai embed", err)
	}
	if len(vectors) != 1 {
		return nil, ragErrors.Newf(ragErrors.ProviderError, "openai embed returned %d embeddings", len(vectors))
	}
	return vectors[0], nil
}

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	log := logger.WithTrace(ctx).With("chunks", len(texts))
	log.Debug("embedding batch")
	return embedding.EmbedInBatches(ctx, texts, config.EmbeddingBatchSize, func(ctx context.Context, batch []string) ([][]float32, error) {
		vectors, err := c.call(ctx, batch)
		if err != nil {
			log.Error("Error getting batch Embeddings from OpenAI", "error", err)
		}
		return vectors, err
	})
}

func (c *client) call(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	}
	if c.dimension > 0 {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	res, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}

	data := res.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = toFloat32(d.Embedding)
	}
	return out, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}

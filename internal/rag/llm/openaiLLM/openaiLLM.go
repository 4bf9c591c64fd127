package openaiLLM

import (
	"context"
	"net/http"
	"sync"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag/llm"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

var logger = logger_i.NewLogger("llm_openai")

type Config struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	HTTPClient *http.Client
}

type client struct {
	api openai.Client
}

// New works against OpenAI or any server exposing the chat completions API.
func New(cfg Config) llm.Provider {
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
	logger.Info("OpenAI chat client created")
	return &client{api: openai.NewClient(opts...)}
}

func (c *client) StreamGenerate(ctx context.Context, messages []chatModel.Message, systemPrompt string, params llm.GenerationParams) (llm.Stream, error) {
	body := toParams(messages, systemPrompt, params)
	if len(body.Messages) == 0 {
		return nil, ragErrors.Newf(ragErrors.InvalidInput, "openai: no messages to send")
	}
	logger.WithTrace(ctx).Debug("starting openai stream", "model", body.Model, "messages", len(body.Messages))
	return &stream{inner: c.api.Chat.Completions.NewStreaming(ctx, body)}, nil
}

func toParams(messages []chatModel.Message, systemPrompt string, params llm.GenerationParams) openai.ChatCompletionNewParams {
	history := llm.Conversation(messages)
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if systemPrompt != "" {
		out = append(out, openai.SystemMessage(systemPrompt))
	}
	for _, m := range history {
		if m.Role == chatModel.RoleAssistant {
			out = append(out, openai.AssistantMessage(m.Content))
		} else {
			out = append(out, openai.UserMessage(m.Content))
		}
	}

	body := openai.ChatCompletionNewParams{
		Messages:    out,
		Model:       llm.ModelOr(params, config.OpenAIModelName),
		Temperature: openai.Float(params.Temperature),
	}
	if params.MaxTokens > 0 {
		body.MaxCompletionTokens = openai.Int(int64(params.MaxTokens))
	}
	if len(history) == 0 {
		body.Messages = nil
	}
	return body
}

type stream struct {
	inner   *ssestream.Stream[openai.ChatCompletionChunk]
	current string
	once    sync.Once
}

func (s *stream) Next() bool {
	for s.inner.Next() {
		chunk := s.inner.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			s.current = text
			return true
		}
	}
	return false
}

func (s *stream) Fragment() string {
	return s.current
}

func (s *stream) Err() error {
	if err := s.inner.Err(); err != nil {
		return ragErrors.New(ragErrors.ProviderError, "openai stream", err)
	}
	return nil
}

func (s *stream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.inner.Close()
	})
	return err
}

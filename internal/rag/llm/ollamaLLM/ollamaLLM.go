package ollamaLLM

import (
	"context"
	"net/http"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag/llm"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

var logger = logger_i.NewLogger("llm_ollama")

type client struct {
	model *ollama.LLM
}

func New(serverURL string, httpClient *http.Client) (llm.Provider, error) {
	opts := []ollama.Option{
		ollama.WithServerURL(serverURL),
		ollama.WithModel(config.OllamaModelName),
	}
	if httpClient != nil {
		opts = append(opts, ollama.WithHTTPClient(httpClient))
	}
	model, err := ollama.New(opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("Ollama chat client created", "server", serverURL)
	return &client{model: model}, nil
}

// StreamGenerate bridges the langchaingo streaming callback onto a pull stream.
func (c *client) StreamGenerate(ctx context.Context, messages []chatModel.Message, systemPrompt string, params llm.GenerationParams) (llm.Stream, error) {
	if len(llm.Conversation(messages)) == 0 {
		return nil, ragErrors.Newf(ragErrors.InvalidInput, "ollama: no messages to send")
	}
	content := toMessageContent(messages, systemPrompt)
	model := llm.ModelOr(params, config.OllamaModelName)
	logger.WithTrace(ctx).Debug("starting ollama stream", "model", model, "messages", len(content))

	callOpts := []llms.CallOption{
		llms.WithModel(model),
		llms.WithTemperature(params.Temperature),
	}
	if params.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(params.MaxTokens))
	}

	return llm.NewChannelStream(ctx, func(ctx context.Context, emit func(string) error) error {
		opts := append(callOpts[:len(callOpts):len(callOpts)], llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			return emit(string(chunk))
		}))
		if _, err := c.model.GenerateContent(ctx, content, opts...); err != nil {
			return ragErrors.New(ragErrors.ProviderError, "ollama stream", err)
		}
		return nil
	}), nil
}

func toMessageContent(messages []chatModel.Message, systemPrompt string) []llms.MessageContent {
	history := llm.Conversation(messages)
	out := make([]llms.MessageContent, 0, len(history)+1)
	if systemPrompt != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	}
	for _, m := range history {
		role := llms.ChatMessageTypeHuman
		if m.Role == chatModel.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}

package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"sync"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag/llm"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client *genai.Client
}

var (
	logger       = logger_i.NewLogger("llm_gemini")
	geminiClient *llmClient
	once         sync.Once
	initErr      error
)

// GetGeminiClient builds the process wide client on first use.
func GetGeminiClient(ctx context.Context, apiKey string, httpClient *http.Client) (llm.Provider, error) {
	once.Do(func() {
		newGeminiClient(ctx, apiKey, httpClient)
	})
	if geminiClient == nil {
		return nil, fmt.Errorf("gemini client unavailable: %w", initErr)
	}
	return geminiClient, nil
}

func newGeminiClient(ctx context.Context, apiKey string, httpClient *http.Client) {
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
		logger.Error("Error creating Gemini client", "error", err)
		initErr = err
		return
	}
	geminiClient = &llmClient{client: c}
	logger.Info("Gemini client created")
	go closeClient(ctx)
}

func (c *llmClient) StreamGenerate(ctx context.Context, messages []chatModel.Message, systemPrompt string, params llm.GenerationParams) (llm.Stream, error) {
	contents := toContents(messages)
	if len(contents) == 0 {
		return nil, ragErrors.Newf(ragErrors.InvalidInput, "gemini: no messages to send")
	}

	model := llm.ModelOr(params, config.GeminiModelName)
	logger.WithTrace(ctx).Debug("starting gemini stream", "model", model, "messages", len(contents))

	next, stop := iter.Pull2(c.client.Models.GenerateContentStream(ctx, model, contents, generationConfig(systemPrompt, params)))
	return &stream{next: next, stop: stop}, nil
}

func generationConfig(systemPrompt string, params llm.GenerationParams) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(params.Temperature)),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if params.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxTokens)
	}
	return cfg
}

func toContents(messages []chatModel.Message) []*genai.Content {
	history := llm.Conversation(messages)
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == chatModel.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

type stream struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	current string
	err     error
	once    sync.Once
}

func (s *stream) Next() bool {
	if s.err != nil {
		return false
	}
	for {
		resp, err, ok := s.next()
		if !ok {
			return false
		}
		if err != nil {
			s.err = ragErrors.New(ragErrors.ProviderError, "gemini stream", err)
			return false
		}
		if resp == nil {
			continue
		}
		if text := resp.Text(); text != "" {
			s.current = text
			return true
		}
	}
}

func (s *stream) Fragment() string {
	return s.current
}

func (s *stream) Err() error {
	return s.err
}

func (s *stream) Close() error {
	s.once.Do(s.stop)
	return nil
}

func closeClient(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Gemini client")
}

package llm

import (
	"context"

	"github.com/akolanti/ragstream/internal/domain/chatModel"
)

type GenerationParams struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Provider streams a completion for a conversation. Messages are in chronological order and never
// contain the system prompt, which is passed separately.
type Provider interface {
	StreamGenerate(ctx context.Context, messages []chatModel.Message, systemPrompt string, params GenerationParams) (Stream, error)
}

// Stream is a pull handle over generated text. Next blocks until a fragment is ready or the stream
// ends; Err reports why it ended. Close releases the underlying call and is safe to call twice.
type Stream interface {
	Next() bool
	Fragment() string
	Err() error
	Close() error
}

// Conversation drops system messages from a history. Providers send the system prompt on its own.
func Conversation(messages []chatModel.Message) []chatModel.Message {
	out := make([]chatModel.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == chatModel.RoleSystem || m.Content == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

func ModelOr(params GenerationParams, fallback string) string {
	if params.Model != "" {
		return params.Model
	}
	return fallback
}

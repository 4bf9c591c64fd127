package llm

import (
	"testing"

	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/stretchr/testify/assert"
)

func TestConversationDropsSystemAndEmpty(t *testing.T) {
	got := Conversation([]chatModel.Message{
		{Role: chatModel.RoleSystem, Content: "sys"},
		{Role: chatModel.RoleUser, Content: "q"},
		{Role: chatModel.RoleAssistant, Content: ""},
		{Role: chatModel.RoleAssistant, Content: "a"},
	})
	assert.Equal(t, []chatModel.Message{
		{Role: chatModel.RoleUser, Content: "q"},
		{Role: chatModel.RoleAssistant, Content: "a"},
	}, got)
}

func TestModelOr(t *testing.T) {
	assert.Equal(t, "fallback", ModelOr(GenerationParams{}, "fallback"))
	assert.Equal(t, "chosen", ModelOr(GenerationParams{Model: "chosen"}, "fallback"))
}

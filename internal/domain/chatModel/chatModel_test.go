package chatModel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatestUserMessage(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleAssistant, Content: "reply two"},
	}
	got, ok := LatestUserMessage(msgs)
	assert.True(t, ok)
	assert.Equal(t, "second", got.Content)

	_, ok = LatestUserMessage([]Message{{Role: RoleAssistant, Content: "x"}})
	assert.False(t, ok)

	_, ok = LatestUserMessage(nil)
	assert.False(t, ok)
}

func TestTerminal(t *testing.T) {
	assert.True(t, StreamEvent{Type: EventDone}.Terminal())
	assert.True(t, StreamEvent{Type: EventError}.Terminal())
	assert.False(t, StreamEvent{Type: EventToken}.Terminal())
	assert.False(t, StreamEvent{Type: EventCached}.Terminal())
}

package ollamaLLM

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type chatRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func ndjsonServer(t *testing.T, fragments []string, failWith string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var seen chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))

		w.Header().Set("Content-Type", "application/x-ndjson")
		if failWith != "" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = fmt.Fprintf(w, "{\"error\":%q}\n", failWith)
			return
		}
		for _, f := range fragments {
			_, _ = fmt.Fprintf(w, "{\"model\":\"llama3.1\",\"message\":{\"role\":\"assistant\",\"content\":%q},\"done\":false}\n", f)
		}
		_, _ = fmt.Fprint(w, "{\"model\":\"llama3.1\",\"message\":{\"role\":\"assistant\",\"content\":\"\"},\"done\":true}\n")
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestStreamGenerate(t *testing.T) {
	srv, seen := ndjsonServer(t, []string{"The sky ", "is blue."}, "")
	provider, err := New(srv.URL, srv.Client())
	require.NoError(t, err)

	s, err := provider.StreamGenerate(context.Background(), []chatModel.Message{
		{Role: chatModel.RoleUser, Content: "What color is the sky?"},
	}, "Use the context.", llm.GenerationParams{Model: "llama3.1", Temperature: 0.1})
	require.NoError(t, err)
	defer s.Close()

	var got []string
	for s.Next() {
		got = append(got, s.Fragment())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []string{"The sky ", "is blue."}, got)

	assert.True(t, seen.Stream)
	assert.Equal(t, "llama3.1", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "user", seen.Messages[1].Role)
}

func TestStreamGenerateError(t *testing.T) {
	srv, _ := ndjsonServer(t, nil, "model not found")
	provider, err := New(srv.URL, srv.Client())
	require.NoError(t, err)

	s, err := provider.StreamGenerate(context.Background(), []chatModel.Message{{Role: chatModel.RoleUser, Content: "hi"}}, "", llm.GenerationParams{})
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.Next())
	assert.True(t, ragErrors.Is(s.Err(), ragErrors.ProviderError))
}

func TestToMessageContent(t *testing.T) {
	content := toMessageContent([]chatModel.Message{
		{Role: chatModel.RoleUser, Content: "q1"},
		{Role: chatModel.RoleAssistant, Content: "a1"},
	}, "sys")
	require.Len(t, content, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, content[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, content[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, content[2].Role)
}

package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/ragstream/internal/api"
	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/data/store"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/commonModels"
	"github.com/akolanti/ragstream/internal/domain/jobModel"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/job"
	"github.com/akolanti/ragstream/internal/observability"
	"github.com/akolanti/ragstream/internal/rag"
	"github.com/akolanti/ragstream/internal/settings"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockRag struct {
	OnAnswer     func(ctx context.Context, req rag.AnswerRequest) (<-chan chatModel.StreamEvent, error)
	OnCount      func(ctx context.Context) (int, error)
	OnClear      func(ctx context.Context) (int, error)
	LastRequest  rag.AnswerRequest
	CacheCleared bool
}

func (m *MockRag) Answer(ctx context.Context, req rag.AnswerRequest) (<-chan chatModel.StreamEvent, error) {
	m.LastRequest = req
	return m.OnAnswer(ctx, req)
}
func (m *MockRag) Search(ctx context.Context, q string, s config.RetrievalSettings) ([]commonModels.Passage, error) {
	return nil, nil
}
func (m *MockRag) Ingest(ctx context.Context, docs []commonModels.SourceDocument, s config.IngestionSettings) []commonModels.IngestResult {
	return nil
}
func (m *MockRag) ClearDocuments(ctx context.Context) (int, error) { return m.OnClear(ctx) }
func (m *MockRag) CountDocuments(ctx context.Context) (int, error) { return m.OnCount(ctx) }
func (m *MockRag) ClearCache(ctx context.Context) (int, error) {
	m.CacheCleared = true
	return 3, nil
}
func (m *MockRag) CountCache(ctx context.Context) (int, error) { return 7, nil }

func streamOf(events ...chatModel.StreamEvent) <-chan chatModel.StreamEvent {
	ch := make(chan chatModel.StreamEvent, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch
}

func answerStream(ctx context.Context, req rag.AnswerRequest) (<-chan chatModel.StreamEvent, error) {
	return streamOf(
		chatModel.StreamEvent{Type: chatModel.EventSources, Sources: []chatModel.SourceRef{{Label: "Source 1", Filename: "sky.txt"}}},
		chatModel.StreamEvent{Type: chatModel.EventToken, Content: "Hello "},
		chatModel.StreamEvent{Type: chatModel.EventToken, Content: "world"},
		chatModel.StreamEvent{Type: chatModel.EventDone},
	), nil
}

type testEnv struct {
	handler  *Handler
	router   *chi.Mux
	rag      *MockRag
	jobs     *job.Service
	messages *store.InMemoryMessageStore
	settings *settings.Store
	hub      *observability.Hub
	dir      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := observability.NewHub(ctx, 50, 8)
	st, err := settings.NewStore(ctx, config.DefaultSettings(), nil, hub)
	require.NoError(t, err)

	messages := store.InitMessageStore()
	jobs := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          store.InitInMemoryJobStore(),
		MessageStore:      messages,
	})
	mock := &MockRag{OnAnswer: answerStream}
	dir := t.TempDir()

	h := New(Deps{Rag: mock, Jobs: jobs, Messages: messages, Settings: st, Events: hub, UploadDir: dir})
	r := chi.NewRouter()
	r.Get("/health", h.GetHandler)
	r.Post("/chat", h.ChatHandler)
	r.Post("/ingest", h.PostIngestHandler)
	r.Get("/status/{id}", h.GetStatusHandler)
	r.Get("/documents/count", h.GetDocumentCountHandler)
	r.Delete("/documents", h.DeleteDocumentsHandler)
	r.Get("/cache/count", h.GetCacheCountHandler)
	r.Delete("/cache", h.DeleteCacheHandler)
	r.Get("/settings", h.GetSettingsHandler)
	r.Put("/settings", h.PutSettingsHandler)
	r.Post("/settings/reset", h.ResetSettingsHandler)
	r.Get("/logs", h.GetLogsHandler)
	r.Get("/logs/stream", h.StreamLogsHandler)

	return &testEnv{handler: h, router: r, rag: mock, jobs: jobs, messages: messages, settings: st, hub: hub, dir: dir}
}

func (e *testEnv) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req = req.WithContext(context.WithValue(req.Context(), config.TRACE_ID_KEY, "trace-test"))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func chatBody(message, chatID string) io.Reader {
	b, _ := json.Marshal(api.ChatRequest{Message: message, ChatID: chatID})
	return bytes.NewReader(b)
}

// sseEvents returns the event names in order.
func sseEvents(body string) []string {
	var names []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			names = append(names, name)
		}
	}
	return names
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestChatHandler_StreamsAndKeepsHistory(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/chat", chatBody("why is the sky blue?", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, []string{"sources", "token", "token", "done"}, sseEvents(rec.Body.String()))
	assert.Contains(t, rec.Body.String(), `"filename":"sky.txt"`)

	chatID := rec.Header().Get("X-Chat-Id")
	require.NotEmpty(t, chatID)
	history, err := env.messages.GetMessageHistory(context.Background(), chatID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, chatModel.Message{Role: chatModel.RoleAssistant, Content: "Hello world"}, history[1])

	assert.Equal(t, env.settings.Snapshot(), env.rag.LastRequest.Settings)

	rec = env.do(http.MethodPost, "/chat", chatBody("and at night?", chatID))
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := env.rag.LastRequest.Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "why is the sky blue?", msgs[0].Content)
	assert.Equal(t, "and at night?", msgs[2].Content)
}

func TestChatHandler_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body io.Reader
	}{
		{"empty message", chatBody("  ", "")},
		{"unknown chat", chatBody("hi", "missing-chat")},
		{"not json", strings.NewReader("{")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestChatHandler_PreStreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.rag.OnAnswer = func(ctx context.Context, req rag.AnswerRequest) (<-chan chatModel.StreamEvent, error) {
		return nil, ragErrors.Newf(ragErrors.ProviderError, "upstream said: secret key invalid")
	}

	rec := env.do(http.MethodPost, "/chat", chatBody("hello", ""))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var res api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Model provider unavailable", res.Error.Message)
	assert.Equal(t, "trace-test", res.TraceId)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestChatHandler_ErrorEventSkipsHistory(t *testing.T) {
	env := newTestEnv(t)
	env.rag.OnAnswer = func(ctx context.Context, req rag.AnswerRequest) (<-chan chatModel.StreamEvent, error) {
		return streamOf(
			chatModel.StreamEvent{Type: chatModel.EventSources},
			chatModel.StreamEvent{Type: chatModel.EventToken, Content: "partial"},
			chatModel.StreamEvent{Type: chatModel.EventError, Error: "generation failed"},
		), nil
	}

	rec := env.do(http.MethodPost, "/chat", chatBody("hello", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"sources", "token", "error"}, sseEvents(rec.Body.String()))

	history, err := env.messages.GetMessageHistory(context.Background(), rec.Header().Get("X-Chat-Id"))
	require.NoError(t, err)
	assert.Empty(t, history)
}

func multipartBody(t *testing.T, field string, files map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestPostIngestHandler(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.settings.Update(context.Background(), func(s *config.Settings) { s.Ingestion.ChunkSize = 300 })
	require.NoError(t, err)

	body, contentType := multipartBody(t, "documents", map[string]string{
		"sky.txt":   "The sky is blue.",
		"grass.txt": "Grass is green.",
	})
	req := httptest.NewRequest(http.MethodPost, "/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var res api.InitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Documents)
	assert.Equal(t, "status/"+res.Id, res.StatusURL)

	queued := <-env.jobs.JobChannel
	assert.Equal(t, res.Id, queued.Id)
	assert.Equal(t, 300, queued.Ingestion.ChunkSize)
	require.Len(t, queued.Documents, 2)
	for _, d := range queued.Documents {
		content, err := os.ReadFile(d.Path)
		require.NoError(t, err)
		assert.NotEmpty(t, content)
		assert.True(t, strings.HasPrefix(d.Path, env.dir))
	}

	status := env.do(http.MethodGet, "/status/"+res.Id, nil)
	require.Equal(t, http.StatusOK, status.Code)
	assert.Contains(t, status.Body.String(), `"status":"QUEUED"`)
}

func TestPostIngestHandler_NoFiles(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartBody(t, "unrelated", map[string]string{"a.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatusHandler_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/status/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentsAndCache(t *testing.T) {
	env := newTestEnv(t)
	env.rag.OnCount = func(ctx context.Context) (int, error) { return 12, nil }
	env.rag.OnClear = func(ctx context.Context) (int, error) {
		return 0, ragErrors.Newf(ragErrors.StoreError, "connection refused")
	}

	rec := env.do(http.MethodGet, "/documents/count", nil)
	assert.JSONEq(t, `{"count":12}`, rec.Body.String())

	rec = env.do(http.MethodDelete, "/documents", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(http.MethodDelete, "/cache", nil)
	assert.JSONEq(t, `{"removed":3}`, rec.Body.String())
	assert.True(t, env.rag.CacheCleared)

	rec = env.do(http.MethodGet, "/cache/count", nil)
	assert.JSONEq(t, `{"count":7}`, rec.Body.String())
}

func TestSettingsHandlers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPut, "/settings", strings.NewReader(`{"retrieval":{"top_k":9}}`))
	require.Equal(t, http.StatusOK, rec.Code)
	got := env.settings.Snapshot()
	assert.Equal(t, 9, got.Retrieval.TopK)
	assert.Equal(t, config.DefaultScoreThreshold, got.Retrieval.ScoreThreshold)

	rec = env.do(http.MethodPut, "/settings", strings.NewReader(`{"ingestion":{"chunk_size":10,"chunk_overlap":10}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "chunk_overlap")
	assert.Equal(t, 9, env.settings.Snapshot().Retrieval.TopK)

	rec = env.do(http.MethodPost, "/settings/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, config.DefaultSettings(), env.settings.Snapshot())

	rec = env.do(http.MethodGet, "/settings", nil)
	var current config.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, config.DefaultSettings(), current)
}

func TestGetLogsHandler(t *testing.T) {
	env := newTestEnv(t)
	for _, msg := range []string{"one", "two", "three"} {
		env.hub.Publish(observability.Event{Level: observability.LevelInfo, Category: observability.CategoryCache, Message: msg})
	}

	rec := env.do(http.MethodGet, "/logs?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []observability.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "two", events[0].Message)
	assert.Equal(t, "three", events[1].Message)

	rec = env.do(http.MethodGet, "/logs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamLogsHandler(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/logs/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// the subscription is registered before the headers are flushed, publish until something arrives
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				env.hub.Publish(observability.Event{Level: observability.LevelWarn, Category: observability.CategoryRetrieval, Message: "live"})
			}
		}
	}()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: log\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"message":"live"`)
}

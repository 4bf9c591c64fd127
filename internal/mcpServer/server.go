package mcpServer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/rag"
	"github.com/akolanti/ragstream/internal/settings"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "ragstream"
	serverVersion = "1.0.0"
	maxTopK       = 50
)

var logger = logger_i.NewLogger("MCP")

type SearchInput struct {
	Query string `json:"query" jsonschema:"text to look up in the ingested documents"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of passages to return, the configured top_k when omitted"`
}

type PassageResult struct {
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

type SearchOutput struct {
	Passages []PassageResult `json:"passages"`
}

type AskInput struct {
	Question string `json:"question" jsonschema:"question answered from the ingested documents"`
}

type AskOutput struct {
	Answer  string                `json:"answer"`
	Cached  bool                  `json:"cached"`
	Sources []chatModel.SourceRef `json:"sources"`
}

type tools struct {
	rag      rag.Service
	settings *settings.Store
}

// NewServer exposes document search and question answering as MCP tools. Each call reads a fresh settings
// snapshot, the same way an HTTP request does.
func NewServer(svc rag.Service, st *settings.Store) *mcp.Server {
	t := &tools{rag: svc, settings: st}
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over the ingested documents. Returns the closest passages that pass the score threshold.",
	}, t.searchDocuments)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the ingested documents, citing sources as [Source N].",
	}, t.ask)
	return server
}

// NewHandler serves the server over streamable HTTP. Requests are independent, so no session is kept.
func NewHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true})
}

func (t *tools) searchDocuments(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, SearchOutput{}, errors.New("query must not be empty")
	}
	retrieval := t.settings.Snapshot().Retrieval
	if in.TopK > 0 {
		retrieval.TopK = min(in.TopK, maxTopK)
	}

	passages, err := t.rag.Search(ctx, in.Query, retrieval)
	if err != nil {
		return nil, SearchOutput{}, publicError(ctx, "search_documents", err)
	}
	out := SearchOutput{Passages: make([]PassageResult, 0, len(passages))}
	for _, p := range passages {
		out.Passages = append(out.Passages, PassageResult{
			Filename:   p.Filename,
			ChunkIndex: p.ChunkIndex,
			Similarity: p.Similarity(),
			Content:    p.Content,
		})
	}
	return nil, out, nil
}

func (t *tools) ask(ctx context.Context, req *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
	question := chatModel.Message{Role: chatModel.RoleUser, Content: in.Question}
	events, err := t.rag.Answer(ctx, rag.AnswerRequest{
		Messages: []chatModel.Message{question},
		Settings: t.settings.Snapshot(),
	})
	if err != nil {
		return nil, AskOutput{}, publicError(ctx, "ask", err)
	}

	out := AskOutput{Sources: []chatModel.SourceRef{}}
	var answer strings.Builder
	for event := range events {
		switch event.Type {
		case chatModel.EventSources:
			if event.Sources != nil {
				out.Sources = event.Sources
			}
		case chatModel.EventToken:
			answer.WriteString(event.Content)
		case chatModel.EventCached:
			out.Cached = true
			answer.WriteString(event.Content)
		case chatModel.EventError:
			return nil, AskOutput{}, errors.New(event.Error)
		}
	}
	if ctx.Err() != nil {
		return nil, AskOutput{}, ctx.Err()
	}
	out.Answer = answer.String()
	return nil, out, nil
}

func publicError(ctx context.Context, tool string, err error) error {
	logger.WithTrace(ctx).Warn("tool call failed", "tool", tool, "error", err)
	switch ragErrors.KindOf(err) {
	case ragErrors.InvalidInput:
		return errors.New("invalid input")
	case ragErrors.ProviderError:
		return errors.New("model provider unavailable")
	case ragErrors.StoreError:
		return errors.New("vector store unavailable")
	default:
		return errors.New("internal error")
	}
}

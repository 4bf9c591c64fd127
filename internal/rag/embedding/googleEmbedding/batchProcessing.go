package googleEmbedding

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/ragstream/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var retryDelay = 5 * time.Second

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}

// withRetry retries a rate limited call once after retryDelay. Anything else is returned as is.
func withRetry[T any](ctx context.Context, log *logger_i.Logger, call func() (T, error)) (T, error) {
	res, err := call()
	if !isRateLimited(err) {
		return res, err
	}
	log.Warn("Rate limit hit, retrying", "delay", retryDelay, "error", err)

	select {
	case <-ctx.Done():
		return res, ctx.Err()
	case <-time.After(retryDelay):
	}
	return call()
}

func vectorsFrom(res *genai.EmbedContentResponse) [][]float32 {
	if res == nil {
		return nil
	}
	out := make([][]float32, 0, len(res.Embeddings))
	for _, e := range res.Embeddings {
		if e == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, e.Values)
	}
	return out
}

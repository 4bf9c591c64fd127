package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/ragstream/internal/adapter"
	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, traceId string, message string) {
	writeJsonResponse(w, httpCode, adapter.ToErrorResponse(traceId, message, httpCode))
}

// writeRagError maps a pipeline error to its status with a message that does not leak provider detail.
func writeRagError(w http.ResponseWriter, ctx context.Context, err error) {
	status := ragErrors.HTTPStatus(err)
	message := "Internal error"
	switch ragErrors.KindOf(err) {
	case ragErrors.InvalidInput:
		message = "Invalid request"
	case ragErrors.UnsupportedType:
		message = "Unsupported document type"
	case ragErrors.ProviderError:
		message = "Model provider unavailable"
	case ragErrors.StoreError:
		message = "Vector store unavailable"
	}
	logRH.WithTrace(ctx).Warn("request failed", "status", status, "error", err)
	WriteErrorResponse(w, status, traceIdOf(ctx), message)
}

func traceIdOf(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.WithTrace(ctx).Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

func getTargetDirectory(dir string) (string, error) {
	if dir == "" {
		dir = config.UploadDir
	}
	if !filepath.IsAbs(dir) {
		root, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(root, dir)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}

// sseWriter frames values as server sent events and flushes after each one.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	// streams outlive the server write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logRH.Warn("could not clear write deadline", "error", err)
	}
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, rc: rc}
}

func (s *sseWriter) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

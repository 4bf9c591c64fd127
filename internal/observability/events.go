package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/akolanti/ragstream/internal/config"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Category string

const (
	CategoryRetrieval  Category = "retrieval"
	CategoryCache      Category = "cache"
	CategoryGeneration Category = "generation"
	CategoryIngestion  Category = "ingestion"
	CategorySettings   Category = "settings"
)

// Event is one structured pipeline record.
type Event struct {
	Time     time.Time      `json:"time"`
	Level    Level          `json:"level"`
	Category Category       `json:"category"`
	Message  string         `json:"message"`
	TraceId  string         `json:"trace_id,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// Sink receives pipeline events. Publish must not block the caller for long.
type Sink interface {
	Publish(Event)
}

type NopSink struct{}

func (NopSink) Publish(Event) {}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Record publishes an event tagged with the trace id carried by ctx. A nil sink drops it.
func Record(ctx context.Context, sink Sink, level Level, category Category, msg string, details map[string]any) {
	if sink == nil {
		return
	}
	e := Event{
		Time:     time.Now().UTC(),
		Level:    level,
		Category: category,
		Message:  msg,
		Details:  details,
	}
	if ctx != nil {
		if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
			e.TraceId = trace
		}
	}
	sink.Publish(e)
}

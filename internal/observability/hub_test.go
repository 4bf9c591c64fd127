package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Publish(e Event) {
	r.events = append(r.events, e)
}

func TestRingKeepsNewest(t *testing.T) {
	r := newRing(3)
	assert.Empty(t, r.last(0))

	for i := 0; i < 5; i++ {
		r.push(Event{Message: fmt.Sprint(i)})
	}
	got := r.last(0)
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[0].Message)
	assert.Equal(t, "4", got[2].Message)

	two := r.last(2)
	require.Len(t, two, 2)
	assert.Equal(t, "3", two[0].Message)
	assert.Equal(t, "4", two[1].Message)

	assert.Len(t, r.last(10), 3)
}

func TestHubRecent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx, 2, 4)

	hub.Publish(Event{Level: LevelInfo, Category: CategoryCache, Message: "one"})
	hub.Publish(Event{Level: LevelWarn, Category: CategoryCache, Message: "two"})
	hub.Publish(Event{Level: LevelError, Category: CategoryGeneration, Message: "three"})

	recent := hub.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Message)
	assert.Equal(t, "three", recent[1].Message)
	assert.False(t, recent[0].Time.IsZero())
}

func TestHubSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx, 10, 4)

	events, unsubscribe := hub.Subscribe()
	hub.Publish(Event{Message: "hello"})

	select {
	case e := <-events:
		assert.Equal(t, "hello", e.Message)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-events
	assert.False(t, open)
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx, 100, 1)

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	for i := 0; i < 20; i++ {
		hub.Publish(Event{Message: fmt.Sprint(i)})
	}
	assert.Len(t, hub.Recent(0), 20)
	assert.Len(t, events, 1)
}

func TestHubShutdownClosesSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(ctx, 10, 4)
	events, _ := hub.Subscribe()

	cancel()
	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed on shutdown")
	}

	hub.Publish(Event{Message: "after shutdown"})
	assert.Nil(t, hub.Recent(0))
}

func TestRecordAddsTraceId(t *testing.T) {
	sink := &recordingSink{}
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "trace-1")

	Record(ctx, sink, LevelInfo, CategoryRetrieval, "retrieved", map[string]any{"count": 2})
	Record(ctx, nil, LevelInfo, CategoryRetrieval, "dropped", nil)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "trace-1", sink.events[0].TraceId)
	assert.Equal(t, CategoryRetrieval, sink.events[0].Category)
	assert.Equal(t, 2, sink.events[0].Details["count"])
}

package observability

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/pkg/logger_i"
)

var logger = logger_i.NewLogger("Events")

type subscription struct {
	id int
	ch chan Event
}

type recentRequest struct {
	n     int
	reply chan []Event
}

// Hub owns the event ring buffer. All state lives in the run goroutine and is reached through channels.
type Hub struct {
	publishCh     chan Event
	subscribeCh   chan subscription
	unsubscribeCh chan int
	recentCh      chan recentRequest
	done          chan struct{}

	subscriberBuffer int
	nextId           int
	idMu             sync.Mutex
}

// NewHub starts the hub. It stops, closing every subscriber channel, when ctx is done.
func NewHub(ctx context.Context, capacity, subscriberBuffer int) *Hub {
	if capacity <= 0 {
		capacity = config.EventBufferSize
	}
	if subscriberBuffer <= 0 {
		subscriberBuffer = config.EventSubscriberBuffer
	}
	h := &Hub{
		publishCh:        make(chan Event),
		subscribeCh:      make(chan subscription),
		unsubscribeCh:    make(chan int),
		recentCh:         make(chan recentRequest),
		done:             make(chan struct{}),
		subscriberBuffer: subscriberBuffer,
	}
	go h.run(ctx, capacity)
	return h
}

// Publish logs the event and hands it to the hub. After shutdown events are only logged.
func (h *Hub) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	logEvent(e)
	select {
	case h.publishCh <- e:
	case <-h.done:
	}
}

// Subscribe returns a channel of live events and a cancel func. A subscriber that falls behind loses events.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.idMu.Lock()
	h.nextId++
	id := h.nextId
	h.idMu.Unlock()

	sub := subscription{id: id, ch: make(chan Event, h.subscriberBuffer)}
	select {
	case h.subscribeCh <- sub:
	case <-h.done:
		close(sub.ch)
		return sub.ch, func() {}
	}

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			select {
			case h.unsubscribeCh <- id:
			case <-h.done:
			}
		})
	}
}

// Recent returns up to n of the newest events, oldest first. n <= 0 returns the whole buffer.
func (h *Hub) Recent(n int) []Event {
	req := recentRequest{n: n, reply: make(chan []Event, 1)}
	select {
	case h.recentCh <- req:
		return <-req.reply
	case <-h.done:
		return nil
	}
}

func (h *Hub) run(ctx context.Context, capacity int) {
	ring := newRing(capacity)
	subscribers := make(map[int]chan Event)

	defer func() {
		close(h.done)
		for _, ch := range subscribers {
			close(ch)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("event hub stopped")
			return
		case e := <-h.publishCh:
			ring.push(e)
			for id, ch := range subscribers {
				select {
				case ch <- e:
				default:
					logger.Debug("dropping event for slow subscriber", "subscriber", id)
				}
			}
		case sub := <-h.subscribeCh:
			subscribers[sub.id] = sub.ch
		case id := <-h.unsubscribeCh:
			if ch, ok := subscribers[id]; ok {
				delete(subscribers, id)
				close(ch)
			}
		case req := <-h.recentCh:
			req.reply <- ring.last(req.n)
		}
	}
}

func logEvent(e Event) {
	args := []any{"category", e.Category}
	if e.TraceId != "" {
		args = append(args, "traceId", e.TraceId)
	}
	for k, v := range e.Details {
		args = append(args, k, v)
	}
	logger.Log(e.Level.slogLevel(), e.Message, args...)
}

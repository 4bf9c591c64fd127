package llm

import (
	"context"
	"sync"
)

// Producer pushes fragments through emit until the completion ends. emit fails once the stream is closed.
type Producer func(ctx context.Context, emit func(fragment string) error) error

// ChannelStream adapts a push style producer, such as a streaming callback, to the Stream pull handle.
type ChannelStream struct {
	fragments chan string
	cancel    context.CancelFunc

	current string
	err     error
	once    sync.Once
}

func NewChannelStream(ctx context.Context, produce Producer) *ChannelStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &ChannelStream{
		fragments: make(chan string),
		cancel:    cancel,
	}

	go func() {
		defer close(s.fragments)
		err := produce(ctx, func(fragment string) error {
			select {
			case s.fragments <- fragment:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		// written before fragments is closed, read only after Next observes the close
		s.err = err
	}()
	return s
}

func (s *ChannelStream) Next() bool {
	fragment, ok := <-s.fragments
	if !ok {
		return false
	}
	s.current = fragment
	return true
}

func (s *ChannelStream) Fragment() string {
	return s.current
}

func (s *ChannelStream) Err() error {
	return s.err
}

func (s *ChannelStream) Close() error {
	s.once.Do(func() {
		s.cancel()
		for range s.fragments {
		}
	})
	return nil
}

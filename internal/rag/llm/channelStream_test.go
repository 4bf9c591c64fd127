package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(s Stream) []string {
	var out []string
	for s.Next() {
		out = append(out, s.Fragment())
	}
	return out
}

func TestChannelStreamRelaysInOrder(t *testing.T) {
	s := NewChannelStream(context.Background(), func(ctx context.Context, emit func(string) error) error {
		for _, f := range []string{"The ", "sky ", "is ", "blue."} {
			if err := emit(f); err != nil {
				return err
			}
		}
		return nil
	})
	defer s.Close()

	assert.Equal(t, []string{"The ", "sky ", "is ", "blue."}, collect(s))
	assert.NoError(t, s.Err())
}

func TestChannelStreamReportsProducerError(t *testing.T) {
	boom := errors.New("connection reset")
	s := NewChannelStream(context.Background(), func(ctx context.Context, emit func(string) error) error {
		_ = emit("partial")
		return boom
	})
	defer s.Close()

	assert.Equal(t, []string{"partial"}, collect(s))
	assert.ErrorIs(t, s.Err(), boom)
}

func TestChannelStreamCloseCancelsProducer(t *testing.T) {
	stopped := make(chan error, 1)
	s := NewChannelStream(context.Background(), func(ctx context.Context, emit func(string) error) error {
		for {
			if err := emit("tick"); err != nil {
				stopped <- err
				return err
			}
		}
	})

	require.True(t, s.Next())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("producer was not cancelled")
	}
	assert.False(t, s.Next())
}

func TestChannelStreamParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewChannelStream(ctx, func(ctx context.Context, emit func(string) error) error {
		<-ctx.Done()
		return ctx.Err()
	})
	defer s.Close()

	cancel()
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), context.Canceled)
}

package ragErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("search passages: %w", New(StoreError, "qdrant query", base))

	assert.True(t, Is(err, StoreError))
	assert.False(t, Is(err, ProviderError))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, StoreError, KindOf(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(InvalidInput, "answer", nil), http.StatusBadRequest},
		{New(UnsupportedType, "parse", nil), http.StatusUnsupportedMediaType},
		{New(ProviderError, "embed", nil), http.StatusBadGateway},
		{New(StoreError, "search", nil), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "ProviderError: embed batch 2: boom", New(ProviderError, "embed batch 2", errors.New("boom")).Error())
	assert.Equal(t, "InvalidInput: no user message", Newf(InvalidInput, "no user message").Error())
	assert.False(t, Is(nil, InvalidInput))
}

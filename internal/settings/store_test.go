package settings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockPersister struct {
	OnLoad func(ctx context.Context) (config.Settings, bool, error)
	OnSave func(ctx context.Context, s config.Settings) error
}

func (m *MockPersister) Load(ctx context.Context) (config.Settings, bool, error) {
	if m.OnLoad == nil {
		return config.Settings{}, false, nil
	}
	return m.OnLoad(ctx)
}

func (m *MockPersister) Save(ctx context.Context, s config.Settings) error {
	if m.OnSave == nil {
		return nil
	}
	return m.OnSave(ctx, s)
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, config.DefaultSettings(), nil, nil)
	require.NoError(t, err)

	before := s.Snapshot()
	updated, err := s.Update(ctx, func(c *config.Settings) { c.Retrieval.TopK = 9 })
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Retrieval.TopK)
	assert.Equal(t, 9, s.Snapshot().Retrieval.TopK)
	assert.Equal(t, config.DefaultTopK, before.Retrieval.TopK, "earlier snapshot must not change")
}

func TestStoreRejectsInvalidUpdate(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, config.DefaultSettings(), nil, nil)
	require.NoError(t, err)

	_, err = s.Update(ctx, func(c *config.Settings) {
		c.Retrieval.TopK = 12
		c.Ingestion.ChunkOverlap = c.Ingestion.ChunkSize
	})
	require.Error(t, err)
	assert.True(t, ragErrors.Is(err, ragErrors.InvalidInput))
	assert.Equal(t, config.DefaultTopK, s.Snapshot().Retrieval.TopK, "no partial apply")
}

func TestStoreReset(t *testing.T) {
	ctx := context.Background()
	base := config.DefaultSettings()
	base.Cache.Enabled = false
	s, err := NewStore(ctx, base, nil, nil)
	require.NoError(t, err)

	_, err = s.Update(ctx, func(c *config.Settings) { c.Cache.Enabled = true })
	require.NoError(t, err)
	assert.Equal(t, base, s.Reset(ctx))
	assert.False(t, s.Snapshot().Cache.Enabled)
}

func TestStorePersistence(t *testing.T) {
	ctx := context.Background()
	saved := config.DefaultSettings()
	saved.Retrieval.TopK = 7

	var written []config.Settings
	p := &MockPersister{
		OnLoad: func(ctx context.Context) (config.Settings, bool, error) { return saved, true, nil },
		OnSave: func(ctx context.Context, s config.Settings) error {
			written = append(written, s)
			return errors.New("redis down")
		},
	}
	s, err := NewStore(ctx, config.DefaultSettings(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, s.Snapshot().Retrieval.TopK)

	_, err = s.Update(ctx, func(c *config.Settings) { c.Generation.Temperature = 0.5 })
	require.NoError(t, err, "a save failure does not fail the update")
	require.Len(t, written, 1)
	assert.Equal(t, 0.5, written[0].Generation.Temperature)
	assert.Equal(t, 0.5, s.Snapshot().Generation.Temperature)
}

func TestStoreIgnoresInvalidPersistedSettings(t *testing.T) {
	bad := config.DefaultSettings()
	bad.Retrieval.TopK = 0
	p := &MockPersister{OnLoad: func(ctx context.Context) (config.Settings, bool, error) { return bad, true, nil }}

	s, err := NewStore(context.Background(), config.DefaultSettings(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSettings(), s.Snapshot())
}

func TestStoreRejectsInvalidBase(t *testing.T) {
	bad := config.DefaultSettings()
	bad.Generation.Model = ""
	_, err := NewStore(context.Background(), bad, nil, nil)
	assert.Error(t, err)
}

func TestStoreConcurrentReadersSeeWholeValues(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, config.DefaultSettings(), nil, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_, _ = s.Update(ctx, func(c *config.Settings) {
				c.Retrieval.TopK = n
				c.Generation.MaxTokens = n
			})
		}(i)
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			if snap.Retrieval.TopK != config.DefaultTopK {
				assert.Equal(t, snap.Retrieval.TopK, snap.Generation.MaxTokens)
			}
		}()
	}
	wg.Wait()
}

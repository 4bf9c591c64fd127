package settings

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/internal/observability"
	"github.com/akolanti/ragstream/pkg/logger_i"
)

var logger = logger_i.NewLogger("Settings")

// Persister saves the live settings outside the process. Load reports found=false when nothing was saved.
type Persister interface {
	Load(ctx context.Context) (config.Settings, bool, error)
	Save(ctx context.Context, s config.Settings) error
}

// Store holds the live settings. Readers take a snapshot without locking; writers validate a copy and swap
// it in whole, so a reader never sees a half applied change.
type Store struct {
	current   atomic.Pointer[config.Settings]
	writeLock sync.Mutex
	base      config.Settings
	persister Persister
	sink      observability.Sink
}

// NewStore starts from base (defaults overlaid with the settings file), which is also the Reset target.
// A valid persisted copy wins over base.
func NewStore(ctx context.Context, base config.Settings, persister Persister, sink observability.Sink) (*Store, error) {
	if err := base.Validate(); err != nil {
		return nil, ragErrors.New(ragErrors.InvalidInput, "base settings", err)
	}
	if sink == nil {
		sink = observability.NopSink{}
	}
	s := &Store{base: base, persister: persister, sink: sink}
	initial := base

	if persister != nil {
		saved, found, err := persister.Load(ctx)
		switch {
		case err != nil:
			logger.Warn("could not load persisted settings, using base", "error", err)
		case found && saved.Validate() != nil:
			logger.Warn("persisted settings are invalid, using base", "error", saved.Validate())
		case found:
			logger.Info("loaded persisted settings")
			initial = saved
		}
	}
	s.current.Store(&initial)
	return s, nil
}

// Snapshot returns a copy of the live settings.
func (s *Store) Snapshot() config.Settings {
	return *s.current.Load()
}

// Update applies mutate to a copy. An invalid result is rejected with InvalidInput and the live settings
// stay untouched.
func (s *Store) Update(ctx context.Context, mutate func(*config.Settings)) (config.Settings, error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	next := *s.current.Load()
	mutate(&next)
	if err := next.Validate(); err != nil {
		return s.Snapshot(), ragErrors.New(ragErrors.InvalidInput, "update settings", err)
	}
	s.apply(ctx, next, "settings updated")
	return next, nil
}

// Replace swaps in a complete settings value, used by PUT /settings.
func (s *Store) Replace(ctx context.Context, next config.Settings) (config.Settings, error) {
	return s.Update(ctx, func(cur *config.Settings) { *cur = next })
}

func (s *Store) Reset(ctx context.Context) config.Settings {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	s.apply(ctx, s.base, "settings reset")
	return s.base
}

// apply must be called with writeLock held. A persistence failure is logged and does not undo the change.
func (s *Store) apply(ctx context.Context, next config.Settings, msg string) {
	s.current.Store(&next)

	details := map[string]any{
		"top_k":           next.Retrieval.TopK,
		"score_threshold": next.Retrieval.ScoreThreshold,
		"cache_enabled":   next.Cache.Enabled,
		"model":           next.Generation.Model,
	}
	observability.Record(ctx, s.sink, observability.LevelInfo, observability.CategorySettings, msg, details)

	if s.persister == nil {
		return
	}
	if err := s.persister.Save(ctx, next); err != nil {
		logger.WithTrace(ctx).Error("could not persist settings", "error", err)
		observability.Record(ctx, s.sink, observability.LevelWarn, observability.CategorySettings,
			"settings not persisted", map[string]any{"error": err.Error()})
	}
}

package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/data/redisStore"
)

// RedisSettingsPersister keeps the live settings as one JSON document so they survive a restart.
type RedisSettingsPersister struct {
	store *redisStore.Store
	key   string
}

func NewRedisSettingsPersister(store *redisStore.Store) *RedisSettingsPersister {
	return &RedisSettingsPersister{store: store, key: config.RedisSettingsKey}
}

// Load reports found=false when nothing has been saved yet.
func (p *RedisSettingsPersister) Load(ctx context.Context) (config.Settings, bool, error) {
	var s config.Settings
	val, err := p.store.Get(ctx, p.key)
	if p.store.IsNil(err) {
		return s, false, nil
	} else if err != nil {
		return s, false, err
	}
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return s, false, err
	}
	return s, true, nil
}

func (p *RedisSettingsPersister) Save(ctx context.Context, s config.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.store.Set(ctx, p.key, data, 0)
}

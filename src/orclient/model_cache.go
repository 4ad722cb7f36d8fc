package orclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/elee1766/booktutor/src/aisdk"
	"golang.org/x/sync/singleflight"
)

// ModelCache caches the model list of the API. Concurrent refreshes share
// one request.
type ModelCache struct {
	client *Client
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	models    map[string]*aisdk.ModelInfo
	list      []*aisdk.ModelInfo
	fetchedAt time.Time

	group singleflight.Group
}

// NewModelCache creates a new model cache
func NewModelCache(client *Client, ttl time.Duration) *ModelCache {
	return &ModelCache{client: client, ttl: ttl, now: time.Now}
}

// GetModel returns the model with the given id.
func (mc *ModelCache) GetModel(ctx context.Context, modelID string) (*aisdk.ModelInfo, error) {
	if _, err := mc.GetModelList(ctx); err != nil {
		return nil, err
	}
	mc.mu.RLock()
	model, ok := mc.models[modelID]
	mc.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
	}
	return model, nil
}

// GetModelList returns the cached list, refreshing it once the ttl passed.
func (mc *ModelCache) GetModelList(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	mc.mu.RLock()
	list, fetchedAt := mc.list, mc.fetchedAt
	mc.mu.RUnlock()
	if list != nil && mc.now().Sub(fetchedAt) < mc.ttl {
		return list, nil
	}

	v, err, _ := mc.group.Do("models", func() (any, error) {
		models, err := mc.client.listModelsUncached(ctx)
		if err != nil {
			return nil, err
		}
		index := make(map[string]*aisdk.ModelInfo, len(models))
		for _, m := range models {
			index[m.ID] = m
		}
		mc.mu.Lock()
		mc.list = models
		mc.models = index
		mc.fetchedAt = mc.now()
		mc.mu.Unlock()
		return models, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*aisdk.ModelInfo), nil
}

// ClearCache drops the cached list.
func (mc *ModelCache) ClearCache() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.list = nil
	mc.models = nil
}

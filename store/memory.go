package store

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type values struct {
	mu sync.RWMutex
	m  map[string]string
}

// MemoryBackend keeps sessions in process memory. Sessions idle for longer
// than the TTL are evicted.
type MemoryBackend struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	cleanup := ttl / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &MemoryBackend{cache: cache.New(ttl, cleanup)}
}

func (b *MemoryBackend) lookup(id string, create bool) *values {
	b.mu.Lock()
	defer b.mu.Unlock()

	if v, ok := b.cache.Get(id); ok {
		vals := v.(*values)
		// refresh the idle deadline
		b.cache.Set(id, vals, cache.DefaultExpiration)
		return vals
	}
	if !create {
		return nil
	}
	vals := &values{m: make(map[string]string, 1)}
	b.cache.Set(id, vals, cache.DefaultExpiration)
	return vals
}

func (b *MemoryBackend) Get(_ context.Context, id, key string) (string, bool, error) {
	vals := b.lookup(id, false)
	if vals == nil {
		return "", false, nil
	}
	vals.mu.RLock()
	defer vals.mu.RUnlock()
	v, ok := vals.m[key]
	return v, ok, nil
}

func (b *MemoryBackend) Set(_ context.Context, id, key, value string) error {
	vals := b.lookup(id, true)
	vals.mu.Lock()
	vals.m[key] = value
	vals.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Clear(_ context.Context, id string) error {
	b.cache.Delete(id)
	return nil
}

// Len reports the number of live sessions.
func (b *MemoryBackend) Len() int {
	return b.cache.ItemCount()
}

package cache

import (
	"context"
	"sync"

	"github.com/hszk-dev/atelier/internal/domain/repository"
	"github.com/hszk-dev/atelier/internal/infrastructure/metrics"
)

// MemoryMirror is an in-process CacheMirror. Listeners run synchronously
// after each write returns its lock.
type MemoryMirror struct {
	mu        sync.RWMutex
	values    map[repository.Collection][]byte
	listeners listeners
}

// NewMemoryMirror creates an empty in-process mirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{values: make(map[repository.Collection][]byte)}
}

func (m *MemoryMirror) Open(context.Context) error { return nil }

func (m *MemoryMirror) Read(_ context.Context, collection repository.Collection) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.values[collection]
	m.mu.RUnlock()

	if !ok {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpRead, metrics.CacheStatusMiss, metrics.CacheTypeMemory).Inc()
		return nil, nil
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpRead, metrics.CacheStatusHit, metrics.CacheTypeMemory).Inc()
	return append([]byte(nil), v...), nil
}

func (m *MemoryMirror) Write(_ context.Context, collection repository.Collection, value []byte) error {
	m.mu.Lock()
	m.values[collection] = append([]byte(nil), value...)
	m.mu.Unlock()

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpWrite, metrics.CacheStatusSuccess, metrics.CacheTypeMemory).Inc()
	m.listeners.notify(collection)
	return nil
}

func (m *MemoryMirror) OnChange(collection repository.Collection, fn func()) func() {
	return m.listeners.add(collection, fn)
}

func (m *MemoryMirror) Close() error { return nil }

var _ repository.CacheMirror = (*MemoryMirror)(nil)

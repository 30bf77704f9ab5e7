package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/atelier/internal/domain/repository"
	"github.com/hszk-dev/atelier/internal/infrastructure/metrics"
)

const (
	// mirrorKeyPrefix is the prefix for collection keys in Redis.
	mirrorKeyPrefix = "atelier:mirror:"

	// changeChannel carries the name of each written collection.
	changeChannel = "atelier:mirror:changed"
)

// RedisMirror implements repository.CacheMirror on Redis. Every collection is
// one string key; writes are announced on a pub/sub channel so listeners in
// this and other processes observe them.
type RedisMirror struct {
	client    *redis.Client
	logger    *slog.Logger
	listeners listeners

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisMirror creates a mirror over client. Call Open before OnChange
// listeners can fire.
func NewRedisMirror(client *redis.Client, logger *slog.Logger) *RedisMirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisMirror{client: client, logger: logger}
}

// Open subscribes to change notifications.
func (m *RedisMirror) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pubsub != nil {
		return nil
	}

	pubsub := m.client.Subscribe(ctx, changeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	m.pubsub = pubsub
	m.done = make(chan struct{})
	go m.dispatch(pubsub.Channel(), m.done)
	return nil
}

func (m *RedisMirror) dispatch(ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for msg := range ch {
		m.listeners.notify(repository.Collection(msg.Payload))
	}
}

// Read returns the stored collection value, or nil on a miss.
func (m *RedisMirror) Read(ctx context.Context, collection repository.Collection) ([]byte, error) {
	data, err := m.client.Get(ctx, mirrorKeyPrefix+string(collection)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpRead, metrics.CacheStatusMiss, metrics.CacheTypeRedis).Inc()
			return nil, nil
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpRead, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpRead, metrics.CacheStatusHit, metrics.CacheTypeRedis).Inc()
	return data, nil
}

// Write replaces the collection value and publishes a change notification.
// A failed publish is logged; the value is already stored.
func (m *RedisMirror) Write(ctx context.Context, collection repository.Collection, value []byte) error {
	if err := m.client.Set(ctx, mirrorKeyPrefix+string(collection), value, 0).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpWrite, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpWrite, metrics.CacheStatusSuccess, metrics.CacheTypeRedis).Inc()

	if err := m.client.Publish(ctx, changeChannel, string(collection)).Err(); err != nil {
		m.logger.Warn("failed to publish mirror change",
			slog.String("collection", string(collection)),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// OnChange registers fn for writes to collection from any process.
func (m *RedisMirror) OnChange(collection repository.Collection, fn func()) func() {
	return m.listeners.add(collection, fn)
}

// Close stops change dispatch. The Redis client is owned by the caller.
func (m *RedisMirror) Close() error {
	m.mu.Lock()
	pubsub, done := m.pubsub, m.done
	m.pubsub, m.done = nil, nil
	m.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	return err
}

var _ repository.CacheMirror = (*RedisMirror)(nil)

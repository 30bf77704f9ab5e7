package repository

import (
	"context"

	"github.com/hszk-dev/atelier/internal/domain/model"
)

// Collection names one whole-collection key of the cache mirror.
type Collection string

const (
	CollectionEvents Collection = "events"
	CollectionPhotos Collection = "photos"
	CollectionVideos Collection = "videos"
)

// CacheMirror is the local key-value surface used as the fast read path and
// offline fallback. Each collection is stored as one value; writes replace it
// whole and notify OnChange subscribers.
type CacheMirror interface {
	Open(ctx context.Context) error

	// Read returns nil when the collection has never been written.
	Read(ctx context.Context, collection Collection) ([]byte, error)
	Write(ctx context.Context, collection Collection, value []byte) error

	// OnChange registers fn for writes to collection. The returned func unregisters it.
	OnChange(collection Collection, fn func()) (cancel func())

	Close() error
}

// MediaCache is the typed view of the cache mirror the engine works with.
type MediaCache interface {
	Events(ctx context.Context) ([]*model.Event, error)
	SaveEvents(ctx context.Context, events []*model.Event) error
	Photos(ctx context.Context) ([]*model.Photo, error)
	SavePhotos(ctx context.Context, photos []*model.Photo) error
	Videos(ctx context.Context) ([]*model.Video, error)
	SaveVideos(ctx context.Context, videos []*model.Video) error
}

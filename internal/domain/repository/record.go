package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/hszk-dev/atelier/internal/domain/model"
)

// EventRepository defines persistence operations for events.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type EventRepository interface {
	// Create inserts the event and returns the identifier assigned by the store.
	// Returns ErrDuplicateSlug if the slug is taken.
	Create(ctx context.Context, event *model.Event) (uuid.UUID, error)

	// GetByID returns ErrEventNotFound if the event does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)

	// GetBySlug returns ErrEventNotFound if no event has the slug.
	GetBySlug(ctx context.Context, slug string) (*model.Event, error)

	// GetLatest returns the most recently created event.
	GetLatest(ctx context.Context) (*model.Event, error)

	// Update persists title, category, cover, visibility and featured flags.
	// Returns ErrEventNotFound if the event does not exist.
	Update(ctx context.Context, id uuid.UUID, event *model.Event) error

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBySlug(ctx context.Context, slug string) error
}

// PhotoRepository defines persistence operations for photos.
type PhotoRepository interface {
	// Create inserts the photo under photo.EventRemoteID and returns its identifier.
	// Returns ErrEventNotFound if the event row does not exist.
	Create(ctx context.Context, photo *model.Photo) (uuid.UUID, error)

	// GetByID returns ErrPhotoNotFound if the photo does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Photo, error)

	// ListByEventIDs returns the photos referencing any of the given event ids.
	ListByEventIDs(ctx context.Context, eventIDs []uuid.UUID) ([]*model.Photo, error)

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByURL(ctx context.Context, url string) error

	// DeleteByEventIDs removes every photo of the given events and reports how many rows went.
	DeleteByEventIDs(ctx context.Context, eventIDs []uuid.UUID) (int64, error)
}

// VideoRepository defines persistence operations for videos.
type VideoRepository interface {
	// Create inserts the video under video.EventRemoteID and returns its identifier.
	// Returns ErrEventNotFound if the event row does not exist.
	Create(ctx context.Context, video *model.Video) (uuid.UUID, error)

	// GetByID returns ErrVideoNotFound if the video does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error)

	ListByEventIDs(ctx context.Context, eventIDs []uuid.UUID) ([]*model.Video, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByURL(ctx context.Context, url string) error
	DeleteByEventIDs(ctx context.Context, eventIDs []uuid.UUID) (int64, error)
}

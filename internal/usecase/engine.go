package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
	"github.com/hszk-dev/atelier/internal/infrastructure/metrics"
)

var (
	// ErrEventRemoteIDUnresolved is returned when an event has no record store
	// id and none could be found. No rows are written in that case.
	ErrEventRemoteIDUnresolved = errors.New("event is not synced to the record store")

	// ErrSlugConflict is returned when every slug attempt collided.
	ErrSlugConflict = errors.New("event slug is already taken")

	// ErrRecordStoreSync marks a record store write that failed after the
	// local state was already updated.
	ErrRecordStoreSync = errors.New("record store sync failed")

	ErrEventNotFound = errors.New("event not found")
	ErrPhotoNotFound = errors.New("photo not found")
	ErrVideoNotFound = errors.New("video not found")
)

// BatchUploader uploads a batch of local files into a folder.
type BatchUploader interface {
	Upload(ctx context.Context, files []FileHandle, folder model.Folder, opts UploadOptions) (*BatchResult, error)
}

var _ BatchUploader = (*Uploader)(nil)

// MediaEngineDeps are the stores the engine keeps consistent.
type MediaEngineDeps struct {
	Events   repository.EventRepository
	Photos   repository.PhotoRepository
	Videos   repository.VideoRepository
	Cache    repository.MediaCache
	Gateway  repository.ObjectGateway
	Uploader BatchUploader

	// Tasks is optional. When set, failed object deletes are queued for retry
	// and thumbnail generation is requested for new uploads.
	Tasks repository.TaskQueue
}

// MediaEngineConfig holds configuration for MediaEngine.
type MediaEngineConfig struct {
	// SlugRetries bounds how many regenerated slugs are tried after a conflict.
	SlugRetries int
	// DeleteTimeout bounds each object store delete.
	DeleteTimeout time.Duration
}

// DefaultMediaEngineConfig returns the default configuration.
func DefaultMediaEngineConfig() MediaEngineConfig {
	return MediaEngineConfig{
		SlugRetries:   1,
		DeleteTimeout: 15 * time.Second,
	}
}

// MediaEngine owns every write to the cache mirror, the record store and
// the object store for events, photos and videos.
type MediaEngine struct {
	events   repository.EventRepository
	photos   repository.PhotoRepository
	videos   repository.VideoRepository
	cache    repository.MediaCache
	gateway  repository.ObjectGateway
	uploader BatchUploader
	tasks    repository.TaskQueue

	cfg    MediaEngineConfig
	logger *slog.Logger

	sfGroup singleflight.Group

	// mu serializes read-modify-write cycles on cached collections.
	mu sync.Mutex
}

// NewMediaEngine creates a new MediaEngine.
func NewMediaEngine(deps MediaEngineDeps, cfg MediaEngineConfig, logger *slog.Logger) *MediaEngine {
	if cfg.SlugRetries < 0 {
		cfg.SlugRetries = 0
	}
	if cfg.DeleteTimeout <= 0 {
		cfg.DeleteTimeout = DefaultMediaEngineConfig().DeleteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaEngine{
		events:   deps.Events,
		photos:   deps.Photos,
		videos:   deps.Videos,
		cache:    deps.Cache,
		gateway:  deps.Gateway,
		uploader: deps.Uploader,
		tasks:    deps.Tasks,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateEventInput contains the input parameters for creating an event.
type CreateEventInput struct {
	Title    string
	Slug     string
	Category string
	Visible  bool
	Featured bool
}

// CreateEventOutput contains the created event. SyncErr is set when the event
// was kept locally because the record store could not be reached.
type CreateEventOutput struct {
	Event   *model.Event
	SyncErr error
}

// CreateEvent stores the event in the cache first and then inserts it into
// the record store, regenerating the slug on conflict.
func (e *MediaEngine) CreateEvent(ctx context.Context, input CreateEventInput) (*CreateEventOutput, error) {
	event, err := model.NewEvent(input.Title, input.Slug, input.Category)
	if err != nil {
		return nil, err
	}
	event.Visible = input.Visible
	event.Featured = input.Featured

	e.saveEvent(ctx, event)

	remoteID, err := e.insertEvent(ctx, event)
	switch {
	case err == nil:
		event.RemoteID = remoteID
		e.saveEvent(ctx, event)
		return &CreateEventOutput{Event: event}, nil
	case errors.Is(err, ErrSlugConflict):
		e.removeEvent(ctx, event)
		return nil, err
	default:
		e.logger.Warn("event kept locally, record store insert failed",
			"event_id", event.ID,
			"slug", event.Slug,
			"error", err,
		)
		return &CreateEventOutput{
			Event:   event,
			SyncErr: fmt.Errorf("%w: %v", ErrRecordStoreSync, err),
		}, nil
	}
}

type slugState int

const (
	slugAttempt slugState = iota
	slugConflictDetected
	slugRegenerateKey
	slugRetryOnce
	slugGiveUp
)

// insertEvent runs Attempt -> ConflictDetected -> RegenerateKey -> RetryOnce,
// looping back to ConflictDetected until SlugRetries is spent and then GiveUp.
func (e *MediaEngine) insertEvent(ctx context.Context, event *model.Event) (uuid.UUID, error) {
	base := event.Slug
	retries := 0
	state := slugAttempt

	for {
		switch state {
		case slugAttempt, slugRetryOnce:
			id, err := e.events.Create(ctx, event)
			if err == nil {
				return id, nil
			}
			if !errors.Is(err, repository.ErrDuplicateSlug) {
				return uuid.Nil, err
			}
			state = slugConflictDetected

		case slugConflictDetected:
			if retries >= e.cfg.SlugRetries {
				state = slugGiveUp
			} else {
				state = slugRegenerateKey
			}

		case slugRegenerateKey:
			retries++
			event.Slug = regenerateSlug(base)
			e.logger.Info("event slug taken, retrying", "base", base, "slug", event.Slug)
			state = slugRetryOnce

		case slugGiveUp:
			return uuid.Nil, fmt.Errorf("%w: %s", ErrSlugConflict, base)
		}
	}
}

func regenerateSlug(base string) string {
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// EventDetails lists the fields UpdateEventDetails may change. Nil fields are kept.
type EventDetails struct {
	Title    *string
	Category *string
	Visible  *bool
	Featured *bool
}

// UpdateEventDetails writes the record store first and mirrors the result
// into the cache. Events that were never synced are updated locally only.
func (e *MediaEngine) UpdateEventDetails(ctx context.Context, eventID uuid.UUID, details EventDetails) (*model.Event, error) {
	event, err := e.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	updated := *event
	if details.Title != nil {
		title := strings.TrimSpace(*details.Title)
		if title == "" {
			return nil, model.ErrEmptyTitle
		}
		updated.Title = title
	}
	if details.Category != nil {
		updated.Category = *details.Category
	}
	if details.Visible != nil {
		updated.Visible = *details.Visible
	}
	if details.Featured != nil {
		updated.Featured = *details.Featured
	}
	updated.UpdatedAt = time.Now()

	if updated.HasRemoteID() {
		if err := e.events.Update(ctx, updated.RemoteID, &updated); err != nil {
			return nil, fmt.Errorf("%w: update event: %v", ErrRecordStoreSync, err)
		}
	}

	e.saveEvent(ctx, &updated)
	return &updated, nil
}

// FindEvent looks an event up by id or slug, in the cache and then the record store.
func (e *MediaEngine) FindEvent(ctx context.Context, ref string) (*model.Event, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return e.findEvent(ctx, id)
	}

	slug := model.Slugify(ref)
	for _, event := range e.cachedEvents(ctx) {
		if event.Slug == slug {
			return event, nil
		}
	}

	event, err := e.events.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event by slug: %w", err)
	}
	e.saveEvent(ctx, event)
	return event, nil
}

func (e *MediaEngine) findEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	for _, event := range e.cachedEvents(ctx) {
		if event.Matches(id) {
			return event, nil
		}
	}

	event, err := e.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	e.saveEvent(ctx, event)
	return event, nil
}

// resolveRemoteID returns the event's record store id, looking it up by slug
// and then falling back to the most recent event. Concurrent callers for the
// same event share one lookup. A resolved id is written back to the cache.
func (e *MediaEngine) resolveRemoteID(ctx context.Context, event *model.Event) (uuid.UUID, error) {
	if event.HasRemoteID() {
		return event.RemoteID, nil
	}

	v, err, shared := e.sfGroup.Do(event.ID.String(), func() (any, error) {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()

		found, err := e.events.GetBySlug(ctx, event.Slug)
		if err != nil {
			e.logger.Warn("event slug lookup failed, falling back to latest event",
				"event_id", event.ID,
				"slug", event.Slug,
				"error", err,
			)
			found, err = e.events.GetLatest(ctx)
		}
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %v", ErrEventRemoteIDUnresolved, err)
		}
		if found.RemoteID == uuid.Nil {
			return uuid.Nil, ErrEventRemoteIDUnresolved
		}
		return found.RemoteID, nil
	})
	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	}
	if err != nil {
		return uuid.Nil, err
	}

	remoteID := v.(uuid.UUID)
	event.RemoteID = remoteID
	e.saveEvent(ctx, event)
	return remoteID, nil
}

// enqueue publishes task when a queue is configured. Failures are logged.
func (e *MediaEngine) enqueue(ctx context.Context, task repository.MediaTask) bool {
	if e.tasks == nil {
		return false
	}
	if err := e.tasks.PublishMediaTask(ctx, task); err != nil {
		e.logger.Warn("failed to publish media task",
			"kind", task.Kind,
			"url", task.URL,
			"error", err,
		)
		return false
	}
	return true
}

func (e *MediaEngine) warnCache(op string, err error) {
	e.logger.Warn("cache mirror operation failed", "operation", op, "error", err)
}

func (e *MediaEngine) cachedEvents(ctx context.Context) []*model.Event {
	events, err := e.cache.Events(ctx)
	if err != nil {
		e.warnCache("read events", err)
		return nil
	}
	return events
}

func (e *MediaEngine) saveEvent(ctx context.Context, event *model.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	events, err := e.cache.Events(ctx)
	if err != nil {
		e.warnCache("read events", err)
		return
	}

	replaced := false
	for i, cached := range events {
		if cached.ID == event.ID || (event.HasRemoteID() && cached.RemoteID == event.RemoteID) {
			events[i] = event
			replaced = true
			break
		}
	}
	if !replaced {
		events = append(events, event)
	}

	if err := e.cache.SaveEvents(ctx, events); err != nil {
		e.warnCache("save events", err)
	}
}

func (e *MediaEngine) removeEvent(ctx context.Context, event *model.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	events, err := e.cache.Events(ctx)
	if err != nil {
		e.warnCache("read events", err)
		return
	}
	kept := events[:0]
	for _, cached := range events {
		if cached.ID != event.ID {
			kept = append(kept, cached)
		}
	}
	if err := e.cache.SaveEvents(ctx, kept); err != nil {
		e.warnCache("save events", err)
	}
}

// updateCachedMedia applies fn to the cached photo and video collections
// under the cache lock and saves whichever collection fn reports as changed.
func (e *MediaEngine) updateCachedMedia(ctx context.Context, fn func(photos []*model.Photo, videos []*model.Video) ([]*model.Photo, []*model.Video, bool, bool)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	photos, err := e.cache.Photos(ctx)
	if err != nil {
		return fmt.Errorf("read photos: %w", err)
	}
	videos, err := e.cache.Videos(ctx)
	if err != nil {
		return fmt.Errorf("read videos: %w", err)
	}

	photos, videos, photosChanged, videosChanged := fn(photos, videos)

	if photosChanged {
		if err := e.cache.SavePhotos(ctx, photos); err != nil {
			return fmt.Errorf("save photos: %w", err)
		}
	}
	if videosChanged {
		if err := e.cache.SaveVideos(ctx, videos); err != nil {
			return fmt.Errorf("save videos: %w", err)
		}
	}
	return nil
}

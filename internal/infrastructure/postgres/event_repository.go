package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
	"github.com/hszk-dev/atelier/internal/infrastructure/metrics"
)

const eventColumns = `id, slug, title, category, cover_image_url, cover_thumbnail_url, is_visible, is_featured, created_at, updated_at`

// EventRepository implements repository.EventRepository using PostgreSQL.
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates a new EventRepository instance.
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts the event and returns the id assigned by the database.
func (r *EventRepository) Create(ctx context.Context, event *model.Event) (uuid.UUID, error) {
	const query = `
		INSERT INTO events (slug, title, category, cover_image_url, cover_thumbnail_url, is_visible, is_featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableEvents).Inc()

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		event.Slug,
		event.Title,
		nullString(event.Category),
		nullString(event.CoverImageURL),
		nullString(event.CoverThumbnailURL),
		event.Visible,
		event.Featured,
		event.CreatedAt,
		event.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return uuid.Nil, repository.ErrDuplicateSlug
		}
		return uuid.Nil, fmt.Errorf("failed to create event: %w", err)
	}

	return id, nil
}

// GetByID retrieves an event by its database id.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	const query = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.getOne(ctx, "by ID", query, id)
}

// GetBySlug retrieves an event by its slug.
func (r *EventRepository) GetBySlug(ctx context.Context, slug string) (*model.Event, error) {
	const query = `SELECT ` + eventColumns + ` FROM events WHERE slug = $1`
	return r.getOne(ctx, "by slug", query, slug)
}

// GetLatest retrieves the most recently created event.
func (r *EventRepository) GetLatest(ctx context.Context) (*model.Event, error) {
	const query = `SELECT ` + eventColumns + ` FROM events ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, "latest", query)
}

func (r *EventRepository) getOne(ctx context.Context, what, query string, args ...any) (*model.Event, error) {
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableEvents).Inc()

	row, err := scanEventRow(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %s: %w", what, err)
	}
	return row.toDomain(), nil
}

// Update persists the mutable fields of an event stored under id.
func (r *EventRepository) Update(ctx context.Context, id uuid.UUID, event *model.Event) error {
	const query = `
		UPDATE events
		SET title = $2, category = $3, cover_image_url = $4, cover_thumbnail_url = $5,
		    is_visible = $6, is_featured = $7, updated_at = $8
		WHERE id = $1
	`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableEvents).Inc()

	event.UpdatedAt = time.Now()

	tag, err := r.db.Exec(ctx, query,
		id,
		event.Title,
		nullString(event.Category),
		nullString(event.CoverImageURL),
		nullString(event.CoverThumbnailURL),
		event.Visible,
		event.Featured,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrEventNotFound
	}

	return nil
}

// Delete removes the event row. Removing a missing row is not an error.
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryDelete, metrics.TableEvents).Inc()

	if _, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// DeleteBySlug removes the event row with the given slug.
func (r *EventRepository) DeleteBySlug(ctx context.Context, slug string) error {
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryDelete, metrics.TableEvents).Inc()

	if _, err := r.db.Exec(ctx, `DELETE FROM events WHERE slug = $1`, slug); err != nil {
		return fmt.Errorf("failed to delete event by slug: %w", err)
	}
	return nil
}

// eventRow mirrors the events table. Nullable columns are pointers.
type eventRow struct {
	ID                uuid.UUID
	Slug              string
	Title             string
	Category          *string
	CoverImageURL     *string
	CoverThumbnailURL *string
	Visible           bool
	Featured          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func scanEventRow(row pgx.Row) (eventRow, error) {
	var r eventRow
	err := row.Scan(
		&r.ID,
		&r.Slug,
		&r.Title,
		&r.Category,
		&r.CoverImageURL,
		&r.CoverThumbnailURL,
		&r.Visible,
		&r.Featured,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

// toDomain maps a row to an Event. The database id is both the local and the
// remote id of an event loaded from the store. A missing updated_at falls back
// to created_at.
func (r eventRow) toDomain() *model.Event {
	updated := r.UpdatedAt
	if updated.IsZero() {
		updated = r.CreatedAt
	}
	return &model.Event{
		ID:                r.ID,
		RemoteID:          r.ID,
		Slug:              r.Slug,
		Title:             r.Title,
		Category:          deref(r.Category),
		CoverImageURL:     deref(r.CoverImageURL),
		CoverThumbnailURL: deref(r.CoverThumbnailURL),
		Visible:           r.Visible,
		Featured:          r.Featured,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         updated,
	}
}

// Compile-time verification that EventRepository implements repository.EventRepository.
var _ repository.EventRepository = (*EventRepository)(nil)

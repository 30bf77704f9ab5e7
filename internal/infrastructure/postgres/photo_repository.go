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

const photoColumns = `id, event_id, url, thumbnail_url, width, height, orientation, created_at`

// PhotoRepository implements repository.PhotoRepository using PostgreSQL.
type PhotoRepository struct {
	db DBTX
}

// NewPhotoRepository creates a new PhotoRepository instance.
func NewPhotoRepository(db DBTX) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts the photo under its event's remote id.
func (r *PhotoRepository) Create(ctx context.Context, photo *model.Photo) (uuid.UUID, error) {
	if err := photo.ReadyForInsert(); err != nil {
		return uuid.Nil, err
	}

	const query = `
		INSERT INTO photos (event_id, url, thumbnail_url, width, height, orientation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TablePhotos).Inc()

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		photo.EventRemoteID,
		photo.URL,
		nullString(photo.ThumbnailURL),
		photo.Width,
		photo.Height,
		nullString(string(photo.Orientation)),
		photo.CreatedAt,
	).Scan(&id)
	if err != nil {
		if hasCode(err, codeForeignKeyViolation) {
			return uuid.Nil, repository.ErrEventNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to create photo: %w", err)
	}

	return id, nil
}

// GetByID retrieves a photo by its database id.
func (r *PhotoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Photo, error) {
	const query = `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TablePhotos).Inc()

	row, err := scanPhotoRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrPhotoNotFound
		}
		return nil, fmt.Errorf("failed to get photo by ID: %w", err)
	}
	return row.toDomain(), nil
}

// ListByEventIDs retrieves the photos of any of the given events, oldest first.
func (r *PhotoRepository) ListByEventIDs(ctx context.Context, eventIDs []uuid.UUID) ([]*model.Photo, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	const query = `SELECT ` + photoColumns + ` FROM photos WHERE event_id = ANY($1) ORDER BY created_at`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TablePhotos).Inc()

	rows, err := r.db.Query(ctx, query, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos by event: %w", err)
	}
	defer rows.Close()

	var photos []*model.Photo
	for rows.Next() {
		row, err := scanPhotoRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, row.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	return photos, nil
}

// Delete removes a photo row. Removing a missing row is not an error.
func (r *PhotoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryDelete, metrics.TablePhotos).Inc()

	if _, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

// DeleteByURL removes the photo rows pointing at url.
func (r *PhotoRepository) DeleteByURL(ctx context.Context, url string) error {
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryDelete, metrics.TablePhotos).Inc()

	if _, err := r.db.Exec(ctx, `DELETE FROM photos WHERE url = $1`, url); err != nil {
		return fmt.Errorf("failed to delete photo by url: %w", err)
	}
	return nil
}

// DeleteByEventIDs removes every photo of the given events.
func (r *PhotoRepository) DeleteByEventIDs(ctx context.Context, eventIDs []uuid.UUID) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryDelete, metrics.TablePhotos).Inc()

	tag, err := r.db.Exec(ctx, `DELETE FROM photos WHERE event_id = ANY($1)`, eventIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete photos by event: %w", err)
	}
	return tag.RowsAffected(), nil
}

type photoRow struct {
	ID           uuid.UUID
	EventID      uuid.UUID
	URL          string
	ThumbnailURL *string
	Width        int
	Height       int
	Orientation  *string
	CreatedAt    time.Time
}

func scanPhotoRow(row pgx.Row) (photoRow, error) {
	var r photoRow
	err := row.Scan(
		&r.ID,
		&r.EventID,
		&r.URL,
		&r.ThumbnailURL,
		&r.Width,
		&r.Height,
		&r.Orientation,
		&r.CreatedAt,
	)
	return r, err
}

// toDomain maps a row to a Photo. Rows only ever reference the event's
// database id, so it fills both event keys. An unknown or missing
// orientation is derived from the dimensions.
func (r photoRow) toDomain() *model.Photo {
	orientation := model.Orientation(deref(r.Orientation))
	if !orientation.IsValid() {
		orientation = model.OrientationFor(r.Width, r.Height)
	}
	return &model.Photo{
		MediaAsset: model.MediaAsset{
			ID:            r.ID,
			RemoteID:      r.ID,
			URL:           r.URL,
			ThumbnailURL:  deref(r.ThumbnailURL),
			EventID:       r.EventID,
			EventRemoteID: r.EventID,
			CreatedAt:     r.CreatedAt,
		},
		Width:       r.Width,
		Height:      r.Height,
		Orientation: orientation,
	}
}

// Compile-time verification that PhotoRepository implements repository.PhotoRepository.
var _ repository.PhotoRepository = (*PhotoRepository)(nil)

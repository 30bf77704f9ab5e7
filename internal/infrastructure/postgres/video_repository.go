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

const videoColumns = `id, event_id, url, thumbnail_url, title, type, created_at`

// VideoRepository implements repository.VideoRepository using PostgreSQL.
type VideoRepository struct {
	db DBTX
}

// NewVideoRepository creates a new VideoRepository instance.
func NewVideoRepository(db DBTX) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts the video under its event's remote id.
func (r *VideoRepository) Create(ctx context.Context, video *model.Video) (uuid.UUID, error) {
	if err := video.ReadyForInsert(); err != nil {
		return uuid.Nil, err
	}

	const query = `
		INSERT INTO videos (event_id, url, thumbnail_url, title, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableVideos).Inc()

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		video.EventRemoteID,
		video.URL,
		nullString(video.ThumbnailURL),
		nullString(video.Title),
		video.Type.String(),
		video.CreatedAt,
	).Scan(&id)
	if err != nil {
		if hasCode(err, codeForeignKeyViolation) {
			return uuid.Nil, repository.ErrEventNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to create video: %w", err)
	}

	return id, nil
}

// GetByID retrieves a video by its database id.
func (r *VideoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	const query = `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableVideos).Inc()

	row, err := scanVideoRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video by ID: %w", err)
	}
	return row.toDomain(), nil
}

// ListByEventIDs retrieves the videos of any of the given events, oldest first.
func (r *VideoRepository) ListByEventIDs(ctx context.Context, eventIDs []uuid.UUID) ([]*model.Video, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	const query = `SELECT ` + videoColumns + ` FROM videos WHERE event_id = ANY($1) ORDER BY created_at`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableVideos).Inc()

	rows, err := r.db.Query(ctx, query, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos by event: %w", err)
	}
	defer rows.Close()

	var videos []*model.Video
	for rows.Next() {
		row, err := scanVideoRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, row.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating videos: %w", err)
	}

	return videos, nil
}

// Delete removes a video row. Removing a missing row is not an error.
func (r *VideoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryDelete, metrics.TableVideos).Inc()

	if _, err := r.db.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

// DeleteByURL removes the video rows pointing at url.
func (r *VideoRepository) DeleteByURL(ctx context.Context, url string) error {
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryDelete, metrics.TableVideos).Inc()

	if _, err := r.db.Exec(ctx, `DELETE FROM videos WHERE url = $1`, url); err != nil {
		return fmt.Errorf("failed to delete video by url: %w", err)
	}
	return nil
}

// DeleteByEventIDs removes every video of the given events.
func (r *VideoRepository) DeleteByEventIDs(ctx context.Context, eventIDs []uuid.UUID) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryDelete, metrics.TableVideos).Inc()

	tag, err := r.db.Exec(ctx, `DELETE FROM videos WHERE event_id = ANY($1)`, eventIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete videos by event: %w", err)
	}
	return tag.RowsAffected(), nil
}

type videoRow struct {
	ID           uuid.UUID
	EventID      uuid.UUID
	URL          string
	ThumbnailURL *string
	Title        *string
	Type         *string
	CreatedAt    time.Time
}

func scanVideoRow(row pgx.Row) (videoRow, error) {
	var r videoRow
	err := row.Scan(
		&r.ID,
		&r.EventID,
		&r.URL,
		&r.ThumbnailURL,
		&r.Title,
		&r.Type,
		&r.CreatedAt,
	)
	return r, err
}

// toDomain maps a row to a Video. A missing or unknown type is inferred
// from the URL host.
func (r videoRow) toDomain() *model.Video {
	typ := model.VideoType(deref(r.Type))
	if !typ.IsValid() {
		typ = model.VideoTypeFor(r.URL)
	}
	return &model.Video{
		MediaAsset: model.MediaAsset{
			ID:            r.ID,
			RemoteID:      r.ID,
			URL:           r.URL,
			ThumbnailURL:  deref(r.ThumbnailURL),
			EventID:       r.EventID,
			EventRemoteID: r.EventID,
			CreatedAt:     r.CreatedAt,
		},
		Title: deref(r.Title),
		Type:  typ,
	}
}

// Compile-time verification that VideoRepository implements repository.VideoRepository.
var _ repository.VideoRepository = (*VideoRepository)(nil)

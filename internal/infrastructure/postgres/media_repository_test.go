package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
)

var (
	photoColumnNames = []string{"id", "event_id", "url", "thumbnail_url", "width", "height", "orientation", "created_at"}
	videoColumnNames = []string{"id", "event_id", "url", "thumbnail_url", "title", "type", "created_at"}
)

func TestPhotoRepository_Create(t *testing.T) {
	eventRemoteID := uuid.New()
	newID := uuid.New()

	tests := []struct {
		name          string
		eventRemoteID uuid.UUID
		mockFn        func(mock pgxmock.PgxPoolIface, photo *model.Photo)
		wantErr       error
	}{
		{
			name:          "successful creation",
			eventRemoteID: eventRemoteID,
			mockFn: func(mock pgxmock.PgxPoolIface, photo *model.Photo) {
				mock.ExpectQuery("INSERT INTO photos").
					WithArgs(eventRemoteID, photo.URL, pgxmock.AnyArg(), 6000, 4000, pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(newID))
			},
		},
		{
			name:          "event row missing",
			eventRemoteID: eventRemoteID,
			mockFn: func(mock pgxmock.PgxPoolIface, photo *model.Photo) {
				mock.ExpectQuery("INSERT INTO photos").
					WithArgs(eventRemoteID, photo.URL, pgxmock.AnyArg(), 6000, 4000, pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "23503"})
			},
			wantErr: repository.ErrEventNotFound,
		},
		{
			name:          "no event remote id never reaches the database",
			eventRemoteID: uuid.Nil,
			mockFn:        func(mock pgxmock.PgxPoolIface, photo *model.Photo) {},
			wantErr:       model.ErrMissingEventRemoteID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer mock.Close()

			photo := &model.Photo{
				MediaAsset: model.MediaAsset{
					ID:            uuid.New(),
					URL:           "https://cdn.example.com/media/events/1-a.jpg",
					EventID:       uuid.New(),
					EventRemoteID: tt.eventRemoteID,
					CreatedAt:     time.Now(),
				},
				Width:       6000,
				Height:      4000,
				Orientation: model.OrientationLandscape,
			}
			tt.mockFn(mock, photo)

			repo := NewPhotoRepository(mock)
			id, err := repo.Create(context.Background(), photo)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if err != nil || id != newID {
				t.Errorf("Create() = (%v, %v), want (%v, nil)", id, err, newID)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestPhotoRepository_ListByEventIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer mock.Close()

	localID, remoteID := uuid.New(), uuid.New()
	ids := []uuid.UUID{localID, remoteID}
	thumb := "https://cdn.example.com/media/events/1-thumb-a.jpg"
	bogus := "sideways"
	now := time.Now()

	rows := pgxmock.NewRows(photoColumnNames).
		AddRow(uuid.New(), remoteID, "https://cdn.example.com/media/events/1-a.jpg", &thumb, 4000, 6000, nil, now).
		AddRow(uuid.New(), remoteID, "https://cdn.example.com/media/events/2-b.jpg", nil, 100, 100, &bogus, now)
	mock.ExpectQuery("SELECT .* FROM photos WHERE event_id").
		WithArgs(ids).
		WillReturnRows(rows)

	repo := NewPhotoRepository(mock)
	photos, err := repo.ListByEventIDs(context.Background(), ids)
	if err != nil {
		t.Fatalf("ListByEventIDs() unexpected error = %v", err)
	}
	if len(photos) != 2 {
		t.Fatalf("ListByEventIDs() returned %d photos, want 2", len(photos))
	}
	if photos[0].ThumbnailURL != thumb || photos[0].Orientation != model.OrientationPortrait {
		t.Errorf("first photo = %+v", photos[0])
	}
	if photos[1].Orientation != model.OrientationSquare {
		t.Errorf("invalid orientation not re-derived: %v", photos[1].Orientation)
	}
	if photos[1].EventRemoteID != remoteID {
		t.Errorf("EventRemoteID = %v, want %v", photos[1].EventRemoteID, remoteID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPhotoRepository_ListByEventIDs_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer mock.Close()

	photos, err := NewPhotoRepository(mock).ListByEventIDs(context.Background(), nil)
	if err != nil || photos != nil {
		t.Errorf("ListByEventIDs(nil) = (%v, %v)", photos, err)
	}
}

func TestPhotoRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT .* FROM photos WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPhotoRepository(mock).GetByID(context.Background(), id)
	if !errors.Is(err, repository.ErrPhotoNotFound) {
		t.Errorf("GetByID() error = %v, want %v", err, repository.ErrPhotoNotFound)
	}
}

func TestPhotoRepository_Deletes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	url := "https://cdn.example.com/media/events/1-a.jpg"

	mock.ExpectExec("DELETE FROM photos WHERE id").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM photos WHERE url").
		WithArgs(url).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM photos WHERE event_id").
		WithArgs(ids).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	repo := NewPhotoRepository(mock)
	ctx := context.Background()

	if err := repo.Delete(ctx, id); err != nil {
		t.Errorf("Delete() unexpected error = %v", err)
	}
	if err := repo.DeleteByURL(ctx, url); err != nil {
		t.Errorf("DeleteByURL() unexpected error = %v", err)
	}
	n, err := repo.DeleteByEventIDs(ctx, ids)
	if err != nil || n != 7 {
		t.Errorf("DeleteByEventIDs() = (%d, %v), want (7, nil)", n, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestVideoRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer mock.Close()

	eventRemoteID := uuid.New()
	newID := uuid.New()
	video := &model.Video{
		MediaAsset: model.MediaAsset{
			ID:            uuid.New(),
			URL:           "https://youtu.be/dQw4w9WgXcQ",
			EventID:       uuid.New(),
			EventRemoteID: eventRemoteID,
			CreatedAt:     time.Now(),
		},
		Title: "Film",
		Type:  model.VideoTypeYouTube,
	}

	mock.ExpectQuery("INSERT INTO videos").
		WithArgs(eventRemoteID, video.URL, pgxmock.AnyArg(), pgxmock.AnyArg(), "youtube", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(newID))

	id, err := NewVideoRepository(mock).Create(context.Background(), video)
	if err != nil || id != newID {
		t.Errorf("Create() = (%v, %v), want (%v, nil)", id, err, newID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestVideoRepository_ListByEventIDs_InfersType(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer mock.Close()

	eventID := uuid.New()
	ids := []uuid.UUID{eventID}
	title := "Highlights"
	now := time.Now()

	rows := pgxmock.NewRows(videoColumnNames).
		AddRow(uuid.New(), eventID, "https://vimeo.com/1234", nil, &title, nil, now).
		AddRow(uuid.New(), eventID, "https://cdn.example.com/media/videos/1-film.mp4", nil, nil, nil, now)
	mock.ExpectQuery("SELECT .* FROM videos WHERE event_id").
		WithArgs(ids).
		WillReturnRows(rows)

	videos, err := NewVideoRepository(mock).ListByEventIDs(context.Background(), ids)
	if err != nil {
		t.Fatalf("ListByEventIDs() unexpected error = %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("ListByEventIDs() returned %d videos, want 2", len(videos))
	}
	if videos[0].Type != model.VideoTypeVimeo || videos[0].Title != title {
		t.Errorf("first video = %+v", videos[0])
	}
	if videos[1].Type != model.VideoTypeUploaded {
		t.Errorf("second video type = %v, want uploaded", videos[1].Type)
	}
}

func TestVideoRepository_DeleteByEventIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer mock.Close()

	ids := []uuid.UUID{uuid.New()}
	mock.ExpectExec("DELETE FROM videos WHERE event_id").
		WithArgs(ids).
		WillReturnError(errors.New("connection refused"))

	if _, err := NewVideoRepository(mock).DeleteByEventIDs(context.Background(), ids); err == nil {
		t.Error("DeleteByEventIDs() expected error, got nil")
	}
}

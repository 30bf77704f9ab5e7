package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
)

func TestCatalog_EmptyCollections(t *testing.T) {
	catalog := NewCatalog(NewMemoryMirror())
	ctx := context.Background()

	events, err := catalog.Events(ctx)
	if err != nil || len(events) != 0 {
		t.Errorf("Events() = (%v, %v), want empty", events, err)
	}
	photos, err := catalog.Photos(ctx)
	if err != nil || len(photos) != 0 {
		t.Errorf("Photos() = (%v, %v), want empty", photos, err)
	}
}

func TestCatalog_EventsRoundTrip(t *testing.T) {
	catalog := NewCatalog(NewMemoryMirror())
	ctx := context.Background()
	now := time.Now().Truncate(time.Microsecond)

	local := &model.Event{ID: uuid.New(), Slug: "local", Title: "Local", Visible: true, CreatedAt: now, UpdatedAt: now}
	synced := &model.Event{
		ID:                uuid.New(),
		RemoteID:          uuid.New(),
		Slug:              "synced",
		Title:             "Synced",
		CoverImageURL:     "https://cdn/events/1-c.jpg",
		CoverThumbnailURL: "https://cdn/events/1-thumb-c.jpg",
		Featured:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := catalog.SaveEvents(ctx, []*model.Event{local, synced}); err != nil {
		t.Fatalf("SaveEvents() unexpected error = %v", err)
	}

	got, err := catalog.Events(ctx)
	if err != nil {
		t.Fatalf("Events() unexpected error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Events() returned %d events, want 2", len(got))
	}
	if got[0].RemoteID != uuid.Nil {
		t.Errorf("local event gained remote id %v", got[0].RemoteID)
	}
	g := got[1]
	if g.ID != synced.ID || g.RemoteID != synced.RemoteID || g.Slug != synced.Slug ||
		g.CoverImageURL != synced.CoverImageURL || g.CoverThumbnailURL != synced.CoverThumbnailURL ||
		g.Visible != synced.Visible || g.Featured != synced.Featured {
		t.Errorf("synced event = %+v, want %+v", g, synced)
	}
	if !g.CreatedAt.Equal(synced.CreatedAt) || !g.UpdatedAt.Equal(synced.UpdatedAt) {
		t.Errorf("timestamps = (%v, %v), want %v", g.CreatedAt, g.UpdatedAt, now)
	}
}

func TestCatalog_PhotosAndVideos(t *testing.T) {
	mirror := NewMemoryMirror()
	catalog := NewCatalog(mirror)
	ctx := context.Background()

	event := &model.Event{ID: uuid.New(), RemoteID: uuid.New()}
	photo, err := model.NewPhoto(event, "https://cdn/events/1-a.jpg", "https://cdn/events/1-thumb-a.jpg", 10, 20)
	if err != nil {
		t.Fatalf("NewPhoto() unexpected error = %v", err)
	}
	photo.RemoteID = uuid.New()

	video, err := model.NewExternalVideo(event, "https://youtu.be/abc", "Film")
	if err != nil {
		t.Fatalf("NewExternalVideo() unexpected error = %v", err)
	}

	if err := catalog.SavePhotos(ctx, []*model.Photo{photo}); err != nil {
		t.Fatalf("SavePhotos() unexpected error = %v", err)
	}
	if err := catalog.SaveVideos(ctx, []*model.Video{video}); err != nil {
		t.Fatalf("SaveVideos() unexpected error = %v", err)
	}

	photos, err := catalog.Photos(ctx)
	if err != nil || len(photos) != 1 {
		t.Fatalf("Photos() = (%v, %v)", photos, err)
	}
	p := photos[0]
	if p.RemoteID != photo.RemoteID || p.EventRemoteID != event.RemoteID || p.Orientation != model.OrientationPortrait {
		t.Errorf("photo = %+v", p)
	}

	videos, err := catalog.Videos(ctx)
	if err != nil || len(videos) != 1 {
		t.Fatalf("Videos() = (%v, %v)", videos, err)
	}
	if videos[0].Type != model.VideoTypeYouTube || videos[0].HasRemoteID() {
		t.Errorf("video = %+v", videos[0])
	}
}

func TestCatalog_CorruptCollection(t *testing.T) {
	mirror := NewMemoryMirror()
	ctx := context.Background()
	_ = mirror.Write(ctx, repository.CollectionEvents, []byte(`{not json`))

	if _, err := NewCatalog(mirror).Events(ctx); err == nil {
		t.Error("Events() expected error for corrupt collection, got nil")
	}
}

func TestMemoryMirror_OnChange(t *testing.T) {
	mirror := NewMemoryMirror()
	ctx := context.Background()

	calls := 0
	cancel := mirror.OnChange(repository.CollectionVideos, func() { calls++ })

	_ = mirror.Write(ctx, repository.CollectionVideos, []byte(`[]`))
	_ = mirror.Write(ctx, repository.CollectionPhotos, []byte(`[]`))
	cancel()
	cancel()
	_ = mirror.Write(ctx, repository.CollectionVideos, []byte(`[]`))

	if calls != 1 {
		t.Errorf("listener called %d times, want 1", calls)
	}
}

func TestMemoryMirror_ReadReturnsCopy(t *testing.T) {
	mirror := NewMemoryMirror()
	ctx := context.Background()
	_ = mirror.Write(ctx, repository.CollectionEvents, []byte(`[1]`))

	got, _ := mirror.Read(ctx, repository.CollectionEvents)
	got[1] = '2'

	again, _ := mirror.Read(ctx, repository.CollectionEvents)
	if string(again) != `[1]` {
		t.Errorf("mirror value mutated through Read result: %q", again)
	}
}

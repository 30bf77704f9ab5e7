package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
)

// eventJSON is the cached representation of an Event.
// Using explicit structs avoids coupling to domain model's JSON tags.
type eventJSON struct {
	ID                string `json:"id"`
	RemoteID          string `json:"remote_id,omitempty"`
	Slug              string `json:"slug"`
	Title             string `json:"title"`
	Category          string `json:"category,omitempty"`
	CoverImageURL     string `json:"cover_image_url,omitempty"`
	CoverThumbnailURL string `json:"cover_thumbnail_url,omitempty"`
	Visible           bool   `json:"is_visible"`
	Featured          bool   `json:"is_featured"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type assetJSON struct {
	ID            string `json:"id"`
	RemoteID      string `json:"remote_id,omitempty"`
	URL           string `json:"url"`
	ThumbnailURL  string `json:"thumbnail_url,omitempty"`
	EventID       string `json:"event_id"`
	EventRemoteID string `json:"event_remote_id,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type photoJSON struct {
	assetJSON
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Orientation string `json:"orientation,omitempty"`
}

type videoJSON struct {
	assetJSON
	Title string `json:"title,omitempty"`
	Type  string `json:"type"`
}

// Catalog implements repository.MediaCache over a CacheMirror.
type Catalog struct {
	mirror repository.CacheMirror
}

// NewCatalog creates a typed view of mirror.
func NewCatalog(mirror repository.CacheMirror) *Catalog {
	return &Catalog{mirror: mirror}
}

func (c *Catalog) Events(ctx context.Context) ([]*model.Event, error) {
	var rows []eventJSON
	if err := c.load(ctx, repository.CollectionEvents, &rows); err != nil {
		return nil, err
	}

	events := make([]*model.Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode cached event %s: %w", r.ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func (c *Catalog) SaveEvents(ctx context.Context, events []*model.Event) error {
	rows := make([]eventJSON, 0, len(events))
	for _, e := range events {
		rows = append(rows, eventJSON{
			ID:                e.ID.String(),
			RemoteID:          optionalID(e.RemoteID),
			Slug:              e.Slug,
			Title:             e.Title,
			Category:          e.Category,
			CoverImageURL:     e.CoverImageURL,
			CoverThumbnailURL: e.CoverThumbnailURL,
			Visible:           e.Visible,
			Featured:          e.Featured,
			CreatedAt:         formatTime(e.CreatedAt),
			UpdatedAt:         formatTime(e.UpdatedAt),
		})
	}
	return c.store(ctx, repository.CollectionEvents, rows)
}

func (c *Catalog) Photos(ctx context.Context) ([]*model.Photo, error) {
	var rows []photoJSON
	if err := c.load(ctx, repository.CollectionPhotos, &rows); err != nil {
		return nil, err
	}

	photos := make([]*model.Photo, 0, len(rows))
	for _, r := range rows {
		asset, err := r.assetJSON.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode cached photo %s: %w", r.ID, err)
		}
		orientation := model.Orientation(r.Orientation)
		if !orientation.IsValid() {
			orientation = model.OrientationFor(r.Width, r.Height)
		}
		photos = append(photos, &model.Photo{
			MediaAsset:  asset,
			Width:       r.Width,
			Height:      r.Height,
			Orientation: orientation,
		})
	}
	return photos, nil
}

func (c *Catalog) SavePhotos(ctx context.Context, photos []*model.Photo) error {
	rows := make([]photoJSON, 0, len(photos))
	for _, p := range photos {
		rows = append(rows, photoJSON{
			assetJSON:   fromAsset(p.MediaAsset),
			Width:       p.Width,
			Height:      p.Height,
			Orientation: string(p.Orientation),
		})
	}
	return c.store(ctx, repository.CollectionPhotos, rows)
}

func (c *Catalog) Videos(ctx context.Context) ([]*model.Video, error) {
	var rows []videoJSON
	if err := c.load(ctx, repository.CollectionVideos, &rows); err != nil {
		return nil, err
	}

	videos := make([]*model.Video, 0, len(rows))
	for _, r := range rows {
		asset, err := r.assetJSON.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode cached video %s: %w", r.ID, err)
		}
		typ := model.VideoType(r.Type)
		if !typ.IsValid() {
			typ = model.VideoTypeFor(r.URL)
		}
		videos = append(videos, &model.Video{MediaAsset: asset, Title: r.Title, Type: typ})
	}
	return videos, nil
}

func (c *Catalog) SaveVideos(ctx context.Context, videos []*model.Video) error {
	rows := make([]videoJSON, 0, len(videos))
	for _, v := range videos {
		rows = append(rows, videoJSON{
			assetJSON: fromAsset(v.MediaAsset),
			Title:     v.Title,
			Type:      v.Type.String(),
		})
	}
	return c.store(ctx, repository.CollectionVideos, rows)
}

func (c *Catalog) load(ctx context.Context, collection repository.Collection, out any) error {
	data, err := c.mirror.Read(ctx, collection)
	if err != nil {
		return fmt.Errorf("read %s: %w", collection, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("deserialize %s: %w", collection, err)
	}
	return nil
}

func (c *Catalog) store(ctx context.Context, collection repository.Collection, rows any) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", collection, err)
	}
	if err := c.mirror.Write(ctx, collection, data); err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	return nil
}

func (r eventJSON) toDomain() (*model.Event, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID: %w", err)
	}
	remoteID, err := parseOptionalID(r.RemoteID)
	if err != nil {
		return nil, fmt.Errorf("parse remote ID: %w", err)
	}
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := parseTime(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &model.Event{
		ID:                id,
		RemoteID:          remoteID,
		Slug:              r.Slug,
		Title:             r.Title,
		Category:          r.Category,
		CoverImageURL:     r.CoverImageURL,
		CoverThumbnailURL: r.CoverThumbnailURL,
		Visible:           r.Visible,
		Featured:          r.Featured,
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
	}, nil
}

func fromAsset(a model.MediaAsset) assetJSON {
	return assetJSON{
		ID:            a.ID.String(),
		RemoteID:      optionalID(a.RemoteID),
		URL:           a.URL,
		ThumbnailURL:  a.ThumbnailURL,
		EventID:       a.EventID.String(),
		EventRemoteID: optionalID(a.EventRemoteID),
		CreatedAt:     formatTime(a.CreatedAt),
	}
}

func (r assetJSON) toDomain() (model.MediaAsset, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.MediaAsset{}, fmt.Errorf("parse ID: %w", err)
	}
	remoteID, err := parseOptionalID(r.RemoteID)
	if err != nil {
		return model.MediaAsset{}, fmt.Errorf("parse remote ID: %w", err)
	}
	eventID, err := uuid.Parse(r.EventID)
	if err != nil {
		return model.MediaAsset{}, fmt.Errorf("parse event ID: %w", err)
	}
	eventRemoteID, err := parseOptionalID(r.EventRemoteID)
	if err != nil {
		return model.MediaAsset{}, fmt.Errorf("parse event remote ID: %w", err)
	}
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return model.MediaAsset{}, fmt.Errorf("parse created_at: %w", err)
	}

	return model.MediaAsset{
		ID:            id,
		RemoteID:      remoteID,
		URL:           r.URL,
		ThumbnailURL:  r.ThumbnailURL,
		EventID:       eventID,
		EventRemoteID: eventRemoteID,
		CreatedAt:     createdAt,
	}, nil
}

func optionalID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseOptionalID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// parseTime treats an empty string as the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

var _ repository.MediaCache = (*Catalog)(nil)

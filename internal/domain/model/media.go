package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyURL             = errors.New("media url cannot be empty")
	ErrMissingEventID       = errors.New("media asset must reference an event")
	ErrMissingEventRemoteID = errors.New("event has no record store identifier")
)

// MediaAsset is the shape shared by photos and videos.
//
// ID is assigned locally before any remote write. RemoteID stays uuid.Nil
// until the record store has durably inserted the row. URL never changes
// once uploaded; a replaced asset is a new MediaAsset.
type MediaAsset struct {
	ID            uuid.UUID
	RemoteID      uuid.UUID
	URL           string
	ThumbnailURL  string
	EventID       uuid.UUID
	EventRemoteID uuid.UUID
	CreatedAt     time.Time
}

func newMediaAsset(event *Event, url, thumbnailURL string) (MediaAsset, error) {
	if url == "" {
		return MediaAsset{}, ErrEmptyURL
	}
	if event == nil || event.ID == uuid.Nil {
		return MediaAsset{}, ErrMissingEventID
	}
	return MediaAsset{
		ID:            uuid.New(),
		URL:           url,
		ThumbnailURL:  thumbnailURL,
		EventID:       event.ID,
		EventRemoteID: event.RemoteID,
		CreatedAt:     time.Now(),
	}, nil
}

// HasRemoteID reports whether the record store row exists.
func (a *MediaAsset) HasRemoteID() bool {
	return a.RemoteID != uuid.Nil
}

// Matches reports whether id is the local or remote id of the asset.
func (a *MediaAsset) Matches(id uuid.UUID) bool {
	return id != uuid.Nil && (a.ID == id || a.RemoteID == id)
}

// ReadyForInsert checks the foreign-key invariant: a row is never inserted
// without the owning event's record store identifier.
func (a *MediaAsset) ReadyForInsert() error {
	if a.EventRemoteID == uuid.Nil {
		return ErrMissingEventRemoteID
	}
	return nil
}

// ResolvedThumbnailURL returns the explicit thumbnail or, failing that, the
// one derived from URL by naming convention. Empty when neither exists.
func (a *MediaAsset) ResolvedThumbnailURL() string {
	if a.ThumbnailURL != "" {
		return a.ThumbnailURL
	}
	return DeriveThumbnailURL(a.URL)
}

// BelongsTo reports whether the asset references the event under either key.
func (a *MediaAsset) BelongsTo(event *Event) bool {
	for _, key := range event.Keys() {
		if a.EventID == key || a.EventRemoteID == key {
			return true
		}
	}
	return false
}

// Orientation of a photo.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
	OrientationSquare    Orientation = "square"
)

// OrientationFor derives orientation from pixel dimensions.
// Unknown dimensions default to landscape.
func OrientationFor(width, height int) Orientation {
	switch {
	case width <= 0 || height <= 0:
		return OrientationLandscape
	case width == height:
		return OrientationSquare
	case height > width:
		return OrientationPortrait
	default:
		return OrientationLandscape
	}
}

func (o Orientation) IsValid() bool {
	switch o {
	case OrientationLandscape, OrientationPortrait, OrientationSquare:
		return true
	default:
		return false
	}
}

// Photo is a gallery image owned by an event.
type Photo struct {
	MediaAsset
	Width       int
	Height      int
	Orientation Orientation
}

// NewPhoto creates a photo for an uploaded image.
func NewPhoto(event *Event, url, thumbnailURL string, width, height int) (*Photo, error) {
	asset, err := newMediaAsset(event, url, thumbnailURL)
	if err != nil {
		return nil, err
	}
	return &Photo{
		MediaAsset:  asset,
		Width:       width,
		Height:      height,
		Orientation: OrientationFor(width, height),
	}, nil
}

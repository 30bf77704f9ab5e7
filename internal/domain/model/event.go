package model

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var (
	ErrEmptyTitle = errors.New("title cannot be empty")
	ErrEmptySlug  = errors.New("slug cannot be empty")
)

// Event is a wedding or shoot whose photos and videos are shown in the portfolio.
// Photos and videos are separate rows that reference the event; they are not embedded.
type Event struct {
	ID                uuid.UUID
	RemoteID          uuid.UUID
	Slug              string
	Title             string
	Category          string
	CoverImageURL     string
	CoverThumbnailURL string
	Visible           bool
	Featured          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewEvent creates a local event. The slug defaults to Slugify(title).
func NewEvent(title, slug, category string) (*Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}
	if slug == "" {
		slug = Slugify(title)
	} else {
		slug = Slugify(slug)
	}
	if slug == "" {
		return nil, ErrEmptySlug
	}

	now := time.Now()
	return &Event{
		ID:        uuid.New(),
		Slug:      slug,
		Title:     title,
		Category:  category,
		Visible:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasRemoteID reports whether the event row exists in the record store.
func (e *Event) HasRemoteID() bool {
	return e.RemoteID != uuid.Nil
}

// Keys returns every identifier child rows may reference: the local id and,
// once assigned, the remote id.
func (e *Event) Keys() []uuid.UUID {
	keys := make([]uuid.UUID, 0, 2)
	if e.ID != uuid.Nil {
		keys = append(keys, e.ID)
	}
	if e.RemoteID != uuid.Nil && e.RemoteID != e.ID {
		keys = append(keys, e.RemoteID)
	}
	return keys
}

// Matches reports whether id is the local or remote id of the event.
func (e *Event) Matches(id uuid.UUID) bool {
	return id != uuid.Nil && (e.ID == id || e.RemoteID == id)
}

// SetCover replaces the cover image and returns the previous pair.
func (e *Event) SetCover(imageURL, thumbnailURL string) (prevImage, prevThumb string) {
	prevImage, prevThumb = e.CoverImageURL, e.CoverThumbnailURL
	e.CoverImageURL = imageURL
	e.CoverThumbnailURL = thumbnailURL
	e.UpdatedAt = time.Now()
	return prevImage, prevThumb
}

// Slugify lowercases s and joins its alphanumeric runs with single dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

package model

import (
	"errors"
	"strings"
)

// Folder is the top-level object store prefix an upload lands in.
type Folder string

const (
	FolderEvents  Folder = "events"
	FolderBanners Folder = "banners"
	FolderLogos   Folder = "logos"
	FolderVideos  Folder = "videos"
)

var ErrInvalidFolder = errors.New("invalid upload folder")

func (f Folder) IsValid() bool {
	switch f {
	case FolderEvents, FolderBanners, FolderLogos, FolderVideos:
		return true
	default:
		return false
	}
}

func (f Folder) String() string {
	return string(f)
}

// Accepts reports whether a file of contentType may be stored in the folder.
func (f Folder) Accepts(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	switch f {
	case FolderVideos:
		return strings.HasPrefix(contentType, "video/")
	case FolderEvents, FolderBanners, FolderLogos:
		return strings.HasPrefix(contentType, "image/")
	default:
		return false
	}
}

// ParseFolder converts s to a Folder.
func ParseFolder(s string) (Folder, error) {
	f := Folder(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", ErrInvalidFolder
	}
	return f, nil
}

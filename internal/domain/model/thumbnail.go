package model

import "strings"

const thumbnailMarker = "thumb-"

// DeriveThumbnailURL maps the URL of a main asset to the URL its thumbnail
// is stored under: ".../folder/{timestamp}-{name}" becomes
// ".../folder/{timestamp}-thumb-{name}". It returns "" when the last path
// segment does not start with a numeric timestamp followed by a dash.
//
// The mapping is applied on write so later deletes can find the thumbnail.
// It is not idempotent: deriving from a thumbnail URL inserts a second marker.
func DeriveThumbnailURL(mainURL string) string {
	base, suffix := splitQuery(mainURL)

	slash := strings.LastIndexByte(base, '/')
	dir, file := base[:slash+1], base[slash+1:]

	dash := strings.IndexByte(file, '-')
	if dash <= 0 || dash == len(file)-1 || !allDigits(file[:dash]) {
		return ""
	}
	return dir + file[:dash+1] + thumbnailMarker + file[dash+1:] + suffix
}

// ThumbnailOrMain returns thumb when it is known to exist, otherwise main.
// Readers use it so a missing thumbnail degrades to the full-size image.
func ThumbnailOrMain(mainURL, thumbURL string, exists bool) string {
	if thumbURL != "" && exists {
		return thumbURL
	}
	return mainURL
}

func splitQuery(u string) (string, string) {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i], u[i:]
	}
	return u, ""
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

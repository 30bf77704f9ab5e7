package repository

import "errors"

var (
	// ErrEventNotFound is returned when an event cannot be found.
	ErrEventNotFound = errors.New("event not found")

	// ErrPhotoNotFound is returned when a photo cannot be found.
	ErrPhotoNotFound = errors.New("photo not found")

	// ErrVideoNotFound is returned when a video cannot be found.
	ErrVideoNotFound = errors.New("video not found")

	// ErrDuplicateSlug is returned when an event slug is already taken.
	ErrDuplicateSlug = errors.New("event slug already exists")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrObjectNotFound is returned when an object does not exist in storage.
	ErrObjectNotFound = errors.New("object not found")

	// ErrForeignURL is returned when a URL does not belong to the configured bucket.
	ErrForeignURL = errors.New("url does not belong to the media bucket")
)

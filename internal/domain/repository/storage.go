package repository

import (
	"context"
	"io"
	"time"
)

// ObjectStorage defines the server-side object storage operations behind the gateway.
// Implementations should be provided by the infrastructure layer (e.g., MinIO, S3).
type ObjectStorage interface {
	// PresignUpload creates a presigned PUT URL for key, valid for expiry.
	PresignUpload(ctx context.Context, key string, expiry time.Duration) (string, error)

	// PublicURL returns the public URL an object under key is served from.
	PublicURL(key string) string

	// KeyForURL maps a public URL back to its key.
	// Returns ErrForeignURL if the URL is not served from this bucket.
	KeyForURL(publicURL string) (string, error)

	// Upload stores an object. Used by the worker for generated thumbnails.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Download retrieves an object. Caller closes the returned ReadCloser.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	Bucket() string
}

package repository

import (
	"context"
	"io"

	"github.com/hszk-dev/atelier/internal/domain/model"
)

// FileDescriptor describes a local file for which an upload URL is requested.
type FileDescriptor struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	LastModified int64  `json:"lastModified"`
}

// PresignedUpload is one entry of a presign response. A non-empty Error
// means the file must not be uploaded.
type PresignedUpload struct {
	FileName    string `json:"fileName"`
	Key         string `json:"key,omitempty"`
	UploadURL   string `json:"presignedUrl,omitempty"`
	PublicURL   string `json:"publicUrl,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	FileSize    int64  `json:"fileSize"`
	Error       string `json:"error,omitempty"`
}

// PresignBatch is the response to a batch presign request.
type PresignBatch struct {
	Uploads   []PresignedUpload `json:"presignedUrls"`
	Bucket    string            `json:"bucket"`
	PublicURL string            `json:"publicUrl"`
	Timestamp int64             `json:"timestamp"`
}

// ProgressFunc receives the bytes sent so far and the total size.
type ProgressFunc func(sent, total int64)

// ObjectGateway is the client-side view of the object store: batch presign,
// direct PUT to a presigned URL, and authenticated delete by public URL.
type ObjectGateway interface {
	Presign(ctx context.Context, files []FileDescriptor, folder model.Folder) (*PresignBatch, error)

	// Put uploads body to uploadURL. Any 2xx response is success.
	Put(ctx context.Context, uploadURL string, body io.Reader, size int64, contentType string, progress ProgressFunc) error

	// Delete removes the object behind publicURL. Deleting a missing object succeeds.
	Delete(ctx context.Context, publicURL string) error
}

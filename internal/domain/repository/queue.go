package repository

import "context"

// MediaTaskKind identifies the work a media task carries.
type MediaTaskKind string

const (
	// TaskDeleteObject retries an object delete that failed during a cascade.
	TaskDeleteObject MediaTaskKind = "delete_object"

	// TaskGenerateThumbnail renders ThumbnailURL from URL.
	TaskGenerateThumbnail MediaTaskKind = "generate_thumbnail"
)

// MediaTask is a background object-store job message.
type MediaTask struct {
	Kind         MediaTaskKind `json:"kind"`
	URL          string        `json:"url"`
	ThumbnailURL string        `json:"thumbnail_url,omitempty"`
	RetryCount   int           `json:"retry_count"`
}

// TaskQueue defines the interface for media task queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type TaskQueue interface {
	// PublishMediaTask sends a task to the queue.
	PublishMediaTask(ctx context.Context, task MediaTask) error

	// ConsumeMediaTasks blocks, calling handler for each received task,
	// until ctx is cancelled or the channel closes.
	ConsumeMediaTasks(ctx context.Context, handler func(task MediaTask) error) error

	Close() error
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
	"github.com/hszk-dev/atelier/internal/infrastructure/metrics"
	"github.com/hszk-dev/atelier/internal/infrastructure/storage"
)

var (
	// ErrNoFiles is returned when a presign request lists no files.
	ErrNoFiles = errors.New("no files to presign")

	// ErrTooManyFiles is returned when a presign request exceeds the batch limit.
	ErrTooManyFiles = errors.New("too many files in one presign request")
)

// UploadService is the server side of the object store gateway.
type UploadService interface {
	// Presign issues one upload URL per acceptable file. Files that cannot be
	// uploaded get a per-entry error instead of failing the request.
	Presign(ctx context.Context, files []repository.FileDescriptor, folder model.Folder) (*repository.PresignBatch, error)

	// Delete removes the object behind publicURL.
	// Returns ErrForeignURL if the URL is not served from the media bucket.
	Delete(ctx context.Context, publicURL string) error

	// ThumbnailURL returns the derived thumbnail of mainURL when it exists,
	// otherwise mainURL itself.
	ThumbnailURL(ctx context.Context, mainURL string) string
}

// UploadServiceConfig holds configuration for UploadService.
type UploadServiceConfig struct {
	UploadURLExpiry time.Duration
	MaxImageBytes   int64
	MaxVideoBytes   int64
	MaxBatchFiles   int
}

// DefaultUploadServiceConfig returns the default configuration.
func DefaultUploadServiceConfig() UploadServiceConfig {
	return UploadServiceConfig{
		UploadURLExpiry: 15 * time.Minute,
		MaxImageBytes:   25 << 20,
		MaxVideoBytes:   2 << 30,
		MaxBatchFiles:   500,
	}
}

type uploadService struct {
	storage repository.ObjectStorage
	cfg     UploadServiceConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewUploadService creates a new UploadService instance.
func NewUploadService(store repository.ObjectStorage, cfg UploadServiceConfig, logger *slog.Logger) UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &uploadService{
		storage: store,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Presign generates keys of the form {folder}/{unixMillis}-{hex}-{name} and
// a presigned PUT URL for each.
func (s *uploadService) Presign(ctx context.Context, files []repository.FileDescriptor, folder model.Folder) (*repository.PresignBatch, error) {
	if !folder.IsValid() {
		return nil, model.ErrInvalidFolder
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if s.cfg.MaxBatchFiles > 0 && len(files) > s.cfg.MaxBatchFiles {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyFiles, len(files), s.cfg.MaxBatchFiles)
	}

	now := s.now()
	batch := &repository.PresignBatch{
		Uploads:   make([]repository.PresignedUpload, 0, len(files)),
		Bucket:    s.storage.Bucket(),
		PublicURL: s.storage.PublicURL(""),
		Timestamp: now.UnixMilli(),
	}

	for _, f := range files {
		entry := repository.PresignedUpload{
			FileName:    f.Name,
			ContentType: f.Type,
			FileSize:    f.Size,
		}

		if msg := s.reject(f, folder); msg != "" {
			entry.Error = msg
			metrics.PresignedFilesTotal.WithLabelValues(metrics.PresignRejected).Inc()
			batch.Uploads = append(batch.Uploads, entry)
			continue
		}

		key := storage.ObjectKey(folder, f.Name, now)
		uploadURL, err := s.storage.PresignUpload(ctx, key, s.cfg.UploadURLExpiry)
		if err != nil {
			s.logger.Warn("failed to presign upload", "key", key, "error", err)
			entry.Error = "failed to generate upload url"
			metrics.PresignedFilesTotal.WithLabelValues(metrics.PresignRejected).Inc()
			batch.Uploads = append(batch.Uploads, entry)
			continue
		}

		entry.Key = key
		entry.UploadURL = uploadURL
		entry.PublicURL = s.storage.PublicURL(key)
		metrics.PresignedFilesTotal.WithLabelValues(metrics.PresignIssued).Inc()
		batch.Uploads = append(batch.Uploads, entry)
	}

	return batch, nil
}

// reject returns why f cannot go into folder, or "".
func (s *uploadService) reject(f repository.FileDescriptor, folder model.Folder) string {
	switch {
	case f.Name == "":
		return "file name is required"
	case !folder.Accepts(f.Type):
		return fmt.Sprintf("file type %q is not allowed in %s", f.Type, folder)
	case f.Size <= 0:
		return "file is empty"
	}

	limit := s.cfg.MaxImageBytes
	if folder == model.FolderVideos {
		limit = s.cfg.MaxVideoBytes
	}
	if limit > 0 && f.Size > limit {
		return fmt.Sprintf("file exceeds the %d byte limit", limit)
	}
	return ""
}

func (s *uploadService) Delete(ctx context.Context, publicURL string) error {
	key, err := s.storage.KeyForURL(publicURL)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, key); err != nil {
		metrics.ObjectDeletesTotal.WithLabelValues(metrics.DeleteSourceGateway, metrics.StatusError).Inc()
		return fmt.Errorf("delete object: %w", err)
	}

	metrics.ObjectDeletesTotal.WithLabelValues(metrics.DeleteSourceGateway, metrics.StatusSuccess).Inc()
	return nil
}

// ThumbnailURL is best-effort: any lookup failure degrades to mainURL.
func (s *uploadService) ThumbnailURL(ctx context.Context, mainURL string) string {
	thumbURL := model.DeriveThumbnailURL(mainURL)
	if thumbURL == "" {
		return mainURL
	}

	key, err := s.storage.KeyForURL(thumbURL)
	if err != nil {
		return mainURL
	}

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		s.logger.Warn("failed to check thumbnail", "url", thumbURL, "error", err)
	}
	return model.ThumbnailOrMain(mainURL, thumbURL, err == nil && exists)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
	"github.com/hszk-dev/atelier/internal/infrastructure/metrics"
	"github.com/hszk-dev/atelier/internal/thumbnail"
)

const (
	// DefaultMaxRetries is the default number of attempts before a task is dropped.
	DefaultMaxRetries = 3
)

// MediaTaskServiceConfig holds configuration for MediaTaskService.
type MediaTaskServiceConfig struct {
	// TempDir is the base directory for downloaded originals and rendered thumbnails.
	TempDir string
	// MaxRetries is the retry count at which a task is acknowledged and dropped.
	MaxRetries int
}

// DefaultMediaTaskServiceConfig returns the default configuration.
func DefaultMediaTaskServiceConfig() MediaTaskServiceConfig {
	return MediaTaskServiceConfig{
		TempDir:    os.TempDir(),
		MaxRetries: DefaultMaxRetries,
	}
}

// MediaTaskService defines the interface for background object store work.
type MediaTaskService interface {
	// ProcessTask handles a task from the queue.
	// Returns nil on success or permanent failure (max retries exceeded, foreign URL).
	// Returns error for transient failures that should trigger a retry.
	ProcessTask(ctx context.Context, task repository.MediaTask) error
}

type mediaTaskService struct {
	storage   repository.ObjectStorage
	generator thumbnail.Generator
	logger    *slog.Logger

	tempDir    string
	maxRetries int
}

// NewMediaTaskService creates a new MediaTaskService instance.
func NewMediaTaskService(
	store repository.ObjectStorage,
	generator thumbnail.Generator,
	cfg MediaTaskServiceConfig,
	logger *slog.Logger,
) MediaTaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &mediaTaskService{
		storage:    store,
		generator:  generator,
		logger:     logger,
		tempDir:    cfg.TempDir,
		maxRetries: cfg.MaxRetries,
	}
}

func (s *mediaTaskService) ProcessTask(ctx context.Context, task repository.MediaTask) error {
	if task.RetryCount >= s.maxRetries {
		s.logger.Error("media task dropped after max retries",
			"kind", task.Kind,
			"url", task.URL,
			"retry_count", task.RetryCount,
		)
		metrics.MediaTasksTotal.WithLabelValues(string(task.Kind), metrics.TaskStatusDropped).Inc()
		return nil
	}

	var err error
	switch task.Kind {
	case repository.TaskDeleteObject:
		err = s.deleteObject(ctx, task.URL)
	case repository.TaskGenerateThumbnail:
		err = s.generateThumbnail(ctx, task)
	default:
		s.logger.Warn("unknown media task kind", "kind", task.Kind, "url", task.URL)
		metrics.MediaTasksTotal.WithLabelValues(string(task.Kind), metrics.TaskStatusDropped).Inc()
		return nil
	}

	if errors.Is(err, repository.ErrForeignURL) {
		s.logger.Warn("media task references a foreign url", "kind", task.Kind, "url", task.URL)
		metrics.MediaTasksTotal.WithLabelValues(string(task.Kind), metrics.TaskStatusDropped).Inc()
		return nil
	}
	if err != nil {
		metrics.MediaTasksTotal.WithLabelValues(string(task.Kind), metrics.TaskStatusRetry).Inc()
		return err
	}

	metrics.MediaTasksTotal.WithLabelValues(string(task.Kind), metrics.TaskStatusSuccess).Inc()
	return nil
}

func (s *mediaTaskService) deleteObject(ctx context.Context, url string) error {
	key, err := s.storage.KeyForURL(url)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, key); err != nil {
		metrics.ObjectDeletesTotal.WithLabelValues(metrics.DeleteSourceWorker, metrics.StatusError).Inc()
		return fmt.Errorf("delete object: %w", err)
	}

	metrics.ObjectDeletesTotal.WithLabelValues(metrics.DeleteSourceWorker, metrics.StatusSuccess).Inc()
	return nil
}

// generateThumbnail downloads the main object, renders a still and uploads
// it under the thumbnail key. An existing thumbnail is left untouched.
func (s *mediaTaskService) generateThumbnail(ctx context.Context, task repository.MediaTask) error {
	thumbURL := task.ThumbnailURL
	if thumbURL == "" {
		thumbURL = model.DeriveThumbnailURL(task.URL)
	}
	if thumbURL == "" {
		s.logger.Warn("no thumbnail url for media task", "url", task.URL)
		return nil
	}

	mainKey, err := s.storage.KeyForURL(task.URL)
	if err != nil {
		return err
	}
	thumbKey, err := s.storage.KeyForURL(thumbURL)
	if err != nil {
		return err
	}

	exists, err := s.storage.Exists(ctx, thumbKey)
	if err != nil {
		return fmt.Errorf("check thumbnail: %w", err)
	}
	if exists {
		return nil
	}

	workDir, err := os.MkdirTemp(s.tempDir, "atelier-thumb-")
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	defer s.cleanup(workDir)

	inputPath, err := s.download(ctx, mainKey, workDir)
	if err != nil {
		return fmt.Errorf("download original: %w", err)
	}

	outputPath := filepath.Join(workDir, "thumbnail"+stillExt(thumbKey))
	if err := s.generator.Generate(ctx, inputPath, outputPath); err != nil {
		return fmt.Errorf("generate thumbnail: %w", err)
	}

	if err := s.upload(ctx, outputPath, thumbKey); err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}

	s.logger.Info("thumbnail generated", "url", task.URL, "thumbnail_url", thumbURL)
	return nil
}

func (s *mediaTaskService) cleanup(workDir string) {
	_ = os.RemoveAll(workDir)
}

func (s *mediaTaskService) download(ctx context.Context, key, workDir string) (string, error) {
	reader, err := s.storage.Download(ctx, key)
	if err != nil {
		return "", fmt.Errorf("storage download: %w", err)
	}
	defer func() { _ = reader.Close() }()

	filename := path.Base(key)
	if filename == "." || filename == "/" {
		filename = "original"
	}

	localPath := filepath.Join(workDir, filename)
	file, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create local file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("copy to local file: %w", err)
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close local file: %w", err)
	}

	return localPath, nil
}

func (s *mediaTaskService) upload(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return s.storage.Upload(ctx, key, file, contentType)
}

// stillExt keeps the thumbnail key's image extension; video keys render to JPEG.
// A video thumbnail is stored under the derived key unchanged, so its URL ends
// in the video's extension (…-thumb-film.mp4) while the object is image/jpeg.
// Readers rely on the Content-Type, since every client derives the thumbnail
// URL from the main URL by name alone.
func stillExt(key string) string {
	switch ext := strings.ToLower(path.Ext(key)); ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	default:
		return ".jpg"
	}
}

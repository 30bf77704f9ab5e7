package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
	"github.com/hszk-dev/atelier/internal/infrastructure/metrics"
)

// ErrPresignFailed is returned when no upload URLs could be obtained for a batch.
var ErrPresignFailed = errors.New("presign request failed")

const (
	DefaultUploadConcurrency = 6
	DefaultFileTimeout       = 60 * time.Second
)

// FileHandle is a local file selected for upload.
type FileHandle interface {
	Name() string
	Size() int64
	ContentType() string
	LastModified() time.Time
	Open() (io.ReadCloser, error)
}

// UploadOptions tunes a single batch. Callbacks are invoked serially.
type UploadOptions struct {
	// Concurrency bounds the number of PUTs in flight. Zero uses the uploader default.
	Concurrency int

	// OnProgress receives the number of files in a terminal state, the batch
	// size and a snapshot of per-file percentages keyed by file id.
	OnProgress func(completed, total int, progress map[string]int)

	// OnFileComplete fires once per file when it reaches a terminal state.
	OnFileComplete func(fileID string, success bool, url string)
}

// UploadedFile is a file that reached the object store.
type UploadedFile struct {
	FileID   string
	FileName string
	URL      string
	Key      string
	File     FileHandle
}

// FailedFile is a file that did not.
type FailedFile struct {
	FileID   string
	FileName string
	Error    string
}

type UploadStats struct {
	TotalFiles int
	Successful int
	Failed     int
	Duration   time.Duration
}

// BatchResult partitions a batch. Both slices keep submission order.
type BatchResult struct {
	Successful []UploadedFile
	Failed     []FailedFile
	Stats      UploadStats
}

// UploaderConfig holds configuration for Uploader.
type UploaderConfig struct {
	Concurrency int
	FileTimeout time.Duration
}

// DefaultUploaderConfig returns the default configuration.
func DefaultUploaderConfig() UploaderConfig {
	return UploaderConfig{
		Concurrency: DefaultUploadConcurrency,
		FileTimeout: DefaultFileTimeout,
	}
}

// Uploader drives batches of files through presign and PUT with bounded concurrency.
type Uploader struct {
	gateway repository.ObjectGateway
	cfg     UploaderConfig
	logger  *slog.Logger
}

// NewUploader creates a new Uploader.
func NewUploader(gateway repository.ObjectGateway, cfg UploaderConfig, logger *slog.Logger) *Uploader {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultUploadConcurrency
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = DefaultFileTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{gateway: gateway, cfg: cfg, logger: logger}
}

// Upload presigns the whole batch once and then PUTs every accepted file.
// Individual failures are reported in the result, never as an error. The
// error is non-nil only when the presign request itself failed, in which
// case every file is reported as failed.
//
// Cancelling ctx stops new PUTs from starting; files not yet finished are
// reported as failed.
func (u *Uploader) Upload(ctx context.Context, files []FileHandle, folder model.Folder, opts UploadOptions) (*BatchResult, error) {
	start := time.Now()
	if len(files) == 0 {
		return &BatchResult{}, nil
	}
	b := newBatch(files, opts)

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = u.cfg.Concurrency
	}

	descriptors := make([]repository.FileDescriptor, len(files))
	for i, f := range files {
		descriptors[i] = repository.FileDescriptor{
			Name:         f.Name(),
			Size:         f.Size(),
			Type:         f.ContentType(),
			LastModified: f.LastModified().UnixMilli(),
		}
	}

	presigned, err := u.gateway.Presign(ctx, descriptors, folder)
	if err != nil {
		for i := range files {
			b.fail(i, "presign failed: "+err.Error())
		}
		result := b.result(time.Since(start))
		u.record(folder, result)
		return result, fmt.Errorf("%w: %v", ErrPresignFailed, err)
	}

	entries := matchPresigned(files, presigned.Uploads)
	queue := make(chan int, len(files))
	for i, entry := range entries {
		switch {
		case entry == nil:
			b.fail(i, "no upload url returned for file")
		case entry.Error != "":
			b.fail(i, entry.Error)
		case entry.UploadURL == "":
			b.fail(i, "presign entry has no upload url")
		default:
			queue <- i
		}
	}
	close(queue)

	workers := min(concurrency, len(queue))
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range queue {
				u.uploadOne(ctx, b, i, entries[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	result := b.result(time.Since(start))
	u.record(folder, result)
	u.logger.Info("upload batch finished",
		"folder", folder,
		"total", result.Stats.TotalFiles,
		"successful", result.Stats.Successful,
		"failed", result.Stats.Failed,
		"duration", result.Stats.Duration,
	)
	return result, nil
}

func (u *Uploader) uploadOne(ctx context.Context, b *batch, i int, entry *repository.PresignedUpload) {
	if err := ctx.Err(); err != nil {
		b.fail(i, "cancelled: "+err.Error())
		return
	}
	b.start(i)

	fileCtx, cancel := context.WithTimeout(ctx, u.cfg.FileTimeout)
	defer cancel()

	err := u.put(fileCtx, b.files[i], entry, func(sent, total int64) {
		b.progress(i, sent, total)
	})
	if err != nil {
		msg := err.Error()
		if errors.Is(fileCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			msg = fmt.Sprintf("timeout after %s: %v", u.cfg.FileTimeout, err)
		}
		b.fail(i, msg)
		return
	}

	b.succeed(i, entry.PublicURL, entry.Key)
}

func (u *Uploader) put(ctx context.Context, f FileHandle, entry *repository.PresignedUpload, progress repository.ProgressFunc) error {
	body, err := f.Open()
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = body.Close() }()

	contentType := entry.ContentType
	if contentType == "" {
		contentType = f.ContentType()
	}
	return u.gateway.Put(ctx, entry.UploadURL, body, f.Size(), contentType, progress)
}

func (u *Uploader) record(folder model.Folder, r *BatchResult) {
	metrics.UploadFilesTotal.WithLabelValues(folder.String(), metrics.StatusSuccess).Add(float64(r.Stats.Successful))
	metrics.UploadFilesTotal.WithLabelValues(folder.String(), metrics.StatusError).Add(float64(r.Stats.Failed))
	metrics.UploadBatchDuration.WithLabelValues(folder.String()).Observe(r.Stats.Duration.Seconds())
}

// matchPresigned pairs each file with its presign entry by file name.
// Duplicate names consume entries in response order.
func matchPresigned(files []FileHandle, uploads []repository.PresignedUpload) []*repository.PresignedUpload {
	byName := make(map[string][]int, len(uploads))
	for i := range uploads {
		name := uploads[i].FileName
		byName[name] = append(byName[name], i)
	}

	out := make([]*repository.PresignedUpload, len(files))
	for i, f := range files {
		idx := byName[f.Name()]
		if len(idx) == 0 {
			continue
		}
		out[i] = &uploads[idx[0]]
		byName[f.Name()] = idx[1:]
	}
	return out
}

// batch holds the per-file state of one Upload call. Workers mutate it
// concurrently; mu guards tasks and percent, and serializes callbacks.
type batch struct {
	files     []FileHandle
	opts      UploadOptions
	completed atomic.Int64

	mu      sync.Mutex
	tasks   []*model.UploadTask
	percent map[string]int
}

func newBatch(files []FileHandle, opts UploadOptions) *batch {
	b := &batch{
		files:   files,
		opts:    opts,
		tasks:   make([]*model.UploadTask, len(files)),
		percent: make(map[string]int, len(files)),
	}
	for i, f := range files {
		id := strconv.Itoa(i)
		b.tasks[i] = &model.UploadTask{FileID: id, FileName: f.Name(), Status: model.UploadPending}
		b.percent[id] = 0
	}
	return b
}

func (b *batch) start(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks[i].Start()
}

func (b *batch) progress(i int, sent, total int64) {
	if total <= 0 {
		return
	}
	pct := int(sent * 100 / total)
	if pct > 99 {
		// 100 is reserved for success.
		pct = 99
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.tasks[i]
	if t.Status != model.UploadUploading || pct <= t.Progress {
		return
	}
	t.Progress = pct
	b.percent[t.FileID] = pct
	if b.opts.OnProgress != nil {
		b.opts.OnProgress(int(b.completed.Load()), len(b.tasks), b.snapshot())
	}
}

func (b *batch) succeed(i int, url, key string) {
	b.finish(i, func(t *model.UploadTask) bool { return t.Succeed(url, key) })
}

func (b *batch) fail(i int, msg string) {
	b.finish(i, func(t *model.UploadTask) bool { return t.Fail(msg) })
}

func (b *batch) finish(i int, apply func(*model.UploadTask) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.tasks[i]
	if !apply(t) {
		return
	}
	b.percent[t.FileID] = t.Progress
	completed := b.completed.Add(1)

	if b.opts.OnFileComplete != nil {
		b.opts.OnFileComplete(t.FileID, t.Status == model.UploadSuccess, t.ResultURL)
	}
	if b.opts.OnProgress != nil {
		b.opts.OnProgress(int(completed), len(b.tasks), b.snapshot())
	}
}

func (b *batch) snapshot() map[string]int {
	out := make(map[string]int, len(b.percent))
	for k, v := range b.percent {
		out[k] = v
	}
	return out
}

func (b *batch) result(d time.Duration) *BatchResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := &BatchResult{Stats: UploadStats{TotalFiles: len(b.tasks), Duration: d}}
	for i, t := range b.tasks {
		switch t.Status {
		case model.UploadSuccess:
			r.Successful = append(r.Successful, UploadedFile{
				FileID:   t.FileID,
				FileName: t.FileName,
				URL:      t.ResultURL,
				Key:      t.Key,
				File:     b.files[i],
			})
		default:
			// Non-terminal tasks cannot remain once workers return.
			msg := t.Error
			if msg == "" {
				msg = "upload did not complete"
			}
			r.Failed = append(r.Failed, FailedFile{FileID: t.FileID, FileName: t.FileName, Error: msg})
		}
	}
	r.Stats.Successful = len(r.Successful)
	r.Stats.Failed = len(r.Failed)
	return r
}

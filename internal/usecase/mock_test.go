package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
)

const testPublicBase = "https://cdn.test/media"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// callLog records calls across mocks so tests can assert ordering.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) withPrefix(prefix string) []string {
	var out []string
	for _, c := range l.list() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (l *callLog) indexOf(call string) int {
	for i, c := range l.list() {
		if c == call {
			return i
		}
	}
	return -1
}

// mockEventRepository provides a configurable mock for EventRepository.
type mockEventRepository struct {
	log *callLog

	createFn       func(ctx context.Context, event *model.Event) (uuid.UUID, error)
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*model.Event, error)
	getBySlugFn    func(ctx context.Context, slug string) (*model.Event, error)
	getLatestFn    func(ctx context.Context) (*model.Event, error)
	updateFn       func(ctx context.Context, id uuid.UUID, event *model.Event) error
	deleteFn       func(ctx context.Context, id uuid.UUID) error
	deleteBySlugFn func(ctx context.Context, slug string) error
}

func (m *mockEventRepository) Create(ctx context.Context, event *model.Event) (uuid.UUID, error) {
	m.log.add("event.create:" + event.Slug)
	if m.createFn != nil {
		return m.createFn(ctx, event)
	}
	return uuid.New(), nil
}

func (m *mockEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrEventNotFound
}

func (m *mockEventRepository) GetBySlug(ctx context.Context, slug string) (*model.Event, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, repository.ErrEventNotFound
}

func (m *mockEventRepository) GetLatest(ctx context.Context) (*model.Event, error) {
	if m.getLatestFn != nil {
		return m.getLatestFn(ctx)
	}
	return nil, repository.ErrEventNotFound
}

func (m *mockEventRepository) Update(ctx context.Context, id uuid.UUID, event *model.Event) error {
	m.log.add("event.update:" + event.CoverImageURL)
	if m.updateFn != nil {
		return m.updateFn(ctx, id, event)
	}
	return nil
}

func (m *mockEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.log.add("event.delete:" + id.String())
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockEventRepository) DeleteBySlug(ctx context.Context, slug string) error {
	m.log.add("event.delete_by_slug:" + slug)
	if m.deleteBySlugFn != nil {
		return m.deleteBySlugFn(ctx, slug)
	}
	return nil
}

// mediaRows is an in-memory table of photo or video rows keyed by event id.
type mediaRows[T any] struct {
	mu   sync.Mutex
	rows []T
	key  func(T) uuid.UUID
}

func (r *mediaRows[T]) list(ids []uuid.UUID) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []T
	for _, row := range r.rows {
		for _, id := range ids {
			if r.key(row) == id {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func (r *mediaRows[T]) deleteByEventIDs(ids []uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	var n int64
	for _, row := range r.rows {
		match := false
		for _, id := range ids {
			if r.key(row) == id {
				match = true
				break
			}
		}
		if match {
			n++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return n
}

func (r *mediaRows[T]) count(id uuid.UUID) int {
	return len(r.list([]uuid.UUID{id}))
}

// mockPhotoRepository provides a configurable mock for PhotoRepository.
// Without overrides it behaves like a table held in rows.
type mockPhotoRepository struct {
	log  *callLog
	rows mediaRows[*model.Photo]

	createFn      func(ctx context.Context, photo *model.Photo) (uuid.UUID, error)
	getByIDFn     func(ctx context.Context, id uuid.UUID) (*model.Photo, error)
	deleteFn      func(ctx context.Context, id uuid.UUID) error
	deleteByURLFn func(ctx context.Context, url string) error
}

func newMockPhotoRepository(log *callLog, rows ...*model.Photo) *mockPhotoRepository {
	return &mockPhotoRepository{
		log:  log,
		rows: mediaRows[*model.Photo]{rows: rows, key: func(p *model.Photo) uuid.UUID { return p.EventRemoteID }},
	}
}

func (m *mockPhotoRepository) Create(ctx context.Context, photo *model.Photo) (uuid.UUID, error) {
	m.log.add("photo.create:" + photo.URL)
	if err := photo.ReadyForInsert(); err != nil {
		return uuid.Nil, err
	}
	if m.createFn != nil {
		return m.createFn(ctx, photo)
	}
	return uuid.New(), nil
}

func (m *mockPhotoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Photo, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrPhotoNotFound
}

func (m *mockPhotoRepository) ListByEventIDs(_ context.Context, ids []uuid.UUID) ([]*model.Photo, error) {
	return m.rows.list(ids), nil
}

func (m *mockPhotoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.log.add("photo.delete:" + id.String())
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockPhotoRepository) DeleteByURL(ctx context.Context, url string) error {
	m.log.add("photo.delete_by_url:" + url)
	if m.deleteByURLFn != nil {
		return m.deleteByURLFn(ctx, url)
	}
	return nil
}

func (m *mockPhotoRepository) DeleteByEventIDs(_ context.Context, ids []uuid.UUID) (int64, error) {
	m.log.add("photo.delete_by_event")
	return m.rows.deleteByEventIDs(ids), nil
}

// mockVideoRepository provides a configurable mock for VideoRepository.
type mockVideoRepository struct {
	log  *callLog
	rows mediaRows[*model.Video]

	createFn      func(ctx context.Context, video *model.Video) (uuid.UUID, error)
	getByIDFn     func(ctx context.Context, id uuid.UUID) (*model.Video, error)
	deleteFn      func(ctx context.Context, id uuid.UUID) error
	deleteByURLFn func(ctx context.Context, url string) error
}

func newMockVideoRepository(log *callLog, rows ...*model.Video) *mockVideoRepository {
	return &mockVideoRepository{
		log:  log,
		rows: mediaRows[*model.Video]{rows: rows, key: func(v *model.Video) uuid.UUID { return v.EventRemoteID }},
	}
}

func (m *mockVideoRepository) Create(ctx context.Context, video *model.Video) (uuid.UUID, error) {
	m.log.add("video.create:" + video.URL)
	if err := video.ReadyForInsert(); err != nil {
		return uuid.Nil, err
	}
	if m.createFn != nil {
		return m.createFn(ctx, video)
	}
	return uuid.New(), nil
}

func (m *mockVideoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoRepository) ListByEventIDs(_ context.Context, ids []uuid.UUID) ([]*model.Video, error) {
	return m.rows.list(ids), nil
}

func (m *mockVideoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.log.add("video.delete:" + id.String())
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockVideoRepository) DeleteByURL(ctx context.Context, url string) error {
	m.log.add("video.delete_by_url:" + url)
	if m.deleteByURLFn != nil {
		return m.deleteByURLFn(ctx, url)
	}
	return nil
}

func (m *mockVideoRepository) DeleteByEventIDs(_ context.Context, ids []uuid.UUID) (int64, error) {
	m.log.add("video.delete_by_event")
	return m.rows.deleteByEventIDs(ids), nil
}

// mockGateway provides a configurable mock for ObjectGateway. By default it
// presigns every file and every PUT succeeds.
type mockGateway struct {
	log *callLog

	presignFn func(ctx context.Context, files []repository.FileDescriptor, folder model.Folder) (*repository.PresignBatch, error)
	putFn     func(ctx context.Context, uploadURL string, body io.Reader, size int64, contentType string, progress repository.ProgressFunc) error
	deleteFn  func(ctx context.Context, publicURL string) error

	mu          sync.Mutex
	presignReqs int
	puts        []string
}

// defaultPresign returns one entry per file under {base}/{folder}/{ts}-{name}.
func defaultPresign(files []repository.FileDescriptor, folder model.Folder) *repository.PresignBatch {
	batch := &repository.PresignBatch{Bucket: "media", PublicURL: testPublicBase, Timestamp: 1700000000000}
	for i, f := range files {
		key := folder.String() + "/" + "17000000000" + string(rune('0'+i%10)) + "-" + f.Name
		batch.Uploads = append(batch.Uploads, repository.PresignedUpload{
			FileName:    f.Name,
			Key:         key,
			UploadURL:   "https://store.test/put/" + key,
			PublicURL:   testPublicBase + "/" + key,
			ContentType: f.Type,
			FileSize:    f.Size,
		})
	}
	return batch
}

func (m *mockGateway) Presign(ctx context.Context, files []repository.FileDescriptor, folder model.Folder) (*repository.PresignBatch, error) {
	m.mu.Lock()
	m.presignReqs++
	m.mu.Unlock()
	if m.presignFn != nil {
		return m.presignFn(ctx, files, folder)
	}
	return defaultPresign(files, folder), nil
}

func (m *mockGateway) Put(ctx context.Context, uploadURL string, body io.Reader, size int64, contentType string, progress repository.ProgressFunc) error {
	m.mu.Lock()
	m.puts = append(m.puts, uploadURL)
	m.mu.Unlock()
	if m.putFn != nil {
		return m.putFn(ctx, uploadURL, body, size, contentType, progress)
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	if progress != nil {
		progress(size, size)
	}
	return nil
}

func (m *mockGateway) Delete(ctx context.Context, publicURL string) error {
	m.log.add("object.delete:" + publicURL)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, publicURL)
	}
	return nil
}

func (m *mockGateway) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.puts)
}

// mockTaskQueue provides a configurable mock for TaskQueue.
type mockTaskQueue struct {
	publishFn func(ctx context.Context, task repository.MediaTask) error

	mu        sync.Mutex
	published []repository.MediaTask
}

func (m *mockTaskQueue) PublishMediaTask(ctx context.Context, task repository.MediaTask) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, task); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, task)
	return nil
}

func (m *mockTaskQueue) ConsumeMediaTasks(ctx context.Context, handler func(task repository.MediaTask) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockTaskQueue) Close() error {
	return nil
}

func (m *mockTaskQueue) tasks(kind repository.MediaTaskKind) []repository.MediaTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.MediaTask
	for _, t := range m.published {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// mockObjectStorage provides a configurable mock for ObjectStorage.
type mockObjectStorage struct {
	presignUploadFn func(ctx context.Context, key string, expiry time.Duration) (string, error)
	uploadFn        func(ctx context.Context, key string, reader io.Reader, contentType string) error
	downloadFn      func(ctx context.Context, key string) (io.ReadCloser, error)
	deleteFn        func(ctx context.Context, key string) error
	existsFn        func(ctx context.Context, key string) (bool, error)
}

func (m *mockObjectStorage) PresignUpload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.presignUploadFn != nil {
		return m.presignUploadFn(ctx, key, expiry)
	}
	return "https://store.test/put/" + key + "?X-Amz-Signature=abc", nil
}

func (m *mockObjectStorage) PublicURL(key string) string {
	return testPublicBase + "/" + key
}

func (m *mockObjectStorage) KeyForURL(publicURL string) (string, error) {
	key, ok := strings.CutPrefix(publicURL, testPublicBase+"/")
	if !ok || key == "" {
		return "", repository.ErrForeignURL
	}
	return key, nil
}

func (m *mockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, reader, contentType)
	}
	return nil
}

func (m *mockObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, key)
	}
	return io.NopCloser(strings.NewReader("original bytes")), nil
}

func (m *mockObjectStorage) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockObjectStorage) Bucket() string {
	return "media"
}

// mockGenerator provides a configurable mock for thumbnail.Generator.
type mockGenerator struct {
	generateFn func(ctx context.Context, inputPath, outputPath string) error
}

func (m *mockGenerator) Generate(ctx context.Context, inputPath, outputPath string) error {
	if m.generateFn != nil {
		return m.generateFn(ctx, inputPath, outputPath)
	}
	return nil
}

// fakeFile is an in-memory FileHandle.
type fakeFile struct {
	name        string
	data        []byte
	contentType string
	width       int
	height      int
}

func newFakeFile(name string) *fakeFile {
	return &fakeFile{name: name, data: []byte("bytes of " + name), contentType: "image/jpeg", width: 6000, height: 4000}
}

func (f *fakeFile) Name() string            { return f.name }
func (f *fakeFile) Size() int64             { return int64(len(f.data)) }
func (f *fakeFile) ContentType() string     { return f.contentType }
func (f *fakeFile) LastModified() time.Time { return time.UnixMilli(1700000000000) }
func (f *fakeFile) Dimensions() (int, int)  { return f.width, f.height }

func (f *fakeFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func fakeFiles(names ...string) []FileHandle {
	files := make([]FileHandle, len(names))
	for i, n := range names {
		files[i] = newFakeFile(n)
	}
	return files
}

package usecase

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// LocalFile is a FileHandle backed by a file on disk.
type LocalFile struct {
	path        string
	size        int64
	modTime     time.Time
	contentType string
	width       int
	height      int
}

var _ FileHandle = (*LocalFile)(nil)

// OpenLocalFile stats path and sniffs its content type. Image dimensions are
// read from the header when the format is decodable.
func OpenLocalFile(path string) (*LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	f := &LocalFile{
		path:        path,
		size:        info.Size(),
		modTime:     info.ModTime(),
		contentType: detectContentType(path),
	}
	if strings.HasPrefix(f.contentType, "image/") {
		f.width, f.height = imageDimensions(path)
	}
	return f, nil
}

// OpenLocalFiles opens every path, stopping at the first error.
func OpenLocalFiles(paths []string) ([]FileHandle, error) {
	files := make([]FileHandle, 0, len(paths))
	for _, p := range paths {
		f, err := OpenLocalFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func (f *LocalFile) Name() string            { return filepath.Base(f.path) }
func (f *LocalFile) Size() int64             { return f.size }
func (f *LocalFile) ContentType() string     { return f.contentType }
func (f *LocalFile) LastModified() time.Time { return f.modTime }
func (f *LocalFile) Path() string            { return f.path }

// Dimensions returns the pixel size, or zeros when unknown.
func (f *LocalFile) Dimensions() (width, height int) {
	return f.width, f.height
}

func (f *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// detectContentType sniffs the file header and falls back to the extension.
func detectContentType(path string) string {
	if m, err := mimetype.DetectFile(path); err == nil && m.String() != "application/octet-stream" {
		ct, _, _ := strings.Cut(m.String(), ";")
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		ct, _, _ = strings.Cut(ct, ";")
		return ct
	}
	return "application/octet-stream"
}

func imageDimensions(path string) (int, int) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer func() { _ = file.Close() }()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
	"github.com/hszk-dev/atelier/internal/usecase"
)

// Mock UploadService

type mockUploadService struct {
	presignFn      func(ctx context.Context, files []repository.FileDescriptor, folder model.Folder) (*repository.PresignBatch, error)
	deleteFn       func(ctx context.Context, url string) error
	thumbnailURLFn func(ctx context.Context, mainURL string) string
}

func (m *mockUploadService) Presign(ctx context.Context, files []repository.FileDescriptor, folder model.Folder) (*repository.PresignBatch, error) {
	if m.presignFn != nil {
		return m.presignFn(ctx, files, folder)
	}
	return &repository.PresignBatch{}, nil
}

func (m *mockUploadService) Delete(ctx context.Context, url string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, url)
	}
	return nil
}

func (m *mockUploadService) ThumbnailURL(ctx context.Context, mainURL string) string {
	if m.thumbnailURLFn != nil {
		return m.thumbnailURLFn(ctx, mainURL)
	}
	return mainURL
}

func TestUploadHandler_Presign(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(m *mockUploadService)
		wantStatusCode int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name: "successful presign",
			body: `{"files":[{"name":"a.jpg","size":10,"type":"image/jpeg","lastModified":1700000000000}],"folder":"events"}`,
			setupMock: func(m *mockUploadService) {
				m.presignFn = func(_ context.Context, files []repository.FileDescriptor, folder model.Folder) (*repository.PresignBatch, error) {
					if folder != model.FolderEvents || len(files) != 1 || files[0].LastModified != 1700000000000 {
						t.Errorf("unexpected request: %v %+v", folder, files)
					}
					return &repository.PresignBatch{
						Uploads: []repository.PresignedUpload{{
							FileName:  "a.jpg",
							Key:       "events/1700000000000-abcd1234-a.jpg",
							UploadURL: "https://store.test/put",
							PublicURL: "https://cdn.test/media/events/1700000000000-abcd1234-a.jpg",
							FileSize:  10,
						}},
						Bucket:    "media",
						PublicURL: "https://cdn.test/media/",
						Timestamp: 1700000000000,
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp struct {
					PresignedURLs []map[string]any `json:"presignedUrls"`
					Bucket        string           `json:"bucket"`
				}
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if len(resp.PresignedURLs) != 1 || resp.Bucket != "media" {
					t.Fatalf("unexpected response: %s", body)
				}
				if resp.PresignedURLs[0]["presignedUrl"] != "https://store.test/put" {
					t.Errorf("presignedUrl = %v", resp.PresignedURLs[0]["presignedUrl"])
				}
				if _, ok := resp.PresignedURLs[0]["error"]; ok {
					t.Error("error field should be omitted")
				}
			},
		},
		{
			name:           "invalid JSON body",
			body:           "invalid json",
			setupMock:      func(m *mockUploadService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "empty file list",
			body:           `{"files":[],"folder":"events"}`,
			setupMock:      func(m *mockUploadService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing folder",
			body:           `{"files":[{"name":"a.jpg","size":10,"type":"image/jpeg"}]}`,
			setupMock:      func(m *mockUploadService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "unknown folder",
			body:           `{"files":[{"name":"a.jpg","size":10,"type":"image/jpeg"}],"folder":"tmp"}`,
			setupMock:      func(m *mockUploadService) {},
			wantStatusCode: http.StatusBadRequest,
			checkResponse: func(t *testing.T, body []byte) {
				var resp ErrorResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.Error != "invalid_folder" {
					t.Errorf("error = %q, want invalid_folder", resp.Error)
				}
			},
		},
		{
			name: "too many files",
			body: `{"files":[{"name":"a.jpg","size":10,"type":"image/jpeg"}],"folder":"events"}`,
			setupMock: func(m *mockUploadService) {
				m.presignFn = func(context.Context, []repository.FileDescriptor, model.Folder) (*repository.PresignBatch, error) {
					return nil, usecase.ErrTooManyFiles
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "storage failure",
			body: `{"files":[{"name":"a.jpg","size":10,"type":"image/jpeg"}],"folder":"events"}`,
			setupMock: func(m *mockUploadService) {
				m.presignFn = func(context.Context, []repository.FileDescriptor, model.Folder) (*repository.PresignBatch, error) {
					return nil, errors.New("minio down")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockUploadService{}
			tt.setupMock(mock)
			h := NewUploadHandler(mock)

			req := httptest.NewRequest(http.MethodPost, "/v1/presign", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			h.Presign(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Errorf("expected status %d, got %d (%s)", tt.wantStatusCode, rec.Code, rec.Body.String())
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, rec.Body.Bytes())
			}
		})
	}
}

func TestUploadHandler_Delete(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		deleteErr      error
		wantStatusCode int
	}{
		{
			name:           "successful delete",
			requestBody:    DeleteRequest{URL: "https://cdn.test/media/events/1-a.jpg"},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing url",
			requestBody:    DeleteRequest{},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "not a url",
			requestBody:    DeleteRequest{URL: "events/1-a.jpg"},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "foreign url",
			requestBody:    DeleteRequest{URL: "https://elsewhere.test/a.jpg"},
			deleteErr:      repository.ErrForeignURL,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "storage failure",
			requestBody:    DeleteRequest{URL: "https://cdn.test/media/events/1-a.jpg"},
			deleteErr:      errors.New("connection reset"),
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockUploadService{
				deleteFn: func(context.Context, string) error { return tt.deleteErr },
			}
			h := NewUploadHandler(mock)

			body, err := json.Marshal(tt.requestBody)
			if err != nil {
				t.Fatalf("failed to marshal request body: %v", err)
			}

			req := httptest.NewRequest(http.MethodPost, "/v1/upload/delete", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			h.Delete(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Errorf("expected status %d, got %d (%s)", tt.wantStatusCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUploadHandler_Thumbnail(t *testing.T) {
	mainURL := "https://cdn.test/media/events/1700000000000-a.jpg"
	thumbURL := "https://cdn.test/media/events/1700000000000-thumb-a.jpg"

	mock := &mockUploadService{
		thumbnailURLFn: func(_ context.Context, u string) string {
			if u == mainURL {
				return thumbURL
			}
			return u
		},
	}
	h := NewUploadHandler(mock)

	r := chi.NewRouter()
	r.Get("/v1/media/thumbnail", h.Thumbnail)

	req := httptest.NewRequest(http.MethodGet, "/v1/media/thumbnail?url="+mainURL, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != thumbURL {
		t.Errorf("Location = %q, want %q", loc, thumbURL)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/media/thumbnail", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing url: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestReady(t *testing.T) {
	tests := []struct {
		name           string
		deps           map[string]Pinger
		wantStatusCode int
	}{
		{
			name:           "all dependencies up",
			deps:           map[string]Pinger{"storage": fakePinger{}},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "storage down",
			deps:           map[string]Pinger{"storage": fakePinger{err: errors.New("connection refused")}},
			wantStatusCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Ready(tt.deps)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantStatusCode {
				t.Errorf("expected status %d, got %d", tt.wantStatusCode, rec.Code)
			}
		})
	}
}

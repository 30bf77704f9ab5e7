package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hszk-dev/atelier/internal/api/handler"
	"github.com/hszk-dev/atelier/internal/auth"
	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
)

type stubUploadService struct {
	deleted []string
}

func (s *stubUploadService) Presign(context.Context, []repository.FileDescriptor, model.Folder) (*repository.PresignBatch, error) {
	return &repository.PresignBatch{Bucket: "media"}, nil
}

func (s *stubUploadService) Delete(_ context.Context, url string) error {
	s.deleted = append(s.deleted, url)
	return nil
}

func (s *stubUploadService) ThumbnailURL(_ context.Context, mainURL string) string {
	return mainURL
}

func TestRouter(t *testing.T) {
	secret := []byte("router-secret")
	svc := &stubUploadService{}
	r := setupRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), routerDeps{
		uploads:   handler.NewUploadHandler(svc),
		jwtSecret: secret,
		readiness: map[string]handler.Pinger{},
	})

	token, err := auth.IssueToken("studio", secret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	deleteBody := `{"url":"https://cdn.test/media/events/1-a.jpg"}`
	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		authorization  string
		wantStatusCode int
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantStatusCode: http.StatusOK},
		{name: "ready", method: http.MethodGet, path: "/ready", wantStatusCode: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatusCode: http.StatusOK},
		{
			name:           "presign is public",
			method:         http.MethodPost,
			path:           "/v1/presign",
			body:           `{"files":[{"name":"a.jpg","size":1,"type":"image/jpeg"}],"folder":"events"}`,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "delete without token",
			method:         http.MethodPost,
			path:           "/v1/upload/delete",
			body:           deleteBody,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "delete with token",
			method:         http.MethodPost,
			path:           "/v1/upload/delete",
			body:           deleteBody,
			authorization:  "Bearer " + token,
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Errorf("expected status %d, got %d (%s)", tt.wantStatusCode, rec.Code, rec.Body.String())
			}
			if rec.Header().Get("X-Request-Id") == "" {
				t.Error("missing X-Request-Id header")
			}
		})
	}

	if len(svc.deleted) != 1 {
		t.Errorf("deletes reaching the service = %d, want 1", len(svc.deleted))
	}
}

package handler

import (
	"errors"
	"net/http"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
	"github.com/hszk-dev/atelier/internal/usecase"
)

type PresignFile struct {
	Name         string `json:"name" validate:"max=255"`
	Size         int64  `json:"size" validate:"min=0"`
	Type         string `json:"type" validate:"max=255"`
	LastModified int64  `json:"lastModified"`
}

type PresignRequest struct {
	Files  []PresignFile `json:"files" validate:"required,min=1,dive"`
	Folder string        `json:"folder" validate:"required"`
}

type DeleteRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type DeleteResponse struct {
	Deleted string `json:"deleted"`
}

// UploadHandler serves the object store gateway endpoints.
type UploadHandler struct {
	svc usecase.UploadService
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(svc usecase.UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// Presign handles POST /v1/presign
func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var req PresignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	folder, err := model.ParseFolder(req.Folder)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_folder", "Folder must be one of events, banners, logos, videos")
		return
	}

	files := make([]repository.FileDescriptor, len(req.Files))
	for i, f := range req.Files {
		files[i] = repository.FileDescriptor{
			Name:         f.Name,
			Size:         f.Size,
			Type:         f.Type,
			LastModified: f.LastModified,
		}
	}

	batch, err := h.svc.Presign(r.Context(), files, folder)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, batch)
}

// Delete handles POST /v1/upload/delete
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), req.URL); err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, DeleteResponse{Deleted: req.URL})
}

// Thumbnail handles GET /v1/media/thumbnail?url=
func (h *UploadHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	mainURL := r.URL.Query().Get("url")
	if err := validate.Var(mainURL, "required,url"); err != nil {
		Error(w, http.StatusBadRequest, "invalid_url", "Query parameter url must be a valid URL")
		return
	}

	http.Redirect(w, r, h.svc.ThumbnailURL(r.Context(), mainURL), http.StatusFound)
}

func (h *UploadHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidFolder):
		Error(w, http.StatusBadRequest, "invalid_folder", "Folder must be one of events, banners, logos, videos")
	case errors.Is(err, usecase.ErrNoFiles):
		Error(w, http.StatusBadRequest, "no_files", "At least one file is required")
	case errors.Is(err, usecase.ErrTooManyFiles):
		Error(w, http.StatusBadRequest, "too_many_files", err.Error())
	case errors.Is(err, repository.ErrForeignURL):
		Error(w, http.StatusBadRequest, "foreign_url", "URL is not served from the media bucket")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
)

// ErrCoverUploadFailed is returned when a new cover image could not be uploaded.
var ErrCoverUploadFailed = errors.New("cover upload failed")

// SyncFailure is an uploaded asset whose record store insert failed. The
// object stays in storage and the asset stays in the cache.
type SyncFailure struct {
	FileName string
	URL      string
	Err      error
}

// AddMediaResult reports a photo or video batch.
type AddMediaResult struct {
	Upload       *BatchResult
	Photos       []*model.Photo
	Videos       []*model.Video
	SyncFailures []SyncFailure
}

// dimensioned is implemented by file handles that know their pixel size.
type dimensioned interface {
	Dimensions() (width, height int)
}

// AddPhotos uploads files into the events folder and records one photo per
// successful upload. The event must resolve to a record store id before
// anything is uploaded.
func (e *MediaEngine) AddPhotos(ctx context.Context, eventID uuid.UUID, files []FileHandle, opts UploadOptions) (*AddMediaResult, error) {
	event, err := e.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := e.resolveRemoteID(ctx, event); err != nil {
		return nil, err
	}

	upload, err := e.uploader.Upload(ctx, files, model.FolderEvents, opts)
	result := &AddMediaResult{Upload: upload}
	if err != nil {
		return result, err
	}

	for _, f := range upload.Successful {
		var width, height int
		if d, ok := f.File.(dimensioned); ok {
			width, height = d.Dimensions()
		}

		photo, err := model.NewPhoto(event, f.URL, model.DeriveThumbnailURL(f.URL), width, height)
		if err != nil {
			result.SyncFailures = append(result.SyncFailures, SyncFailure{FileName: f.FileName, URL: f.URL, Err: err})
			continue
		}

		remoteID, err := e.photos.Create(ctx, photo)
		if err != nil {
			e.logger.Warn("photo uploaded but record store insert failed",
				"event_id", event.ID,
				"url", f.URL,
				"error", err,
			)
			result.SyncFailures = append(result.SyncFailures, SyncFailure{
				FileName: f.FileName,
				URL:      f.URL,
				Err:      fmt.Errorf("%w: %v", ErrRecordStoreSync, err),
			})
		} else {
			photo.RemoteID = remoteID
		}
		result.Photos = append(result.Photos, photo)

		if photo.ThumbnailURL != "" {
			e.enqueue(ctx, repository.MediaTask{
				Kind:         repository.TaskGenerateThumbnail,
				URL:          photo.URL,
				ThumbnailURL: photo.ThumbnailURL,
			})
		}
	}

	if len(result.Photos) > 0 {
		err := e.updateCachedMedia(ctx, func(photos []*model.Photo, videos []*model.Video) ([]*model.Photo, []*model.Video, bool, bool) {
			return append(photos, result.Photos...), videos, true, false
		})
		if err != nil {
			e.warnCache("add photos", err)
		}
	}

	return result, nil
}

// AddVideos uploads files into the videos folder. Titles default to the
// file name without its extension.
func (e *MediaEngine) AddVideos(ctx context.Context, eventID uuid.UUID, files []FileHandle, opts UploadOptions) (*AddMediaResult, error) {
	event, err := e.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := e.resolveRemoteID(ctx, event); err != nil {
		return nil, err
	}

	upload, err := e.uploader.Upload(ctx, files, model.FolderVideos, opts)
	result := &AddMediaResult{Upload: upload}
	if err != nil {
		return result, err
	}

	for _, f := range upload.Successful {
		title := strings.TrimSuffix(f.FileName, filepath.Ext(f.FileName))
		video, err := model.NewUploadedVideo(event, f.URL, model.DeriveThumbnailURL(f.URL), title)
		if err != nil {
			result.SyncFailures = append(result.SyncFailures, SyncFailure{FileName: f.FileName, URL: f.URL, Err: err})
			continue
		}

		if err := e.insertVideo(ctx, video); err != nil {
			result.SyncFailures = append(result.SyncFailures, SyncFailure{FileName: f.FileName, URL: f.URL, Err: err})
		}
		result.Videos = append(result.Videos, video)

		if video.ThumbnailURL != "" {
			e.enqueue(ctx, repository.MediaTask{
				Kind:         repository.TaskGenerateThumbnail,
				URL:          video.URL,
				ThumbnailURL: video.ThumbnailURL,
			})
		}
	}

	if len(result.Videos) > 0 {
		e.cacheVideos(ctx, result.Videos...)
	}
	return result, nil
}

// AddExternalVideo records a YouTube or Vimeo link. Nothing is uploaded.
// On a record store failure the video is still cached and returned together
// with an error wrapping ErrRecordStoreSync.
func (e *MediaEngine) AddExternalVideo(ctx context.Context, eventID uuid.UUID, rawURL, title string) (*model.Video, error) {
	event, err := e.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	video, err := model.NewExternalVideo(event, rawURL, title)
	if err != nil {
		return nil, err
	}
	if _, err := e.resolveRemoteID(ctx, event); err != nil {
		return nil, err
	}
	video.EventRemoteID = event.RemoteID

	syncErr := e.insertVideo(ctx, video)
	e.cacheVideos(ctx, video)
	return video, syncErr
}

func (e *MediaEngine) insertVideo(ctx context.Context, video *model.Video) error {
	remoteID, err := e.videos.Create(ctx, video)
	if err != nil {
		e.logger.Warn("video record store insert failed",
			"event_id", video.EventID,
			"url", video.URL,
			"error", err,
		)
		return fmt.Errorf("%w: %v", ErrRecordStoreSync, err)
	}
	video.RemoteID = remoteID
	return nil
}

func (e *MediaEngine) cacheVideos(ctx context.Context, added ...*model.Video) {
	err := e.updateCachedMedia(ctx, func(photos []*model.Photo, videos []*model.Video) ([]*model.Photo, []*model.Video, bool, bool) {
		return photos, append(videos, added...), false, true
	})
	if err != nil {
		e.warnCache("add videos", err)
	}
}

// CoverResult reports a cover replacement. Report lists the deletes of the
// previous cover image and thumbnail.
type CoverResult struct {
	Event  *model.Event
	Report *DeleteReport
}

// SetCover uploads file as the event's new cover and replaces the old one.
func (e *MediaEngine) SetCover(ctx context.Context, eventID uuid.UUID, file FileHandle) (*CoverResult, error) {
	event, err := e.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := e.resolveRemoteID(ctx, event); err != nil {
		return nil, err
	}

	upload, err := e.uploader.Upload(ctx, []FileHandle{file}, model.FolderEvents, UploadOptions{Concurrency: 1})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCoverUploadFailed, err)
	}
	if len(upload.Successful) != 1 {
		msg := "no upload result"
		if len(upload.Failed) > 0 {
			msg = upload.Failed[0].Error
		}
		return nil, fmt.Errorf("%w: %s", ErrCoverUploadFailed, msg)
	}

	newURL := upload.Successful[0].URL
	return e.ReplaceCover(ctx, event.ID, newURL, model.DeriveThumbnailURL(newURL))
}

// ReplaceCover points the event at an already uploaded cover. The record
// store is updated first; only then are the previous image and thumbnail
// deleted, each independently of the other.
func (e *MediaEngine) ReplaceCover(ctx context.Context, eventID uuid.UUID, imageURL, thumbnailURL string) (*CoverResult, error) {
	event, err := e.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	remoteID, err := e.resolveRemoteID(ctx, event)
	if err != nil {
		return nil, err
	}

	updated := *event
	prevImage, prevThumb := updated.SetCover(imageURL, thumbnailURL)

	if err := e.events.Update(ctx, remoteID, &updated); err != nil {
		return nil, fmt.Errorf("%w: update cover: %v", ErrRecordStoreSync, err)
	}
	e.saveEvent(ctx, &updated)

	report := newDeleteReport()
	for _, u := range dedupeURLs(prevImage, prevThumb) {
		if u == imageURL || u == thumbnailURL {
			continue
		}
		e.deleteObject(ctx, report, u, sourceCover)
	}

	return &CoverResult{Event: &updated, Report: report}, nil
}

// RefreshResult summarizes a reconciling read.
type RefreshResult struct {
	Event   *model.Event
	Photos  int
	Videos  int
	Dropped int
	Removed bool
}

// RefreshEvent replaces the event's cached rows with the record store's.
// Cached children whose remote row vanished are dropped; children never
// synced are kept. An event missing from the record store is removed from
// the cache together with its children.
func (e *MediaEngine) RefreshEvent(ctx context.Context, eventID uuid.UUID) (*RefreshResult, error) {
	event, err := e.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	remoteID, err := e.resolveRemoteID(ctx, event)
	if err != nil {
		return nil, err
	}

	stored, err := e.events.GetByID(ctx, remoteID)
	if errors.Is(err, repository.ErrEventNotFound) {
		e.removeEvent(ctx, event)
		dropped := 0
		err := e.updateCachedMedia(ctx, func(photos []*model.Photo, videos []*model.Video) ([]*model.Photo, []*model.Video, bool, bool) {
			keptPhotos, keptVideos := withoutEvent(event, photos, videos)
			dropped = len(photos) - len(keptPhotos) + len(videos) - len(keptVideos)
			return keptPhotos, keptVideos, true, true
		})
		if err != nil {
			e.warnCache("drop event media", err)
		}
		return &RefreshResult{Event: event, Dropped: dropped, Removed: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}

	// Keep the local id so children cached under it still match.
	stored.ID = event.ID
	e.saveEvent(ctx, stored)

	keys := stored.Keys()
	remotePhotos, err := e.photos.ListByEventIDs(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	remoteVideos, err := e.videos.ListByEventIDs(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	result := &RefreshResult{Event: stored, Photos: len(remotePhotos), Videos: len(remoteVideos)}
	err = e.updateCachedMedia(ctx, func(photos []*model.Photo, videos []*model.Video) ([]*model.Photo, []*model.Video, bool, bool) {
		var droppedPhotos, droppedVideos int
		photos, droppedPhotos = reconcile(stored, photos, remotePhotos, func(p *model.Photo) *model.MediaAsset { return &p.MediaAsset })
		videos, droppedVideos = reconcile(stored, videos, remoteVideos, func(v *model.Video) *model.MediaAsset { return &v.MediaAsset })
		result.Dropped = droppedPhotos + droppedVideos
		return photos, videos, true, true
	})
	if err != nil {
		return nil, fmt.Errorf("update cache: %w", err)
	}

	e.logger.Info("event refreshed",
		"event_id", stored.ID,
		"photos", result.Photos,
		"videos", result.Videos,
		"dropped", result.Dropped,
	)
	return result, nil
}

// reconcile rebuilds the event's share of a cached collection from remote
// rows. Local ids of matching cached entries are kept.
func reconcile[T any](event *model.Event, cached, remote []T, asset func(T) *model.MediaAsset) ([]T, int) {
	byURL := make(map[string]T, len(remote))
	for _, r := range remote {
		byURL[asset(r).URL] = r
	}

	out := make([]T, 0, len(cached)+len(remote))
	dropped := 0
	for _, c := range cached {
		a := asset(c)
		if !a.BelongsTo(event) {
			out = append(out, c)
			continue
		}
		r, ok := byURL[a.URL]
		switch {
		case ok:
			ra := asset(r)
			ra.ID = a.ID
			ra.EventID = event.ID
			delete(byURL, a.URL)
			out = append(out, r)
		case a.HasRemoteID():
			dropped++
		default:
			out = append(out, c)
		}
	}
	for _, r := range remote {
		ra := asset(r)
		if _, pending := byURL[ra.URL]; pending {
			ra.EventID = event.ID
			out = append(out, r)
		}
	}
	return out, dropped
}

func withoutEvent(event *model.Event, photos []*model.Photo, videos []*model.Video) ([]*model.Photo, []*model.Video) {
	keptPhotos := make([]*model.Photo, 0, len(photos))
	for _, p := range photos {
		if !p.BelongsTo(event) {
			keptPhotos = append(keptPhotos, p)
		}
	}
	keptVideos := make([]*model.Video, 0, len(videos))
	for _, v := range videos {
		if !v.BelongsTo(event) {
			keptVideos = append(keptVideos, v)
		}
	}
	return keptPhotos, keptVideos
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
	"github.com/hszk-dev/atelier/internal/infrastructure/metrics"
)

// DeleteStep names one kind of operation attempted during a delete.
type DeleteStep string

const (
	StepObject       DeleteStep = "object"
	StepRetryQueued  DeleteStep = "retry_queued"
	StepListChildren DeleteStep = "list_children"
	StepPhotoRows    DeleteStep = "photo_rows"
	StepVideoRows    DeleteStep = "video_rows"
	StepEventRow     DeleteStep = "event_row"
	StepPhotoRow     DeleteStep = "photo_row"
	StepVideoRow     DeleteStep = "video_row"
	StepCache        DeleteStep = "cache"
)

const sourceCover = metrics.DeleteSourceCover

// StepResult is the outcome of one attempted operation.
type StepResult struct {
	Step   DeleteStep
	Target string
	Rows   int64
	Err    error
}

func (r StepResult) OK() bool { return r.Err == nil }

// DeleteReport collects every operation a delete attempted, in completion
// order. It is safe for concurrent use.
type DeleteReport struct {
	mu    sync.Mutex
	steps []StepResult
}

func newDeleteReport() *DeleteReport {
	return &DeleteReport{}
}

func (r *DeleteReport) add(step DeleteStep, target string, rows int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, StepResult{Step: step, Target: target, Rows: rows, Err: err})
}

// Steps returns a copy of all results.
func (r *DeleteReport) Steps() []StepResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StepResult(nil), r.steps...)
}

// Attempts returns the results of one step kind.
func (r *DeleteReport) Attempts(step DeleteStep) []StepResult {
	var out []StepResult
	for _, s := range r.Steps() {
		if s.Step == step {
			out = append(out, s)
		}
	}
	return out
}

// Failures returns the failed results.
func (r *DeleteReport) Failures() []StepResult {
	var out []StepResult
	for _, s := range r.Steps() {
		if !s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// RecordsDeleted reports whether every record store delete succeeded.
func (r *DeleteReport) RecordsDeleted() bool {
	for _, s := range r.Failures() {
		switch s.Step {
		case StepPhotoRows, StepVideoRows, StepEventRow, StepPhotoRow, StepVideoRow:
			return false
		}
	}
	return true
}

// Err combines every failure, or returns nil.
func (r *DeleteReport) Err() error {
	var err error
	for _, s := range r.Failures() {
		err = multierr.Append(err, fmt.Errorf("%s %s: %w", s.Step, s.Target, s.Err))
	}
	return err
}

// DeleteEvent removes an event with its photos, videos and files.
//
// Children are collected under both event keys. Object deletes run
// concurrently and do not hold up the row deletes; a failed object delete is
// reported and queued for retry. The cache entries go last. Failures never
// stop later steps, so the returned error is only about finding the event.
func (e *MediaEngine) DeleteEvent(ctx context.Context, eventID uuid.UUID) (*DeleteReport, error) {
	event, err := e.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.HasRemoteID() {
		if found, err := e.events.GetBySlug(ctx, event.Slug); err == nil {
			event.RemoteID = found.RemoteID
		}
	}

	report := newDeleteReport()
	keys := event.Keys()
	photos, videos := e.collectChildren(ctx, report, event, keys)

	var objects errgroup.Group
	for _, u := range cascadeURLs(event, photos, videos) {
		objects.Go(func() error {
			e.deleteObject(ctx, report, u, metrics.DeleteSourceCascade)
			return nil
		})
	}

	n, err := e.photos.DeleteByEventIDs(ctx, keys)
	report.add(StepPhotoRows, event.ID.String(), n, err)

	n, err = e.videos.DeleteByEventIDs(ctx, keys)
	report.add(StepVideoRows, event.ID.String(), n, err)

	if event.HasRemoteID() {
		report.add(StepEventRow, event.RemoteID.String(), 0, e.events.Delete(ctx, event.RemoteID))
	} else {
		report.add(StepEventRow, event.Slug, 0, e.events.DeleteBySlug(ctx, event.Slug))
	}

	_ = objects.Wait()

	e.removeEvent(ctx, event)
	err = e.updateCachedMedia(ctx, func(cp []*model.Photo, cv []*model.Video) ([]*model.Photo, []*model.Video, bool, bool) {
		keptPhotos, keptVideos := withoutEvent(event, cp, cv)
		return keptPhotos, keptVideos, true, true
	})
	report.add(StepCache, event.ID.String(), 0, err)

	e.logDeleteReport("event deleted", event.ID, report)
	return report, nil
}

// collectChildren merges the record store's and the cache's photos and
// videos of the event, deduplicated by URL.
func (e *MediaEngine) collectChildren(ctx context.Context, report *DeleteReport, event *model.Event, keys []uuid.UUID) ([]*model.Photo, []*model.Video) {
	var photos []*model.Photo
	var videos []*model.Video

	remotePhotos, err := e.photos.ListByEventIDs(ctx, keys)
	if err != nil {
		report.add(StepListChildren, "photos", 0, err)
	}
	remoteVideos, err := e.videos.ListByEventIDs(ctx, keys)
	if err != nil {
		report.add(StepListChildren, "videos", 0, err)
	}

	cachedPhotos, err := e.cache.Photos(ctx)
	if err != nil {
		e.warnCache("read photos", err)
	}
	cachedVideos, err := e.cache.Videos(ctx)
	if err != nil {
		e.warnCache("read videos", err)
	}

	seen := make(map[string]bool)
	for _, p := range append(remotePhotos, cachedPhotos...) {
		if p.BelongsTo(event) && !seen[p.URL] {
			seen[p.URL] = true
			photos = append(photos, p)
		}
	}
	for _, v := range append(remoteVideos, cachedVideos...) {
		if v.BelongsTo(event) && !seen[v.URL] {
			seen[v.URL] = true
			videos = append(videos, v)
		}
	}
	return photos, videos
}

// cascadeURLs lists the files an event delete removes: each photo with its
// recorded or derived thumbnail, each uploaded video likewise unless a third
// party hosts it, and the cover pair.
func cascadeURLs(event *model.Event, photos []*model.Photo, videos []*model.Video) []string {
	var urls []string
	for _, p := range photos {
		urls = append(urls, p.URL, p.ResolvedThumbnailURL())
	}
	for _, v := range videos {
		if v.IsThirdPartyHosted() {
			continue
		}
		urls = append(urls, v.URL)
		if thumb := v.ResolvedThumbnailURL(); !model.IsThirdPartyHosted(thumb) {
			urls = append(urls, thumb)
		}
	}
	urls = append(urls, event.CoverImageURL, event.CoverThumbnailURL)
	return dedupeURLs(urls...)
}

// dedupeURLs drops empty and repeated URLs, keeping the first occurrence.
func dedupeURLs(urls ...string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// deleteObject removes one file, bounded by DeleteTimeout. A failure is
// recorded and handed to the task queue for retry.
func (e *MediaEngine) deleteObject(ctx context.Context, report *DeleteReport, url, source string) {
	deleteCtx, cancel := context.WithTimeout(ctx, e.cfg.DeleteTimeout)
	defer cancel()

	err := e.gateway.Delete(deleteCtx, url)
	report.add(StepObject, url, 0, err)
	if err == nil {
		metrics.ObjectDeletesTotal.WithLabelValues(source, metrics.StatusSuccess).Inc()
		return
	}

	metrics.ObjectDeletesTotal.WithLabelValues(source, metrics.StatusError).Inc()
	e.logger.Warn("object delete failed", "url", url, "source", source, "error", err)

	if e.enqueue(ctx, repository.MediaTask{Kind: repository.TaskDeleteObject, URL: url}) {
		report.add(StepRetryQueued, url, 0, nil)
	}
}

// DeletePhoto removes one photo. The thumbnail is derived from the URL when
// none was recorded. The row goes by remote id, or by URL when the remote id
// was never captured. The cache entry is removed last.
func (e *MediaEngine) DeletePhoto(ctx context.Context, photoID uuid.UUID) (*DeleteReport, error) {
	photo, err := e.findPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}

	report := newDeleteReport()
	for _, u := range dedupeURLs(photo.URL, photo.ResolvedThumbnailURL()) {
		e.deleteObject(ctx, report, u, metrics.DeleteSourceSingle)
	}

	if photo.HasRemoteID() {
		report.add(StepPhotoRow, photo.RemoteID.String(), 0, e.photos.Delete(ctx, photo.RemoteID))
	} else {
		report.add(StepPhotoRow, photo.URL, 0, e.photos.DeleteByURL(ctx, photo.URL))
	}

	err = e.updateCachedMedia(ctx, func(photos []*model.Photo, videos []*model.Video) ([]*model.Photo, []*model.Video, bool, bool) {
		kept := photos[:0]
		for _, p := range photos {
			if !sameAsset(&p.MediaAsset, &photo.MediaAsset) {
				kept = append(kept, p)
			}
		}
		return kept, videos, true, false
	})
	report.add(StepCache, photo.ID.String(), 0, err)

	e.logDeleteReport("photo deleted", photo.ID, report)
	return report, nil
}

// DeleteVideo removes one video. Files of third-party hosted videos are left alone.
func (e *MediaEngine) DeleteVideo(ctx context.Context, videoID uuid.UUID) (*DeleteReport, error) {
	video, err := e.findVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	report := newDeleteReport()
	if !video.IsThirdPartyHosted() {
		thumb := video.ResolvedThumbnailURL()
		if model.IsThirdPartyHosted(thumb) {
			thumb = ""
		}
		for _, u := range dedupeURLs(video.URL, thumb) {
			e.deleteObject(ctx, report, u, metrics.DeleteSourceSingle)
		}
	}

	if video.HasRemoteID() {
		report.add(StepVideoRow, video.RemoteID.String(), 0, e.videos.Delete(ctx, video.RemoteID))
	} else {
		report.add(StepVideoRow, video.URL, 0, e.videos.DeleteByURL(ctx, video.URL))
	}

	err = e.updateCachedMedia(ctx, func(photos []*model.Photo, videos []*model.Video) ([]*model.Photo, []*model.Video, bool, bool) {
		kept := videos[:0]
		for _, v := range videos {
			if !sameAsset(&v.MediaAsset, &video.MediaAsset) {
				kept = append(kept, v)
			}
		}
		return photos, kept, false, true
	})
	report.add(StepCache, video.ID.String(), 0, err)

	e.logDeleteReport("video deleted", video.ID, report)
	return report, nil
}

func (e *MediaEngine) findPhoto(ctx context.Context, id uuid.UUID) (*model.Photo, error) {
	if id == uuid.Nil {
		return nil, ErrPhotoNotFound
	}
	photos, err := e.cache.Photos(ctx)
	if err != nil {
		e.warnCache("read photos", err)
	}
	for _, p := range photos {
		if p.Matches(id) {
			return p, nil
		}
	}

	photo, err := e.photos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return photo, nil
}

func (e *MediaEngine) findVideo(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	if id == uuid.Nil {
		return nil, ErrVideoNotFound
	}
	videos, err := e.cache.Videos(ctx)
	if err != nil {
		e.warnCache("read videos", err)
	}
	for _, v := range videos {
		if v.Matches(id) {
			return v, nil
		}
	}

	video, err := e.videos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

func sameAsset(a, b *model.MediaAsset) bool {
	return a.ID == b.ID || (a.HasRemoteID() && a.RemoteID == b.RemoteID) || a.URL == b.URL
}

func (e *MediaEngine) logDeleteReport(msg string, id uuid.UUID, report *DeleteReport) {
	failures := report.Failures()
	if len(failures) == 0 {
		e.logger.Info(msg, "id", id, "steps", len(report.Steps()))
		return
	}
	e.logger.Warn(msg+" with failures",
		"id", id,
		"steps", len(report.Steps()),
		"failed", len(failures),
		"error", report.Err(),
	)
}

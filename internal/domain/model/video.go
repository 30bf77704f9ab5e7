package model

import (
	"errors"
	"net/url"
	"strings"
)

// VideoType tells where the video bytes live.
type VideoType string

const (
	VideoTypeUploaded VideoType = "uploaded"
	VideoTypeYouTube  VideoType = "youtube"
	VideoTypeVimeo    VideoType = "vimeo"
)

var (
	ErrTitleTooLong        = errors.New("title exceeds maximum length of 255 characters")
	ErrUnsupportedVideoURL = errors.New("video url is not a supported third-party host")
)

const maxTitleLength = 255

func (t VideoType) IsValid() bool {
	switch t {
	case VideoTypeUploaded, VideoTypeYouTube, VideoTypeVimeo:
		return true
	default:
		return false
	}
}

func (t VideoType) String() string {
	return string(t)
}

// Video is an event film, either uploaded to the object store or hosted
// by a third party.
type Video struct {
	MediaAsset
	Title string
	Type  VideoType
}

// NewUploadedVideo creates a video whose bytes live in the object store.
func NewUploadedVideo(event *Event, url, thumbnailURL, title string) (*Video, error) {
	if len(title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}
	asset, err := newMediaAsset(event, url, thumbnailURL)
	if err != nil {
		return nil, err
	}
	return &Video{MediaAsset: asset, Title: title, Type: VideoTypeUploaded}, nil
}

// NewExternalVideo creates a video hosted on YouTube or Vimeo.
// The thumbnail is taken from the host when it can be derived.
func NewExternalVideo(event *Event, rawURL, title string) (*Video, error) {
	if len(title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}
	typ := externalVideoType(rawURL)
	if typ == "" {
		return nil, ErrUnsupportedVideoURL
	}
	asset, err := newMediaAsset(event, rawURL, YouTubeThumbnailURL(rawURL))
	if err != nil {
		return nil, err
	}
	return &Video{MediaAsset: asset, Title: title, Type: typ}, nil
}

// IsThirdPartyHosted reports whether the video's files are outside our object store.
func (v *Video) IsThirdPartyHosted() bool {
	return v.Type != VideoTypeUploaded || IsThirdPartyHosted(v.URL)
}

// thirdPartyHosts lists hosts whose URLs are never deleted from the object store.
var thirdPartyHosts = []string{
	"youtube.com",
	"youtu.be",
	"ytimg.com",
	"youtube-nocookie.com",
	"vimeo.com",
	"vimeocdn.com",
}

// IsThirdPartyHosted reports whether rawURL points at a known video host.
func IsThirdPartyHosted(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, h := range thirdPartyHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// VideoTypeFor infers the video type from the host of rawURL.
func VideoTypeFor(rawURL string) VideoType {
	if t := externalVideoType(rawURL); t != "" {
		return t
	}
	return VideoTypeUploaded
}

func externalVideoType(rawURL string) VideoType {
	host := hostOf(rawURL)
	switch {
	case host == "youtu.be", host == "youtube.com", strings.HasSuffix(host, ".youtube.com"):
		return VideoTypeYouTube
	case host == "vimeo.com", strings.HasSuffix(host, ".vimeo.com"):
		return VideoTypeVimeo
	default:
		return ""
	}
}

// YouTubeThumbnailURL returns the hosted poster image for a YouTube link,
// or "" for anything else.
func YouTubeThumbnailURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())

	var id string
	switch {
	case host == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			id = v
		} else if rest, ok := strings.CutPrefix(u.Path, "/embed/"); ok {
			id = rest
		} else if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
			id = rest
		}
	}
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return "https://img.youtube.com/vi/" + id + "/hqdefault.jpg"
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// YouTube [Service] implementation
//
// Video metadata comes from the public oEmbed endpoint, which needs no API key.
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/colisten/internal/identifiers"
	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
)

const (
	defaultOEmbedURL = "https://www.youtube.com/oembed"
	youTubeWatchURL  = "https://www.youtube.com/watch?v="
	youTubeEmbedURL  = "https://www.youtube.com/embed/"
)

// YouTubeOEmbed is the oEmbed response for a video.
type YouTubeOEmbed struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	ProviderName string `json:"provider_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// YouTubeService resolves video metadata via oEmbed.
type YouTubeService struct {
	api *APIService
}

// NewYouTubeService creates a new YouTube service querying oembedURL.
func NewYouTubeService(oembedURL string, client *http.Client) *YouTubeService {
	if oembedURL == "" {
		oembedURL = defaultOEmbedURL
	}
	return &YouTubeService{api: NewAPIService(strings.TrimSuffix(oembedURL, "/"), client)}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// Authenticate is a no-op; oEmbed is public.
func (y *YouTubeService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

// Video fetches the oEmbed document for a video id or link.
func (y *YouTubeService) Video(ctx context.Context, id string) (*YouTubeOEmbed, error) {
	id = identifiers.NormalizeYouTube(id)
	if id == "" {
		return nil, fmt.Errorf("%w: video id is required", shared.ErrMissingArgument)
	}

	query := url.Values{"url": {WatchURL(id)}, "format": {"json"}}
	resp, err := y.api.Get(ctx, "?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if !resp.OK() {
		return nil, &APIError{Service: "YouTube", StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var video YouTubeOEmbed
	if err := resp.Decode(&video); err != nil {
		return nil, err
	}
	return &video, nil
}

// Metadata maps the oEmbed document to [models.TrackMetadata].
func (y *YouTubeService) Metadata(ctx context.Context, id string) (*models.TrackMetadata, error) {
	id = identifiers.NormalizeYouTube(id)
	video, err := y.Video(ctx, id)
	if err != nil {
		return nil, err
	}

	meta := &models.TrackMetadata{
		ID:      id,
		Name:    video.Title,
		Artists: video.AuthorName,
		Type:    "video",
	}
	if video.ThumbnailURL != "" {
		thumb := video.ThumbnailURL
		meta.Image = &thumb
	}
	return meta, nil
}

// WatchURL returns the watch page for a video id.
func WatchURL(id string) string {
	return youTubeWatchURL + url.QueryEscape(id)
}

// EmbedURL returns an autoplaying embed URL starting at startSeconds.
func EmbedURL(id string, startSeconds int) string {
	u := youTubeEmbedURL + url.PathEscape(id) + "?autoplay=1"
	if startSeconds > 0 {
		u += fmt.Sprintf("&start=%d", startSeconds)
	}
	return u
}

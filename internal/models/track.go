package models

import (
	"fmt"
	"strings"
)

// TrackMetadata is the display metadata returned by the metadata endpoints.
type TrackMetadata struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Artists    string  `json:"artists"`
	Album      string  `json:"album"`
	Image      *string `json:"image"`
	DurationMs int     `json:"durationMs"`
	PreviewURL *string `json:"previewUrl"`
	Type       string  `json:"type"` // track, playlist, album or video
}

// ImageURL returns the image or an empty string.
func (m TrackMetadata) ImageURL() string {
	if m.Image == nil {
		return ""
	}
	return *m.Image
}

// CachedTrack persists [TrackMetadata] keyed by service and service ID.
type CachedTrack struct {
	base
	service   string
	serviceID string
	meta      TrackMetadata
}

// NewCachedTrack creates an unsaved cache entry.
func NewCachedTrack(service, serviceID string, meta TrackMetadata) *CachedTrack {
	return &CachedTrack{
		base:      newBase(0),
		service:   strings.ToLower(service),
		serviceID: serviceID,
		meta:      meta,
	}
}

func (t *CachedTrack) Service() string         { return t.service }
func (t *CachedTrack) ServiceID() string       { return t.serviceID }
func (t *CachedTrack) Metadata() TrackMetadata { return t.meta }

// Validate checks required fields.
func (t *CachedTrack) Validate() error {
	if t.id == "" {
		return fmt.Errorf("track ID is required")
	}
	if t.service == "" || t.serviceID == "" {
		return fmt.Errorf("track service and service ID are required")
	}
	if t.meta.Type == "" {
		return fmt.Errorf("track kind is required")
	}
	return nil
}

// Message is a chat line. Emoji are carried as literal characters.
type Message struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
	tu "github.com/desertthunder/colisten/internal/testing"
)

type memoryCache struct {
	entries map[string]models.TrackMetadata
	err     error
}

func (m *memoryCache) CacheTrack(service, id string, meta models.TrackMetadata) error {
	if m.err != nil {
		return m.err
	}
	m.entries[service+":"+id] = meta
	return nil
}

func (m *memoryCache) Lookup(service, id string) (models.TrackMetadata, bool, error) {
	if m.err != nil {
		return models.TrackMetadata{}, false, m.err
	}
	meta, ok := m.entries[service+":"+id]
	return meta, ok, nil
}

func TestCachedService(t *testing.T) {
	logger := shared.NewLogger(io.Discard)
	ctx := context.Background()

	t.Run("Miss Then Hit", func(t *testing.T) {
		mock := &tu.MockService{Meta: &models.TrackMetadata{ID: "x", Name: "Song", Type: "track"}}
		svc := NewCachedService(mock, &memoryCache{entries: map[string]models.TrackMetadata{}}, "spotify", logger)

		for range 3 {
			meta, err := svc.Metadata(ctx, "spotify:track:x")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if meta.Name != "Song" {
				t.Errorf("unexpected metadata %+v", meta)
			}
		}
		if mock.CallCount() != 1 {
			t.Errorf("expected one upstream call, got %d", mock.CallCount())
		}
		if svc.Name() != "mock" {
			t.Errorf("expected embedded service name, got %s", svc.Name())
		}
	})

	t.Run("Upstream Errors Are Not Cached", func(t *testing.T) {
		cache := &memoryCache{entries: map[string]models.TrackMetadata{}}
		mock := &tu.MockService{Err: shared.ErrTrackNotFound}
		svc := NewCachedService(mock, cache, "youtube", logger)

		if _, err := svc.Metadata(ctx, "abc"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected upstream error, got %v", err)
		}
		if len(cache.entries) != 0 {
			t.Error("failed lookups should not be cached")
		}
	})

	t.Run("Broken Cache Falls Through", func(t *testing.T) {
		mock := &tu.MockService{Meta: &models.TrackMetadata{ID: "x", Name: "Song", Type: "video"}}
		svc := NewCachedService(mock, &memoryCache{err: errors.New("disk full")}, "youtube", logger)

		meta, err := svc.Metadata(ctx, "x")
		if err != nil {
			t.Fatalf("cache failure should not fail the lookup: %v", err)
		}
		if meta.Name != "Song" {
			t.Errorf("unexpected metadata %+v", meta)
		}
	})
}

package repositories

import (
	"errors"
	"fmt"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
)

// TrackCacheAdapter caches [models.TrackMetadata] through a [TrackRepository].
//
// Duplicate inserts for the same service+service_id are silently ignored.
type TrackCacheAdapter struct {
	repo *TrackRepository
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter with the given repository
func NewTrackCacheAdapter(repo *TrackRepository) *TrackCacheAdapter {
	return &TrackCacheAdapter{repo: repo}
}

// CacheTrack stores meta for the service's identifier. Returns nil when an entry already exists.
func (a *TrackCacheAdapter) CacheTrack(service, serviceID string, meta models.TrackMetadata) error {
	if existing, err := a.repo.GetByServiceID(service, serviceID); err == nil && existing != nil {
		return nil
	}

	if err := a.repo.Create(models.NewCachedTrack(service, serviceID, meta)); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to cache track: %w", err)
	}
	return nil
}

// Lookup returns cached metadata. The boolean is false on a cache miss.
func (a *TrackCacheAdapter) Lookup(service, serviceID string) (models.TrackMetadata, bool, error) {
	track, err := a.repo.GetByServiceID(service, serviceID)
	if errors.Is(err, shared.ErrTrackNotFound) {
		return models.TrackMetadata{}, false, nil
	}
	if err != nil {
		return models.TrackMetadata{}, false, err
	}
	return track.Metadata(), true, nil
}

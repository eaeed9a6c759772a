package services

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/colisten/internal/models"
)

// MetadataCache stores resolved metadata by service and identifier.
type MetadataCache interface {
	CacheTrack(service, serviceID string, meta models.TrackMetadata) error
	Lookup(service, serviceID string) (models.TrackMetadata, bool, error)
}

// CachedService serves [Service.Metadata] from a [MetadataCache], falling through to the wrapped service on a miss.
//
// Cache failures are logged and never fail the lookup.
type CachedService struct {
	Service
	cache  MetadataCache
	key    string
	logger *log.Logger
}

// NewCachedService wraps svc. key names the service in the cache (e.g. "spotify").
func NewCachedService(svc Service, cache MetadataCache, key string, logger *log.Logger) *CachedService {
	return &CachedService{Service: svc, cache: cache, key: key, logger: logger}
}

func (c *CachedService) Metadata(ctx context.Context, id string) (*models.TrackMetadata, error) {
	if meta, ok, err := c.cache.Lookup(c.key, id); err != nil {
		c.logger.Warn("metadata cache lookup failed", "service", c.key, "id", id, "error", err)
	} else if ok {
		c.logger.Debug("metadata cache hit", "service", c.key, "id", id)
		return &meta, nil
	}

	meta, err := c.Service.Metadata(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.cache.CacheTrack(c.key, id, *meta); err != nil {
		c.logger.Warn("failed to cache metadata", "service", c.key, "id", id, "error", err)
	}
	return meta, nil
}

package windzone

import (
	"context"
	"errors"
	"time"

	"sow-workers/internal/common/database"
	"sow-workers/internal/common/logger"
	"sow-workers/internal/common/metrics"
)

const cacheKeyPrefix = "sow:windzone:"

// CachedRepository serves lookups from Redis and falls through to next on a
// miss. Redis failures degrade to uncached lookups.
type CachedRepository struct {
	next   Repository
	cache  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedRepository(next Repository, cache *database.RedisClient, ttl time.Duration, log logger.Logger) *CachedRepository {
	return &CachedRepository{next: next, cache: cache, ttl: ttl, logger: log}
}

func cacheKey(j Jurisdiction) string {
	return cacheKeyPrefix + j.State + ":" + j.County
}

func (r *CachedRepository) Lookup(ctx context.Context, j Jurisdiction) (*WindZone, error) {
	j = j.Normalized()
	key := cacheKey(j)

	var zone WindZone
	err := r.cache.GetJSON(ctx, key, &zone)
	switch {
	case err == nil:
		metrics.WindZoneLookups.WithLabelValues("cache", "hit").Inc()
		return &zone, nil
	case errors.Is(err, database.ErrCacheMiss):
		metrics.WindZoneLookups.WithLabelValues("cache", "miss").Inc()
	default:
		metrics.WindZoneLookups.WithLabelValues("cache", "error").Inc()
		r.logger.Warn("wind zone cache read failed", map[string]interface{}{
			"jurisdiction": j.String(),
			"error":        err.Error(),
		})
	}

	found, err := r.next.Lookup(ctx, j)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.WindZoneLookups.WithLabelValues("database", "not_found").Inc()
		} else {
			metrics.WindZoneLookups.WithLabelValues("database", "error").Inc()
		}
		return nil, err
	}
	metrics.WindZoneLookups.WithLabelValues("database", "hit").Inc()

	if err := r.cache.SetJSON(ctx, key, found, r.ttl); err != nil {
		r.logger.Warn("wind zone cache write failed", map[string]interface{}{
			"jurisdiction": j.String(),
			"error":        err.Error(),
		})
	}
	return found, nil
}

package server

import (
	"context"
	"encoding/json"

	"github.com/allegro/bigcache/v3"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/pkg/errors"
)

// Stats returns the dashboard counters, served from cache while fresh.
func (s Server) Stats(ctx context.Context) (listing.Stats, error) {
	var stats listing.Stats
	if buf, err := s.stats.Get(CacheKeyStats); err == nil {
		if err := json.Unmarshal(buf, &stats); err == nil {
			return stats, nil
		}
	}
	stats, err := s.api.Stats(ctx)
	if err != nil {
		return listing.Stats{}, errors.Wrap(err, "unable to fetch stats")
	}
	buf, err := json.Marshal(stats)
	if err != nil {
		return stats, nil
	}
	if err := s.stats.Set(CacheKeyStats, buf); err != nil {
		s.Log(err, "unable to cache stats")
	}
	return stats, nil
}

// InvalidateStats drops cached counters after a posting changed.
func (s Server) InvalidateStats() {
	if err := s.stats.Delete(CacheKeyStats); err != nil && err != bigcache.ErrEntryNotFound {
		s.Log(err, "unable to invalidate stats")
	}
}

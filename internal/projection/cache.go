package projection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kitchenlane/catering-ops/pkg/logger"
)

const dashboardKey = "catering:dashboard"

// SnapshotCache stores the dashboard snapshot in Redis so every instance
// serves the same read model. The TTL is bounded by the refresh interval,
// which keeps a stale entry within the consistency window the views promise.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewSnapshotCache creates a snapshot cache with the given TTL.
func NewSnapshotCache(client *redis.Client, ttl time.Duration, logger logger.Logger) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl, logger: logger}
}

// PutDashboard stores the dashboard snapshot.
func (c *SnapshotCache) PutDashboard(ctx context.Context, stats DashboardStats) error {
	payload, err := json.Marshal(stats)

	if err != nil {
		return err
	}

	return c.client.Set(ctx, dashboardKey, payload, c.ttl).Err()
}

// GetDashboard returns the cached snapshot, or ok=false on miss. Cache errors
// are logged and reported as a miss so callers fall back to recomputing.
func (c *SnapshotCache) GetDashboard(ctx context.Context) (DashboardStats, bool) {
	var stats DashboardStats

	payload, err := c.client.Get(ctx, dashboardKey).Bytes()

	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Dashboard cache read failed", "error", err)
		}
		return stats, false
	}

	if err := json.Unmarshal(payload, &stats); err != nil {
		c.logger.Warn("Dashboard cache entry corrupt", "error", err)
		return stats, false
	}

	return stats, true
}

// Invalidate drops the cached snapshot, forcing the next read to recompute.
func (c *SnapshotCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, dashboardKey).Err(); err != nil {
		c.logger.Warn("Dashboard cache invalidation failed", "error", err)
	}
}

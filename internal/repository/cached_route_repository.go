package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	transferDomain "github.com/caribe-transfers/service-transfer/internal/domain/transfer"
)

const (
	routeCacheGenKey    = "transfer:routes:gen"
	routeCacheKeyPrefix = "transfer:route"
)

// CachedRouteReader serves route snapshots from Redis and falls through to the
// wrapped reader on a miss. Keys embed a generation counter, so Invalidate
// makes every cached snapshot unreachable with a single INCR and lets the TTL
// reclaim the old entries. A Redis failure never fails a quote.
type CachedRouteReader struct {
	next   transferDomain.RouteSnapshotReader
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedRouteReader wraps next with a Redis snapshot cache.
func NewCachedRouteReader(next transferDomain.RouteSnapshotReader, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedRouteReader {
	return &CachedRouteReader{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// FindActiveSnapshot implements RouteSnapshotReader. Only hits are cached; a
// missing route is always re-checked against the database.
func (c *CachedRouteReader) FindActiveSnapshot(ctx context.Context, pair transferDomain.ZonePair) (*transferDomain.RouteSnapshot, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("route cache unavailable, reading database", zap.Error(err))
		return c.next.FindActiveSnapshot(ctx, pair)
	}

	key := snapshotKey(gen, pair)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap transferDomain.RouteSnapshot
		if jsonErr := json.Unmarshal(raw, &snap); jsonErr == nil {
			return &snap, nil
		}
		c.logger.Warn("discarding corrupt route cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("route cache get failed", zap.String("key", key), zap.Error(err))
	}

	snap, err := c.next.FindActiveSnapshot(ctx, pair)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return snap, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("route cache set failed", zap.String("key", key), zap.Error(err))
	}
	return snap, nil
}

// Invalidate implements CacheInvalidator.
func (c *CachedRouteReader) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, routeCacheGenKey).Err(); err != nil {
		return fmt.Errorf("failed to bump route cache generation: %w", err)
	}
	return nil
}

func (c *CachedRouteReader) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, routeCacheGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func snapshotKey(gen int64, pair transferDomain.ZonePair) string {
	return fmt.Sprintf("%s:%d:%s", routeCacheKeyPrefix, gen, pair.String())
}

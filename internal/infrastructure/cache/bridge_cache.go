package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
)

// BridgeCache serves the pool-metrics and route-quote caches on top of
// the shared Redis client. Cache failures degrade to a miss; callers
// always recompute on error.
type BridgeCache struct {
	redis  RedisClient
	logger *zap.Logger
}

func NewBridgeCache(redis RedisClient, logger *zap.Logger) *BridgeCache {
	return &BridgeCache{redis: redis, logger: logger}
}

func poolMetricsKey(asset entities.AssetRef) string {
	return "pool_metrics:" + asset.Symbol + ":" + string(asset.Kind)
}

// GetPoolMetrics returns cached pool metrics if present
func (c *BridgeCache) GetPoolMetrics(ctx context.Context, asset entities.AssetRef) (*entities.PoolMetrics, bool) {
	var m entities.PoolMetrics
	if err := c.redis.Get(ctx, poolMetricsKey(asset), &m); err != nil {
		return nil, false
	}
	return &m, true
}

// SetPoolMetrics stores pool metrics with a TTL
func (c *BridgeCache) SetPoolMetrics(ctx context.Context, m *entities.PoolMetrics, ttl time.Duration) {
	if err := c.redis.Set(ctx, poolMetricsKey(m.Asset), m, ttl); err != nil {
		c.logger.Warn("failed to cache pool metrics",
			zap.Error(err),
			zap.String("asset", m.Asset.Symbol))
	}
}

// Invalidate drops the cached metrics for an asset after a pool mutation
func (c *BridgeCache) Invalidate(ctx context.Context, asset entities.AssetRef) {
	if err := c.redis.Del(ctx, poolMetricsKey(asset)); err != nil {
		c.logger.Warn("failed to invalidate pool metrics",
			zap.Error(err),
			zap.String("asset", asset.Symbol))
	}
}

// GetAdvice returns a cached route quote if present
func (c *BridgeCache) GetAdvice(ctx context.Context, key string) (*entities.RouteAdvice, bool) {
	var advice entities.RouteAdvice
	if err := c.redis.Get(ctx, key, &advice); err != nil {
		return nil, false
	}
	return &advice, true
}

// SetAdvice stores a route quote with a TTL
func (c *BridgeCache) SetAdvice(ctx context.Context, key string, advice *entities.RouteAdvice, ttl time.Duration) {
	if err := c.redis.Set(ctx, key, advice, ttl); err != nil {
		c.logger.Warn("failed to cache route advice", zap.Error(err))
	}
}

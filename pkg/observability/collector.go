package observability

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
)

// DefaultCollectSchedule is the cron spec used when none is given
const DefaultCollectSchedule = "@every 15s"

// DBStatsSource reports connection pool statistics
type DBStatsSource interface {
	Stats() sql.DBStats
}

// RedisStatsSource reports Redis connection pool statistics
type RedisStatsSource interface {
	PoolStats() *redis.PoolStats
}

// PoolStatsCollector samples connection pool statistics into gauges on a
// cron schedule. Either source may be nil.
type PoolStatsCollector struct {
	metrics *Metrics
	db      DBStatsSource
	redis   RedisStatsSource
	logger  *Logger
	cron    *cron.Cron
}

// NewPoolStatsCollector creates a collector. Call Start to schedule it.
func NewPoolStatsCollector(metrics *Metrics, db DBStatsSource, redis RedisStatsSource, logger *Logger) *PoolStatsCollector {
	return &PoolStatsCollector{
		metrics: metrics,
		db:      db,
		redis:   redis,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Collect takes one sample
func (c *PoolStatsCollector) Collect() {
	defer RecoverPanic(c.logger, "pool stats collector")

	if c.db != nil {
		stats := c.db.Stats()
		c.metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
		c.metrics.DBConnectionsInUse.Set(float64(stats.InUse))
		c.metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		c.metrics.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
		c.metrics.DBConnectionsWaitDuration.Set(stats.WaitDuration.Seconds())
	}

	if c.redis != nil {
		if stats := c.redis.PoolStats(); stats != nil {
			c.metrics.RedisConnectionsTotal.Set(float64(stats.TotalConns))
			c.metrics.RedisConnectionsIdle.Set(float64(stats.IdleConns))
			c.metrics.RedisPoolHits.Set(float64(stats.Hits))
			c.metrics.RedisPoolMisses.Set(float64(stats.Misses))
			c.metrics.RedisPoolTimeouts.Set(float64(stats.Timeouts))
		}
	}
}

// Start takes an immediate sample and schedules the rest
func (c *PoolStatsCollector) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultCollectSchedule
	}
	if _, err := c.cron.AddFunc(schedule, c.Collect); err != nil {
		return fmt.Errorf("schedule pool stats collector: %w", err)
	}

	c.Collect()
	c.cron.Start()
	c.logger.WithField("schedule", schedule).Info("Pool stats collector started")
	return nil
}

// Stop halts the scheduler and waits for a running sample to finish
func (c *PoolStatsCollector) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

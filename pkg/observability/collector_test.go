package observability

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeDBStats struct{ stats sql.DBStats }

func (f fakeDBStats) Stats() sql.DBStats { return f.stats }

type fakeRedisStats struct{ stats *redis.PoolStats }

func (f fakeRedisStats) PoolStats() *redis.PoolStats { return f.stats }

type panickingDBStats struct{}

func (panickingDBStats) Stats() sql.DBStats { panic("pool closed") }

func TestPoolStatsCollector_Collect(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	db := fakeDBStats{stats: sql.DBStats{
		OpenConnections: 7,
		InUse:           3,
		Idle:            4,
		WaitCount:       11,
		WaitDuration:    1500 * time.Millisecond,
	}}
	rds := fakeRedisStats{stats: &redis.PoolStats{
		Hits:       20,
		Misses:     2,
		Timeouts:   1,
		TotalConns: 5,
		IdleConns:  4,
	}}

	NewPoolStatsCollector(metrics, db, rds, logger).Collect()

	checks := []struct {
		name  string
		gauge prometheus.Gauge
		want  float64
	}{
		{"db open", metrics.DBConnectionsOpen, 7},
		{"db in use", metrics.DBConnectionsInUse, 3},
		{"db idle", metrics.DBConnectionsIdle, 4},
		{"db wait count", metrics.DBConnectionsWaitCount, 11},
		{"db wait seconds", metrics.DBConnectionsWaitDuration, 1.5},
		{"redis total", metrics.RedisConnectionsTotal, 5},
		{"redis idle", metrics.RedisConnectionsIdle, 4},
		{"redis hits", metrics.RedisPoolHits, 20},
		{"redis misses", metrics.RedisPoolMisses, 2},
		{"redis timeouts", metrics.RedisPoolTimeouts, 1},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.gauge); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestPoolStatsCollector_NilSources(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	NewPoolStatsCollector(metrics, nil, nil, logger).Collect()

	if got := testutil.ToFloat64(metrics.DBConnectionsOpen); got != 0 {
		t.Errorf("Expected untouched gauge, got %v", got)
	}
}

func TestPoolStatsCollector_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	metrics := NewMetrics(prometheus.NewRegistry())

	NewPoolStatsCollector(metrics, panickingDBStats{}, nil, NewLogger(InfoLevel, &buf)).Collect()

	if !strings.Contains(buf.String(), "PANIC recovered") {
		t.Errorf("Expected panic to be logged, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "pool stats collector") {
		t.Errorf("Expected panic context in log, got %q", buf.String())
	}
}

func TestPoolStatsCollector_StartStop(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	db := fakeDBStats{stats: sql.DBStats{OpenConnections: 2}}

	collector := NewPoolStatsCollector(metrics, db, nil, logger)
	if err := collector.Start(""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Start samples immediately rather than waiting for the first tick
	if got := testutil.ToFloat64(metrics.DBConnectionsOpen); got != 2 {
		t.Errorf("Expected immediate sample, got %v", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := collector.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestPoolStatsCollector_BadSchedule(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	collector := NewPoolStatsCollector(metrics, nil, nil, NewLogger(InfoLevel, &bytes.Buffer{}))

	err := collector.Start("not a schedule")
	if err == nil {
		t.Fatal("Expected error for invalid schedule")
	}
	if !strings.Contains(err.Error(), "schedule pool stats collector") {
		t.Errorf("Unexpected error: %v", err)
	}
}

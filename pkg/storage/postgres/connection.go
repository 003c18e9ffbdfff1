package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"runtime/debug"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"

	"github.com/platinummonkey/acquisitions/pkg/observability"
)

// ConnectionManager owns the PostgreSQL pool and the bun handle on top of it
type ConnectionManager struct {
	sqldb  *sql.DB
	db     *bun.DB
	config ConnectionConfig
}

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	// Debug logs every query through bundebug
	Debug bool
}

// NewConnectionManager opens the pool, verifies it with a ping and wraps it with bun
func NewConnectionManager(config ConnectionConfig) (*ConnectionManager, error) {
	sqldb, err := sql.Open("postgres", config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	applyPoolSettings(sqldb, config)

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newConnectionManager(sqldb, pgdialect.New(), config), nil
}

// NewConnectionManagerFromDB wraps an already opened pool. The dialect must match the driver.
func NewConnectionManagerFromDB(sqldb *sql.DB, dialect schema.Dialect, config ConnectionConfig) *ConnectionManager {
	return newConnectionManager(sqldb, dialect, config)
}

func newConnectionManager(sqldb *sql.DB, dialect schema.Dialect, config ConnectionConfig) *ConnectionManager {
	applyPoolSettings(sqldb, config)
	db := bun.NewDB(sqldb, dialect)
	if config.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &ConnectionManager{
		sqldb:  sqldb,
		db:     db,
		config: config,
	}
}

// applyPoolSettings copies the non-zero pool limits onto sqldb
func applyPoolSettings(sqldb *sql.DB, config ConnectionConfig) {
	if config.MaxConns > 0 {
		sqldb.SetMaxOpenConns(config.MaxConns)
	}
	if config.MinConns > 0 {
		sqldb.SetMaxIdleConns(config.MinConns)
	}
	if config.MaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(config.MaxLifetime)
	}
	if config.MaxIdleTime > 0 {
		sqldb.SetConnMaxIdleTime(config.MaxIdleTime)
	}
}

// DB returns the bun handle used by the stores
func (cm *ConnectionManager) DB() *bun.DB {
	return cm.db
}

// SQL returns the raw pool for migrations and health checks
func (cm *ConnectionManager) SQL() *sql.DB {
	return cm.sqldb
}

// HealthCheck pings the database
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.sqldb.PingContext(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	return nil
}

// Stats returns connection pool statistics
func (cm *ConnectionManager) Stats() sql.DBStats {
	return cm.sqldb.Stats()
}

// Close closes the bun handle and the pool beneath it
func (cm *ConnectionManager) Close() error {
	if err := cm.db.Close(); err != nil {
		return fmt.Errorf("database close error: %w", err)
	}
	return nil
}

// StartHealthCheckRoutine pings the database on an interval and logs failures
// until ctx is cancelled
func (cm *ConnectionManager) StartHealthCheckRoutine(ctx context.Context, interval time.Duration, logger *observability.Logger) {
	if interval == 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		defer func() {
			if r := recover(); r != nil {
				logger.WithField("stack", string(debug.Stack())).Errorf("database health routine panic: %v", r)
			}
		}()

		for {
			select {
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := cm.HealthCheck(checkCtx)
				cancel()

				if err != nil {
					logger.WithError(err).Warn("database health check failed")
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}

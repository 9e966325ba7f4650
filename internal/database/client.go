/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"evdash-mcp/internal/config"
	"evdash-mcp/internal/logging"
)

const applicationName = "EV Dashboard MCP Relay"

// Client owns the connection pool for the EV registration database.
// Every query acquires and releases its own connection; nothing is
// shared between concurrent sessions beyond the pool itself.
type Client struct {
	pool     *pgxpool.Pool
	connStr  string
	dbConfig *config.DatabaseConfig
}

// NewClient creates a new database client from configuration
func NewClient(dbConfig *config.DatabaseConfig) *Client {
	return &Client{
		dbConfig: dbConfig,
		connStr:  dbConfig.BuildConnectionString(),
	}
}

// Connect establishes the connection pool and verifies connectivity
func (c *Client) Connect(ctx context.Context) error {
	startTime := time.Now()

	enhancedConnStr, err := addApplicationName(c.connStr, applicationName)
	if err != nil {
		return fmt.Errorf("unable to enhance connection string: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(enhancedConnStr)
	if err != nil {
		return fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Apply pool configuration if available
	if c.dbConfig != nil {
		if c.dbConfig.PoolMaxConns > 0 {
			poolConfig.MaxConns = int32(c.dbConfig.PoolMaxConns)
		}
		if c.dbConfig.PoolMinConns > 0 {
			poolConfig.MinConns = int32(c.dbConfig.PoolMinConns)
		}
		if c.dbConfig.PoolMaxConnIdleTime != "" {
			idleTime, err := time.ParseDuration(c.dbConfig.PoolMaxConnIdleTime)
			if err != nil {
				return fmt.Errorf("invalid pool_max_conn_idle_time: %w", err)
			}
			poolConfig.MaxConnIdleTime = idleTime
		}
	}

	// Session-level read-only default. The gateway additionally wraps
	// every statement in an explicit read-only transaction; this is the
	// outer layer in case a connection is used outside the gateway.
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = make(map[string]string)
	}
	poolConfig.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("unable to ping database: %w", err)
	}

	c.pool = pool

	logging.Info("Database connected",
		"database", MaskConnectionString(c.connStr),
		"duration_ms", time.Since(startTime).Milliseconds())

	return nil
}

// Pool returns the underlying connection pool, or nil before Connect
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// ConnectionString returns the configured connection string
func (c *Client) ConnectionString() string {
	return c.connStr
}

// Close releases the connection pool. Safe to call more than once.
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
		logging.Info("Database pool closed")
	}
}

// addApplicationName adds application_name to a connection string
func addApplicationName(connStr, appName string) (string, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return "", fmt.Errorf("invalid connection string: %w", err)
	}

	query := u.Query()
	if !query.Has("application_name") {
		query.Set("application_name", appName)
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}

// MaskConnectionString hides the password portion of a connection
// string for logging
func MaskConnectionString(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		return "(unparseable connection string)"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	return u.String()
}

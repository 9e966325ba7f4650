/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete relay server configuration
type Config struct {
	// HTTP server configuration
	Server ServerConfig `yaml:"server"`

	// Database connection configuration
	Database DatabaseConfig `yaml:"database"`

	// Log level: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address string `yaml:"address"` // Listen address (default: :3001)

	SSEPath           string `yaml:"sse_path"`            // Path for establishing SSE connections (default: /sse)
	MessagePathPrefix string `yaml:"message_path_prefix"` // Prefix for per-session inbound messages (default: /messages)

	KeepaliveSeconds int `yaml:"keepalive_seconds"` // Interval between SSE keepalive frames (default: 30)
	ShutdownSeconds  int `yaml:"shutdown_seconds"`  // Grace period for in-flight requests on shutdown (default: 10)
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	// URL takes precedence over the individual fields when set.
	// Falls back to the EVDASH_DATABASE_URL environment variable.
	URL string `yaml:"url"`

	Host     string `yaml:"host"`     // Database host (default: localhost)
	Port     int    `yaml:"port"`     // Database port (default: 5432)
	Database string `yaml:"database"` // Database name (default: ev_registry)
	User     string `yaml:"user"`     // Database user
	Password string `yaml:"password"` // Database password (optional, EVDASH_DB_PASSWORD overrides)
	SSLMode  string `yaml:"sslmode"`  // disable, require, verify-ca, verify-full (default: prefer)

	// Connection pool settings
	PoolMaxConns        int    `yaml:"pool_max_conns"`          // Maximum number of connections (default: 4)
	PoolMinConns        int    `yaml:"pool_min_conns"`          // Minimum number of connections (default: 0)
	PoolMaxConnIdleTime string `yaml:"pool_max_conn_idle_time"` // Max idle time before a connection is closed (default: 30m)
}

// CLIFlags holds command-line overrides applied on top of the file
type CLIFlags struct {
	Address     string
	DatabaseURL string
	LogLevel    string
}

// DefaultConfig returns a configuration populated with defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           ":3001",
			SSEPath:           "/sse",
			MessagePathPrefix: "/messages",
			KeepaliveSeconds:  30,
			ShutdownSeconds:   10,
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "ev_registry",
			SSLMode:      "prefer",
			PoolMaxConns: 4,
		},
		LogLevel: "info",
	}
}

// GetDefaultConfigPath returns the default config file location,
// next to the executable
func GetDefaultConfigPath(execPath string) string {
	return filepath.Join(filepath.Dir(execPath), "evdash-mcp.yaml")
}

// LoadConfig reads the YAML configuration file, applies environment
// variables and CLI flags, and validates the result. A missing file is
// not an error; defaults are used.
func LoadConfig(path string, flags CLIFlags) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvironment(cfg)
	applyFlags(cfg, flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvironment applies environment variable overrides
func applyEnvironment(cfg *Config) {
	if url := os.Getenv("EVDASH_DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if pw := os.Getenv("EVDASH_DB_PASSWORD"); pw != "" {
		cfg.Database.Password = pw
	}
	if addr := os.Getenv("EVDASH_MCP_ADDRESS"); addr != "" {
		cfg.Server.Address = addr
	}
}

// applyFlags applies CLI flag overrides (highest precedence)
func applyFlags(cfg *Config, flags CLIFlags) {
	if flags.Address != "" {
		cfg.Server.Address = flags.Address
	}
	if flags.DatabaseURL != "" {
		cfg.Database.URL = flags.DatabaseURL
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Server.SSEPath, "/") {
		return fmt.Errorf("server.sse_path must start with '/': %q", c.Server.SSEPath)
	}
	if !strings.HasPrefix(c.Server.MessagePathPrefix, "/") {
		return fmt.Errorf("server.message_path_prefix must start with '/': %q", c.Server.MessagePathPrefix)
	}
	if c.Server.SSEPath == c.Server.MessagePathPrefix {
		return fmt.Errorf("server.sse_path and server.message_path_prefix must differ")
	}
	if c.Server.KeepaliveSeconds <= 0 {
		c.Server.KeepaliveSeconds = 30
	}
	if c.Server.ShutdownSeconds <= 0 {
		c.Server.ShutdownSeconds = 10
	}
	switch c.Database.SSLMode {
	case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("invalid database.sslmode: %q", c.Database.SSLMode)
	}
	return nil
}

// BuildConnectionString assembles a postgres:// URL from the
// configuration, preferring an explicit URL when one is set.
// Credentials are URL-escaped so passwords may contain any character.
func (d *DatabaseConfig) BuildConnectionString() string {
	if d.URL != "" {
		return d.URL
	}

	host := d.Host
	if host == "" {
		host = "localhost"
	}
	port := d.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + d.Database,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = "sslmode=" + d.SSLMode
	}

	return u.String()
}

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
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"evdash-mcp/internal/logging"
)

// ReloadableConfig wraps a Config with thread-safe access and reload
// capability
type ReloadableConfig struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	cliFlags CLIFlags
	onReload []func(*Config)
}

// NewReloadableConfig creates a new reloadable configuration
func NewReloadableConfig(config *Config, path string, cliFlags CLIFlags) *ReloadableConfig {
	return &ReloadableConfig{
		config:   config,
		path:     path,
		cliFlags: cliFlags,
		onReload: make([]func(*Config), 0),
	}
}

// Get returns the current configuration (read-only access)
func (rc *ReloadableConfig) Get() *Config {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.config
}

// OnReload registers a callback invoked after a successful reload
func (rc *ReloadableConfig) OnReload(fn func(*Config)) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.onReload = append(rc.onReload, fn)
}

// Reload reloads the configuration from the file. On failure the old
// configuration is kept.
func (rc *ReloadableConfig) Reload() error {
	rc.mu.Lock()

	if rc.path == "" {
		rc.mu.Unlock()
		return fmt.Errorf("no configuration file path set")
	}

	newConfig, err := LoadConfig(rc.path, rc.cliFlags)
	if err != nil {
		rc.mu.Unlock()
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	rc.config = newConfig
	callbacks := make([]func(*Config), len(rc.onReload))
	copy(callbacks, rc.onReload)
	rc.mu.Unlock()

	for _, fn := range callbacks {
		fn(newConfig)
	}

	return nil
}

// Watch monitors the configuration file for changes and reloads it.
// Editors replace files rather than write in place, so Create and
// Rename events on the parent directory are treated as changes too.
// Returns a stop function.
func (rc *ReloadableConfig) Watch() (func(), error) {
	if rc.path == "" {
		return nil, fmt.Errorf("no configuration file path set")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(rc.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	done := make(chan struct{})
	go func() {
		// Debounce bursts of events from a single save
		var pending *time.Timer
		target := filepath.Clean(rc.path)

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(250*time.Millisecond, func() {
					if err := rc.Reload(); err != nil {
						logging.Warn("Config reload failed", "path", rc.path, "error", err.Error())
						return
					}
					logging.Info("Configuration reloaded", "path", rc.path)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn("Config watcher error", "error", err.Error())
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		_ = watcher.Close()
	}, nil
}

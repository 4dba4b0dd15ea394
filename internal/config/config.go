// Package config provides configuration management for resourcegraph.
//
// Config file locations (priority order):
//  1. $RESOURCEGRAPH_CONFIG
//  2. ./resourcegraph.yaml
//  3. $XDG_CONFIG_HOME/resourcegraph/config.yaml
//  4. ~/.config/resourcegraph/config.yaml
//  5. /etc/resourcegraph/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Defaults
const (
	DefaultAddr             = ":3000"
	DefaultCachePath        = "./resourcegraph.db"
	DefaultKeyPrefix        = "resourcegraph.cache"
	DefaultCacheVersion     = 1
	DefaultWriteDebounce    = 300 * time.Millisecond
	DefaultMaxSizeBytes     = 2 << 20
	DefaultMinPruneInterval = 5 * time.Second
	DefaultWatchDebounce    = 250 * time.Millisecond
	DefaultShutdownTimeout  = 10 * time.Second
)

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}

	if c.Snapshot.WatchDebounce == 0 {
		c.Snapshot.WatchDebounce = Duration(DefaultWatchDebounce)
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendSQLite
	}
	if c.Cache.Path == "" && c.Cache.Backend != BackendMemory {
		c.Cache.Path = DefaultCachePath
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = DefaultKeyPrefix
	}
	if c.Cache.Version == 0 {
		c.Cache.Version = DefaultCacheVersion
	}
	if c.Cache.WriteDebounce == 0 {
		c.Cache.WriteDebounce = Duration(DefaultWriteDebounce)
	}
	if c.Cache.MaxSizeBytes == 0 {
		c.Cache.MaxSizeBytes = DefaultMaxSizeBytes
	}
	if c.Cache.MinPruneInterval == 0 {
		c.Cache.MinPruneInterval = Duration(DefaultMinPruneInterval)
	}
	if c.Cache.Namespace == "" {
		c.Cache.Namespace = "global"
	}

	if c.Layout.NodeSep == 0 {
		c.Layout.NodeSep = 27
	}
	if c.Layout.RankSep == 0 {
		c.Layout.RankSep = 72
	}
	if c.Layout.EdgeSep == 0 {
		c.Layout.EdgeSep = 4
	}
	if c.Layout.MaxNodes == 0 {
		c.Layout.MaxNodes = 5000
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendSQLite, BackendBadger:
		if c.Cache.Path == "" {
			return fmt.Errorf("%w: cache.path is required for the %s backend", ErrInvalidConfig, c.Cache.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}

	if c.Cache.MaxSizeBytes < 0 {
		return fmt.Errorf("%w: cache.max_size_bytes must be positive", ErrInvalidConfig)
	}
	if c.Cache.QuotaBytes < 0 {
		return fmt.Errorf("%w: cache.quota_bytes must not be negative", ErrInvalidConfig)
	}
	if c.Cache.MinPruneInterval < 0 {
		return fmt.Errorf("%w: cache.min_prune_interval must not be negative", ErrInvalidConfig)
	}
	if c.Layout.NodeSep < 0 || c.Layout.RankSep < 0 || c.Layout.EdgeSep < 0 {
		return fmt.Errorf("%w: layout spacing must not be negative", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Server: %s, Snapshot: %s (watch: %v)\n", c.Server.Addr, c.Snapshot.Path, c.Snapshot.Watch)
	summary += fmt.Sprintf("Cache: %s %s, key %s.v%d, budget %d bytes\n",
		c.Cache.Backend, c.Cache.Path, c.Cache.KeyPrefix, c.Cache.Version, c.Cache.MaxSizeBytes)
	summary += fmt.Sprintf("Log: %s/%s", c.Log.Level, c.Log.Format)
	return summary
}

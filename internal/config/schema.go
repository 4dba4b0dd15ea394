package config

import (
	"time"

	"resourcegraph/internal/layout"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Server   ServerConfig   `yaml:"server"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Cache    CacheConfig    `yaml:"cache"`
	Layout   LayoutConfig   `yaml:"layout"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	CORSOrigin      string   `yaml:"cors_origin,omitempty"` // empty = "*"
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// SnapshotConfig points at the resource snapshot file
type SnapshotConfig struct {
	Path          string   `yaml:"path"`
	Watch         bool     `yaml:"watch"`
	WatchDebounce Duration `yaml:"watch_debounce"`
}

// Cache backends
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// CacheConfig holds layout cache settings
type CacheConfig struct {
	Backend          string   `yaml:"backend"` // sqlite, badger or memory
	Path             string   `yaml:"path"`
	KeyPrefix        string   `yaml:"key_prefix"`
	Version          int      `yaml:"version"`
	Namespace        string   `yaml:"namespace"` // default position namespace
	WriteDebounce    Duration `yaml:"write_debounce"`
	MaxSizeBytes     int      `yaml:"max_size_bytes"`
	MinPruneInterval Duration `yaml:"min_prune_interval"`
	QuotaBytes       int      `yaml:"quota_bytes,omitempty"` // storage quota, 0 = unlimited
}

// LayoutConfig holds graph spacing
type LayoutConfig struct {
	NodeSep  float64 `yaml:"node_sep"`
	RankSep  float64 `yaml:"rank_sep"`
	EdgeSep  float64 `yaml:"edge_sep"`
	MaxNodes int     `yaml:"max_nodes"`
}

// Layout converts to the layout package's config
func (l LayoutConfig) Layout() layout.Config {
	cfg := layout.DefaultConfig()
	cfg.NodeSep = l.NodeSep
	cfg.RankSep = l.RankSep
	cfg.EdgeSep = l.EdgeSep
	cfg.MaxNodes = l.MaxNodes
	return cfg
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

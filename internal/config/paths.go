package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "RESOURCEGRAPH_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "resourcegraph.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "resourcegraph"
)

// FindConfigPath returns the first existing config file in priority order,
// or "" if there is none
func FindConfigPath() string {
	for _, path := range searchPaths() {
		if fileExists(path) {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

func searchPaths() []string {
	var paths []string
	if path := os.Getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}
	paths = append(paths, ConfigFileName)
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// LoadOrDefault loads path when set, otherwise searches for a config file
func LoadOrDefault(path string) (*Config, string, error) {
	if path != "" {
		return LoadFromPath(path)
	}
	return Load()
}

// ResolveRelative makes the snapshot and cache paths of a loaded config
// relative to the config file's directory instead of the working directory
func (c *Config) ResolveRelative(configPath string) {
	if configPath == "" {
		return
	}
	dir := filepath.Dir(configPath)
	for _, p := range []*string{&c.Snapshot.Path, &c.Cache.Path} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// DefaultConfigPath returns the preferred location for a new config file
// Prefers XDG config home, falls back to working directory
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0755)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Package config loads vpstrat.hcl.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/vpstrat/internal/store"
	"github.com/lox/vpstrat/internal/strategy"
)

// DefaultFile is the config file looked up when none is given
const DefaultFile = "vpstrat.hcl"

// Config represents the complete engine configuration
type Config struct {
	LogLevel string            `hcl:"log_level,optional"`
	Strategy *StrategySettings `hcl:"strategy,block"`
	Preload  []string          `hcl:"preload,optional"`
}

// StrategySettings locates strategy tables and tunes lookups
type StrategySettings struct {
	BundleDir       string  `hcl:"bundle_dir,optional"`
	CacheDir        string  `hcl:"cache_dir,optional"`
	SQLitePath      string  `hcl:"sqlite_path,optional"`
	ResultCacheSize int     `hcl:"result_cache_size,optional"`
	Tolerance       float64 `hcl:"tolerance,optional"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Strategy: &StrategySettings{
			BundleDir:       "strategies",
			CacheDir:        defaultCacheDir(),
			ResultCacheSize: strategy.DefaultCacheSize,
			Tolerance:       strategy.Tolerance,
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "vpstrat")
	}
	return filepath.Join(dir, "vpstrat")
}

// Load loads configuration from an HCL file. A missing file yields the
// defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Strategy == nil {
		c.Strategy = defaults.Strategy
		return
	}
	if c.Strategy.BundleDir == "" {
		c.Strategy.BundleDir = defaults.Strategy.BundleDir
	}
	if c.Strategy.CacheDir == "" {
		c.Strategy.CacheDir = defaults.Strategy.CacheDir
	}
	if c.Strategy.ResultCacheSize == 0 {
		c.Strategy.ResultCacheSize = defaults.Strategy.ResultCacheSize
	}
	if c.Strategy.Tolerance == 0 {
		c.Strategy.Tolerance = defaults.Strategy.Tolerance
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Strategy.ResultCacheSize < 2 {
		return fmt.Errorf("strategy: result_cache_size must be at least 2, got %d", c.Strategy.ResultCacheSize)
	}
	if c.Strategy.Tolerance <= 0 || c.Strategy.Tolerance >= 1 {
		return fmt.Errorf("strategy: tolerance must be in (0, 1), got %g", c.Strategy.Tolerance)
	}
	for _, id := range c.Preload {
		if !store.ValidID(id) {
			return fmt.Errorf("preload: invalid paytable id %q", id)
		}
	}
	return nil
}

// Level returns the configured log level
func (c *Config) Level() (log.Level, error) {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps a level name such as "warn" to a log level
func ParseLevel(s string) (log.Level, error) {
	level, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Resolver returns the table resolver for the configured directories
func (c *Config) Resolver() store.Resolver {
	return store.Resolver{
		BundleDir: c.Strategy.BundleDir,
		CacheDir:  c.Strategy.CacheDir,
	}
}

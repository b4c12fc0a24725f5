package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"
preload   = ["jacks-or-better-9-6", "deuces-wild-nsud"]

strategy {
  bundle_dir        = "/opt/vpstrat/bundle"
  cache_dir         = "/var/cache/vpstrat"
  sqlite_path       = "/var/lib/vpstrat/strategies.db"
  result_cache_size = 500
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"jacks-or-better-9-6", "deuces-wild-nsud"}, cfg.Preload)
	assert.Equal(t, "/opt/vpstrat/bundle", cfg.Strategy.BundleDir)
	assert.Equal(t, "/var/cache/vpstrat", cfg.Strategy.CacheDir)
	assert.Equal(t, "/var/lib/vpstrat/strategies.db", cfg.Strategy.SQLitePath)
	assert.Equal(t, 500, cfg.Strategy.ResultCacheSize)
	assert.Equal(t, 1e-4, cfg.Strategy.Tolerance, "default applied")

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, level)

	r := cfg.Resolver()
	assert.Equal(t, "/opt/vpstrat/bundle", r.BundleDir)
	assert.Equal(t, "/var/cache/vpstrat", r.CacheDir)
}

func TestLoadWithoutStrategyBlock(t *testing.T) {
	cfg, err := Load(writeConfig(t, `log_level = "warn"`))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, DefaultConfig().Strategy, cfg.Strategy)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, `strategy {`))
	assert.ErrorContains(t, err, "failed to parse HCL file")

	_, err = Load(writeConfig(t, `unknown_setting = true`))
	assert.ErrorContains(t, err, "failed to decode HCL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"tiny cache", func(c *Config) { c.Strategy.ResultCacheSize = 1 }, "result_cache_size"},
		{"negative tolerance", func(c *Config) { c.Strategy.Tolerance = -1 }, "tolerance"},
		{"huge tolerance", func(c *Config) { c.Strategy.Tolerance = 2 }, "tolerance"},
		{"path in preload", func(c *Config) { c.Preload = []string{"../x"} }, "invalid paytable id"},
		{"empty preload", func(c *Config) { c.Preload = []string{""} }, "invalid paytable id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]log.Level{
		"debug": log.DebugLevel,
		"info":  log.InfoLevel,
		"warn":  log.WarnLevel,
		"error": log.ErrorLevel,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestExampleConfigIsValid(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "vpstrat.example.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "strategies.db", cfg.Strategy.SQLitePath)
	assert.Len(t, cfg.Preload, 2)
}

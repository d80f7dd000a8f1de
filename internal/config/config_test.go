package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_YAMLInDirectory(t *testing.T) {
	dir := t.TempDir()
	content := `
database: graph.db
components: components.cue
log:
  level: debug
trace:
  buffer_size: 4096
namespace:
  cache_size: 128
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "buildml.yaml"), []byte(content), 0o644))

	cfg, err := Load("", dir)
	require.NoError(t, err)
	assert.Equal(t, "graph.db", cfg.Database)
	assert.Equal(t, "components.cue", cfg.Components)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset keys keep defaults")
	assert.Equal(t, 4096, cfg.Trace.BufferSize)
	assert.Equal(t, 128, cfg.Namespace.CacheSize)
	assert.Equal(t, 20, cfg.Report.MostAccessedLimit)
}

func TestLoad_ExplicitJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database": "x.db", "log": {"format": "json"}}`), 0o644))

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "x.db", cfg.Database)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BUILDML_DATABASE", "env.db")
	t.Setenv("BUILDML_NAMESPACE_CACHE_SIZE", "64")

	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database)
	assert.Equal(t, 64, cfg.Namespace.CacheSize)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "buildml.yaml"), []byte("trace:\n  buffer_size: 4\n"), 0o644))

	_, err := Load("", dir)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "trace.buffer_size", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty database", func(c *Config) { c.Database = "" }, "database"},
		{"zero cache", func(c *Config) { c.Namespace.CacheSize = 0 }, "namespace.cache_size"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}

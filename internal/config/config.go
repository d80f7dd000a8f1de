// Package config loads buildml settings from a config file, environment
// variables (BUILDML_*) and built-in defaults, in that order of precedence
// after command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file base name looked up in the working directory.
const FileName = "buildml"

// EnvPrefix prefixes environment overrides, e.g. BUILDML_DATABASE.
const EnvPrefix = "BUILDML"

// Config is the full set of buildml settings.
type Config struct {
	// Database is the SQLite file holding the build graph.
	Database string `mapstructure:"database" json:"database"`

	// Components is an optional YAML or CUE file of component definitions.
	Components string `mapstructure:"components" json:"components"`

	Log       LogConfig       `mapstructure:"log" json:"log"`
	Trace     TraceConfig     `mapstructure:"trace" json:"trace"`
	Namespace NamespaceConfig `mapstructure:"namespace" json:"namespace"`
	Report    ReportConfig    `mapstructure:"report" json:"report"`
}

// LogConfig controls stderr logging.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`   // debug, info, warn, error, off
	Format string `mapstructure:"format" json:"format"` // text or json
}

// TraceConfig controls trace decoding and ingestion.
type TraceConfig struct {
	BufferSize    int `mapstructure:"buffer_size" json:"buffer_size"`
	ProgressEvery int `mapstructure:"progress_every" json:"progress_every"`
}

// NamespaceConfig controls path resolution.
type NamespaceConfig struct {
	CacheSize int `mapstructure:"cache_size" json:"cache_size"`
}

// ReportConfig holds report defaults.
type ReportConfig struct {
	MostAccessedLimit int `mapstructure:"most_accessed_limit" json:"most_accessed_limit"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Database: "buildml.db",
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Trace: TraceConfig{
			BufferSize:    64 * 1024,
			ProgressEvery: 100000,
		},
		Namespace: NamespaceConfig{
			CacheSize: 4096,
		},
		Report: ReportConfig{
			MostAccessedLimit: 20,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("database", d.Database)
	v.SetDefault("components", d.Components)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("trace.buffer_size", d.Trace.BufferSize)
	v.SetDefault("trace.progress_every", d.Trace.ProgressEvery)
	v.SetDefault("namespace.cache_size", d.Namespace.CacheSize)
	v.SetDefault("report.most_accessed_limit", d.Report.MostAccessedLimit)
}

// Load reads settings. An explicit path must exist; with an empty path a
// buildml.{yaml,json,toml} in dir is used if present, otherwise defaults and
// environment apply.
func Load(path, dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		if dir == "" {
			dir = "."
		}
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if c.Database == "" {
		return &ConfigError{Field: "database", Message: "must not be empty"}
	}
	if c.Trace.BufferSize < 16 {
		return &ConfigError{Field: "trace.buffer_size", Message: "must be at least 16"}
	}
	if c.Namespace.CacheSize <= 0 {
		return &ConfigError{Field: "namespace.cache_size", Message: "must be positive"}
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return &ConfigError{Field: "log.format", Message: fmt.Sprintf("unknown format %q (want text or json)", c.Log.Format)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

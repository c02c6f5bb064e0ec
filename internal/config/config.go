// Package config provides configuration loading, defaults, and validation
// for the spanex CLI and embedding services.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/spanex/spanex/internal/logging"
	"github.com/spanex/spanex/pkg/errors"
	"github.com/spanex/spanex/resolver"
	"github.com/spanex/spanex/wikigraph"
)

// envPrefix is the environment variable prefix for all settings, so that
// nested keys like "patterns.path" resolve to "SPANEX_PATTERNS_PATH".
const envPrefix = "SPANEX"

// Config is the full runtime configuration.
type Config struct {
	Log      logging.Config        `mapstructure:"log"`
	Patterns PatternsConfig        `mapstructure:"patterns"`
	Resolver ResolverConfig        `mapstructure:"resolver"`
	Graph    wikigraph.Neo4jConfig `mapstructure:"graph"`
}

// PatternsConfig locates the pattern-set file.
type PatternsConfig struct {
	// Path is the YAML pattern file fed to the engine.
	Path string `mapstructure:"path"`

	// Watch enables hot reload of the pattern file.
	Watch bool `mapstructure:"watch"`
}

// ResolverConfig selects the overlap-resolution policy.
type ResolverConfig struct {
	// Mode is "keep-all", "longest-only", or "label-priority".
	Mode string `mapstructure:"mode"`

	// Priority ranks labels for label-priority mode; lower rank wins.
	Priority map[string]int `mapstructure:"priority"`
}

// Options translates the section into resolver options.
func (c ResolverConfig) Options() (resolver.Options, error) {
	mode, err := resolver.ParseMode(c.Mode)
	if err != nil {
		return resolver.Options{}, err
	}
	return resolver.Options{Mode: mode, Priority: c.Priority}, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// Registering every key makes env-only overrides visible to Unmarshal.
	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "")
	v.SetDefault("log.output_paths", []string{})
	v.SetDefault("patterns.path", "")
	v.SetDefault("patterns.watch", false)
	v.SetDefault("resolver.mode", "")
	v.SetDefault("resolver.priority", map[string]int{})
	v.SetDefault("graph.uri", "")
	v.SetDefault("graph.username", "")
	v.SetDefault("graph.password", "")
	v.SetDefault("graph.database", "")
	v.SetDefault("graph.max_connection_pool_size", 0)
	v.SetDefault("graph.max_connection_lifetime", 0)
	return v
}

// Load reads the YAML file at path, merges SPANEX_* environment overrides,
// applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "failed to read config file").WithDetail(path)
	}
	return finalize(v)
}

// LoadFromEnv builds a Config from SPANEX_* environment variables alone,
// the preferred strategy for containerized deployments.
func LoadFromEnv() (*Config, error) {
	return finalize(newViper())
}

func finalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "failed to unmarshal configuration")
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stderr"}
	}
	if cfg.Resolver.Mode == "" {
		cfg.Resolver.Mode = "longest-only"
	}
}

// Validate checks cross-field consistency; per-field parsing failures
// surface where the value is consumed.
func (c *Config) Validate() error {
	mode, err := resolver.ParseMode(c.Resolver.Mode)
	if err != nil {
		return err
	}
	if mode == resolver.ModeLabelPriority && len(c.Resolver.Priority) == 0 {
		return errors.ConfigurationError("label-priority mode requires resolver.priority")
	}
	return nil
}

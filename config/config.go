// Package config loads sparqlorm settings from defaults, an optional YAML or
// TOML file, and SPARQLORM_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/CaliLuke/go-sparqlorm/driver"
)

// Config is the root configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Planner PlannerConfig `mapstructure:"planner"`
	Log     LogConfig     `mapstructure:"log"`
}

// StoreConfig locates the SPARQL repository.
type StoreConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Repository string        `mapstructure:"repository"`
	Format     string        `mapstructure:"format"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Infer      string        `mapstructure:"infer"`
}

// CacheConfig enables the local result cache when Path is set.
type CacheConfig struct {
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// PlannerConfig tunes query execution.
type PlannerConfig struct {
	ParallelQueries int  `mapstructure:"parallel_queries"`
	Pretty          bool `mapstructure:"pretty"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix SPARQLORM_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults. Every key is registered so AutomaticEnv can see it.
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.repository", "")
	v.SetDefault("store.format", string(driver.FormatXML))
	v.SetDefault("store.timeout", driver.DefaultTimeout)
	v.SetDefault("store.infer", "")
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.ttl", time.Duration(0))
	v.SetDefault("planner.parallel_queries", 1)
	v.SetDefault("planner.pretty", false)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("SPARQLORM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors and returns all of
// them. An empty endpoint is allowed here: commands that never contact the
// store do not need one, and driver.Open rejects it for those that do.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStore()...)
	errs = append(errs, c.validateCache()...)
	errs = append(errs, c.validatePlanner()...)
	errs = append(errs, c.validateLog()...)

	return errs
}

func (c *Config) validateStore() []error {
	var errs []error

	if c.Store.Endpoint != "" {
		u, err := url.Parse(c.Store.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: store.endpoint must be an absolute URL, got %q", c.Store.Endpoint))
		}
	}

	switch driver.Format(c.Store.Format) {
	case driver.FormatXML, driver.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("config: store.format must be one of [xml, json], got %q", c.Store.Format))
	}

	if c.Store.Timeout < 0 {
		errs = append(errs, fmt.Errorf("config: store.timeout must not be negative, got %s", c.Store.Timeout))
	}

	switch c.Store.Infer {
	case "", "true", "false":
	default:
		errs = append(errs, fmt.Errorf("config: store.infer must be true, false or empty, got %q", c.Store.Infer))
	}

	return errs
}

func (c *Config) validateCache() []error {
	if c.Cache.TTL < 0 {
		return []error{fmt.Errorf("config: cache.ttl must not be negative, got %s", c.Cache.TTL)}
	}
	return nil
}

func (c *Config) validatePlanner() []error {
	if c.Planner.ParallelQueries < 1 {
		return []error{fmt.Errorf("config: planner.parallel_queries must be at least 1, got %d", c.Planner.ParallelQueries)}
	}
	return nil
}

func (c *Config) validateLog() []error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return []error{fmt.Errorf("config: log.level %w", err)}
	}
	return nil
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("must be one of [debug, info, warn, error], got %q", name)
	}
	return lvl, nil
}

// Level returns the configured log level, falling back to info.
func (c *Config) Level() slog.Level {
	lvl, err := ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// DriverConfig builds the driver configuration for the store section.
func (c *Config) DriverConfig(logger *slog.Logger) driver.Config {
	dc := driver.Config{
		Endpoint:   c.Store.Endpoint,
		Repository: c.Store.Repository,
		Format:     driver.Format(c.Store.Format),
		Timeout:    c.Store.Timeout,
		Logger:     logger,
	}
	if c.Store.Infer != "" {
		infer := c.Store.Infer == "true"
		dc.Infer = &infer
	}
	return dc
}

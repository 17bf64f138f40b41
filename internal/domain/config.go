package domain

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig controls one engine instance. Zero values are filled in by
// Normalize, so a partially specified config (for example one loaded from
// YAML) is usable directly.
type EngineConfig struct {
	MaxConcurrentNodes int           `yaml:"max_concurrent_nodes" json:"max_concurrent_nodes"`
	DefaultTimeout     time.Duration `yaml:"default_timeout" json:"default_timeout"`
	RetryFailedNodes   bool          `yaml:"retry_failed_nodes" json:"retry_failed_nodes"`
	MaxRetries         int           `yaml:"max_retries" json:"max_retries"`
	ContinueOnError    bool          `yaml:"continue_on_error" json:"continue_on_error"`
	EnableCaching      bool          `yaml:"enable_caching" json:"enable_caching"`

	// Variables are engine-wide interpolation defaults; per-run variables
	// merge over them.
	Variables map[string]interface{} `yaml:"variables,omitempty" json:"variables,omitempty"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxConcurrentNodes: 4,
		DefaultTimeout:     60 * time.Second,
		RetryFailedNodes:   false,
		MaxRetries:         3,
		ContinueOnError:    true,
		EnableCaching:      false,
	}
}

// Normalize fills unset fields with defaults and returns the result.
func (c EngineConfig) Normalize() EngineConfig {
	defaults := DefaultEngineConfig()
	if c.MaxConcurrentNodes <= 0 {
		c.MaxConcurrentNodes = defaults.MaxConcurrentNodes
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = defaults.DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	return c
}

func (c EngineConfig) Validate() error {
	if c.MaxConcurrentNodes < 0 {
		return fmt.Errorf("%w: max_concurrent_nodes cannot be negative", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries cannot be negative", ErrInvalidConfig)
	}
	if c.DefaultTimeout < 0 {
		return fmt.Errorf("%w: default_timeout cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// UnmarshalYAML accepts default_timeout either as a duration string ("45s")
// or as a bare number of seconds.
func (c *EngineConfig) UnmarshalYAML(value *yaml.Node) error {
	type raw struct {
		MaxConcurrentNodes int                    `yaml:"max_concurrent_nodes"`
		DefaultTimeout     string                 `yaml:"default_timeout"`
		RetryFailedNodes   bool                   `yaml:"retry_failed_nodes"`
		MaxRetries         int                    `yaml:"max_retries"`
		ContinueOnError    bool                   `yaml:"continue_on_error"`
		EnableCaching      bool                   `yaml:"enable_caching"`
		Variables          map[string]interface{} `yaml:"variables"`
	}

	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}

	c.MaxConcurrentNodes = r.MaxConcurrentNodes
	c.RetryFailedNodes = r.RetryFailedNodes
	c.MaxRetries = r.MaxRetries
	c.ContinueOnError = r.ContinueOnError
	c.EnableCaching = r.EnableCaching
	c.Variables = r.Variables

	if r.DefaultTimeout != "" {
		d, err := time.ParseDuration(r.DefaultTimeout)
		if err != nil {
			secs, serr := time.ParseDuration(r.DefaultTimeout + "s")
			if serr != nil {
				return fmt.Errorf("parse default_timeout: %w", err)
			}
			d = secs
		}
		c.DefaultTimeout = d
	}
	return nil
}

// LoadEngineConfig reads a YAML engine config from path, normalizing unset
// fields to defaults.
func LoadEngineConfig(path string) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("read engine config: %w", err)
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("parse engine config: %w", err)
	}

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

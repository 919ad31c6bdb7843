package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the main ishikawa configuration
type Config struct {
	// Directory holding the tools directory; empty means the working directory
	Root string `json:"root" mapstructure:"root"`

	// Build
	Build BuildConfig `json:"build" mapstructure:"build"`

	// Install
	Install InstallConfig `json:"install" mapstructure:"install"`

	// Loader
	Loader LoaderConfig `json:"loader" mapstructure:"loader"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// BuildConfig holds compile settings
type BuildConfig struct {
	GoBinary  string `json:"go_binary" mapstructure:"go_binary"`
	GoVersion string `json:"go_version" mapstructure:"go_version"` // go directive of tool manifests
	Timeout   int    `json:"timeout" mapstructure:"timeout"`       // seconds, 0 = none
	Verbose   bool   `json:"verbose" mapstructure:"verbose"`
	SDKPath   string `json:"sdk_path" mapstructure:"sdk_path"` // local ishikawa module tools build against
}

// InstallConfig holds dependency install settings
type InstallConfig struct {
	Timeout int `json:"timeout" mapstructure:"timeout"` // seconds, 0 = none
}

// LoaderConfig holds tool loading settings
type LoaderConfig struct {
	DedupeLoads        bool `json:"dedupe_loads" mapstructure:"dedupe_loads"`
	MaxConcurrentLoads int  `json:"max_concurrent_loads" mapstructure:"max_concurrent_loads"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			GoBinary:  "go",
			GoVersion: "1.24",
			Timeout:   300,
		},
		Install: InstallConfig{
			Timeout: 300,
		},
		Loader: LoaderConfig{
			DedupeLoads:        true,
			MaxConcurrentLoads: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// BuildTimeout returns the compile timeout as a duration
func (c *Config) BuildTimeout() time.Duration {
	return time.Duration(c.Build.Timeout) * time.Second
}

// InstallTimeout returns the install timeout as a duration
func (c *Config) InstallTimeout() time.Duration {
	return time.Duration(c.Install.Timeout) * time.Second
}

// Validate validates the configuration
func (c *Config) Validate() error {
	v := NewValidator()

	if err := v.ValidateLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := v.ValidateGoVersion(c.Build.GoVersion); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if c.Build.GoBinary == "" {
		return fmt.Errorf("build: go_binary cannot be empty")
	}
	if err := v.ValidateTimeout(c.Build.Timeout); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := v.ValidateSDKPath(c.Build.SDKPath); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := v.ValidateTimeout(c.Install.Timeout); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	if c.Loader.MaxConcurrentLoads < 0 {
		return fmt.Errorf("loader: max_concurrent_loads cannot be negative")
	}

	return nil
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

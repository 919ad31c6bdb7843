package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LocalConfigName is looked up in the working directory before the home config
const LocalConfigName = "ishikawa.json"

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file. A missing file yields the
// defaults; ISHIKAWA_* environment variables override either.
func (l *Loader) Load() (*Config, error) {
	configPath := l.GetConfigPath()

	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v, DefaultConfig())

	// Read environment variables
	v.SetEnvPrefix("ISHIKAWA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.Root = wd
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so env overrides apply without a file
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("root", cfg.Root)
	v.SetDefault("build.go_binary", cfg.Build.GoBinary)
	v.SetDefault("build.go_version", cfg.Build.GoVersion)
	v.SetDefault("build.timeout", cfg.Build.Timeout)
	v.SetDefault("build.verbose", cfg.Build.Verbose)
	v.SetDefault("build.sdk_path", cfg.Build.SDKPath)
	v.SetDefault("install.timeout", cfg.Install.Timeout)
	v.SetDefault("loader.dedupe_loads", cfg.Loader.DedupeLoads)
	v.SetDefault("loader.max_concurrent_loads", cfg.Loader.MaxConcurrentLoads)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.pretty", cfg.Logging.Pretty)
}

// GetConfigPath returns the config file path: the explicit path, else
// ./ishikawa.json when present, else $HOME/.ishikawa/config.json.
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	if _, err := os.Stat(LocalConfigName); err == nil {
		return LocalConfigName
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ishikawa", "config.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "go", cfg.Build.GoBinary)
	assert.Equal(t, "1.24", cfg.Build.GoVersion)
	assert.Equal(t, 300, cfg.Build.Timeout)
	assert.Equal(t, 300, cfg.Install.Timeout)
	assert.True(t, cfg.Loader.DedupeLoads)
	assert.Equal(t, 8, cfg.Loader.MaxConcurrentLoads)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestConfigTimeouts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Build.Timeout = 30
	cfg.Install.Timeout = 0

	assert.Equal(t, 30*time.Second, cfg.BuildTimeout())
	assert.Equal(t, time.Duration(0), cfg.InstallTimeout())
}

func TestConfigValidate(t *testing.T) {
	t.Run("empty go binary", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Build.GoBinary = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative concurrency", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Loader.MaxConcurrentLoads = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative install timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Install.Timeout = -5
		assert.Error(t, cfg.Validate())
	})
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()
	assert.Contains(t, s, `"go_version": "1.24"`)
	assert.Contains(t, s, `"dedupe_loads": true`)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// goVersionRegex matches the go directive forms accepted in go.mod
var goVersionRegex = regexp.MustCompile(`^1\.\d+(\.\d+)?$`)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogLevel validates a log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}

	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}

	return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", level)
}

// ValidateGoVersion validates the go directive written to tool manifests
func (v *Validator) ValidateGoVersion(version string) error {
	if version == "" {
		return fmt.Errorf("go version cannot be empty")
	}

	if !goVersionRegex.MatchString(version) {
		return fmt.Errorf("invalid go version: %s (expected 1.N or 1.N.P)", version)
	}

	return nil
}

// ValidateTimeout validates a timeout in seconds
func (v *Validator) ValidateTimeout(seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("timeout cannot be negative: %d", seconds)
	}

	if seconds > 3600 {
		return fmt.Errorf("timeout too large: %d (max 3600 seconds)", seconds)
	}

	return nil
}

// ValidateSDKPath checks that a configured SDK path holds a go module.
// An empty path is valid.
func (v *Validator) ValidateSDKPath(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(filepath.Join(path, "go.mod")); err != nil {
		return fmt.Errorf("sdk_path %s is not a go module: %w", path, err)
	}

	return nil
}

package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/ishikawa/pkg/tool"
)

// Config configures the go toolchain collaborators
type Config struct {
	// GoBinary is the go command to invoke (default "go")
	GoBinary string
	// BuildTimeout bounds a compile; zero means no deadline
	BuildTimeout time.Duration
	// InstallTimeout bounds a dependency install; zero means no deadline
	InstallTimeout time.Duration
	// Verbose streams toolchain output to the console
	Verbose bool
}

// toolchainEnv pins the build target for every tool
var toolchainEnv = map[string]string{
	"CGO_ENABLED": "0",
	"GOTOOLCHAIN": "local",
	"GOFLAGS":     "-mod=mod",
}

func (c Config) goBinary() string {
	if c.GoBinary == "" {
		return "go"
	}
	return c.GoBinary
}

// GoCompiler builds dist/index with go build. It implements tool.Compiler.
type GoCompiler struct {
	logger zerolog.Logger
	runner Runner
	config Config
}

// NewGoCompiler creates a compiler backed by runner
func NewGoCompiler(logger zerolog.Logger, runner Runner, config Config) *GoCompiler {
	return &GoCompiler{
		logger: logger.With().Str("component", "go-compiler").Logger(),
		runner: runner,
		config: config,
	}
}

// Compile runs go build -trimpath -o dist/index . in dir
func (c *GoCompiler) Compile(ctx context.Context, dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, tool.BuildDirName), 0755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	output := filepath.Join(tool.BuildDirName, tool.ArtifactName)
	result, err := c.runner.Run(ctx, Command{
		Name:    c.config.goBinary(),
		Args:    []string{"build", "-trimpath", "-o", output, "."},
		WorkDir: dir,
		Env:     toolchainEnv,
		Timeout: c.config.BuildTimeout,
		Verbose: c.config.Verbose,
	})
	if err != nil {
		return err
	}

	c.logger.Debug().
		Str("dir", dir).
		Dur("duration", result.Duration).
		Msg("go build finished")
	return nil
}

// GoInstaller resolves manifest dependencies with go mod tidy.
// It implements tool.Installer.
type GoInstaller struct {
	logger zerolog.Logger
	runner Runner
	config Config
}

// NewGoInstaller creates an installer backed by runner
func NewGoInstaller(logger zerolog.Logger, runner Runner, config Config) *GoInstaller {
	return &GoInstaller{
		logger: logger.With().Str("component", "go-installer").Logger(),
		runner: runner,
		config: config,
	}
}

// Install runs go mod tidy in dir
func (i *GoInstaller) Install(ctx context.Context, dir string) error {
	result, err := i.runner.Run(ctx, Command{
		Name:    i.config.goBinary(),
		Args:    []string{"mod", "tidy"},
		WorkDir: dir,
		Env:     toolchainEnv,
		Timeout: i.config.InstallTimeout,
		Verbose: i.config.Verbose,
	})
	if err != nil {
		return err
	}

	i.logger.Debug().
		Str("dir", dir).
		Dur("duration", result.Duration).
		Msg("go mod tidy finished")
	return nil
}

package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Compiler produces dist/index from the source in a tool directory
type Compiler interface {
	Compile(ctx context.Context, dir string) error
}

// Installer materializes the dependencies declared in a tool's manifest
type Installer interface {
	Install(ctx context.Context, dir string) error
}

// Handoff passes stored tools to the build and install collaborators
type Handoff struct {
	logger    zerolog.Logger
	compiler  Compiler
	installer Installer
}

// NewHandoff creates a hand-off over the given collaborators
func NewHandoff(logger zerolog.Logger, compiler Compiler, installer Installer) *Handoff {
	return &Handoff{
		logger:    logger.With().Str("component", "build-handoff").Logger(),
		compiler:  compiler,
		installer: installer,
	}
}

// Compile builds the tool in dir and checks that the artifact was produced
func (h *Handoff) Compile(ctx context.Context, dir string) error {
	name := filepath.Base(dir)
	if h.compiler == nil {
		return newError(CodeCompile, name, "no compiler configured", nil)
	}

	start := time.Now()
	if err := h.compiler.Compile(ctx, dir); err != nil {
		return newError(CodeCompile, name, "compilation failed", err)
	}

	artifact := ArtifactPath(dir)
	if _, err := os.Stat(artifact); err != nil {
		return newError(CodeCompile, name, "compiler did not produce an artifact",
			fmt.Errorf("expected %s: %w", artifact, err))
	}

	h.logger.Info().
		Str("tool", name).
		Dur("duration", time.Since(start)).
		Msg("Tool compiled")
	return nil
}

// InstallDependencies runs the installer with dir as its working directory
func (h *Handoff) InstallDependencies(ctx context.Context, dir string) error {
	name := filepath.Base(dir)
	if h.installer == nil {
		return newError(CodeInstall, name, "no installer configured", nil)
	}

	h.logger.Info().Str("tool", name).Str("dir", dir).Msg("Installing dependencies")

	start := time.Now()
	if err := h.installer.Install(ctx, dir); err != nil {
		return newError(CodeInstall, name, "dependency installation failed", err)
	}

	h.logger.Info().
		Str("tool", name).
		Dur("duration", time.Since(start)).
		Msg("Dependencies installed")
	return nil
}

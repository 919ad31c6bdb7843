package tool

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/harun/ishikawa/internal/tracing"
)

// ToolLoader materializes a stored tool. Implementations do not cache.
type ToolLoader interface {
	Load(ctx context.Context, name string) (*LoadedTool, error)
}

// Loader loads tools from a Layout through an ArtifactLoader
type Loader struct {
	logger    zerolog.Logger
	layout    Layout
	artifacts ArtifactLoader
	validator *metadataValidator
}

// NewLoader creates a loader for the tools under layout
func NewLoader(logger zerolog.Logger, layout Layout, artifacts ArtifactLoader) *Loader {
	return &Loader{
		logger:    logger.With().Str("component", "tool-loader").Logger(),
		layout:    layout,
		artifacts: artifacts,
		validator: newMetadataValidator(),
	}
}

// Load runs the load steps in order and fails at the first unmet one:
// directory, metadata, artifact, import, entry point.
func (l *Loader) Load(ctx context.Context, name string) (*LoadedTool, error) {
	if err := ValidateName(name); err != nil {
		return nil, newError(CodeNotFound, name, "invalid tool name", err)
	}
	dir := l.layout.ToolDir(name)

	// Step 1: tool directory
	info, err := os.Stat(dir)
	if err != nil {
		return nil, newError(CodeNotFound, name, fmt.Sprintf("tool not found at %s", dir), err)
	}
	if !info.IsDir() {
		return nil, newError(CodeNotFound, name, fmt.Sprintf("%s is not a directory", dir), nil)
	}

	// Step 2: function.json
	metadata, err := l.validator.readMetadata(dir)
	if err != nil {
		return nil, newError(CodeMetadataLoad, name, "could not load metadata", err)
	}

	// Step 3: compiled artifact
	artifactPath := ArtifactPath(dir)
	if _, err := os.Stat(artifactPath); err != nil {
		return nil, newError(CodeNotCompiled, name, "tool is not compiled, compile it first", err)
	}

	if l.artifacts == nil {
		return nil, newError(CodeImport, name, "no artifact loader configured", nil)
	}

	// Step 4: open the artifact
	module, err := l.artifacts.Open(ctx, dir, artifactPath)
	if err != nil {
		return nil, newError(CodeImport, name, "could not import tool", err)
	}

	// Step 5: entry point
	fn, symbol, err := ResolveEntryPoint(module, name)
	if err != nil {
		if cerr := module.Close(); cerr != nil {
			l.logger.Warn().Err(cerr).Str("tool", name).Msg("Failed to close module")
		}
		return nil, err
	}

	log := tracing.LoggerFromContext(tracing.WithTool(ctx, name), l.logger)
	log.Info().
		Str("export", symbol).
		Msg("Tool loaded")

	return &LoadedTool{
		Metadata: *metadata,
		Execute:  fn,
		Path:     dir,
		Export:   symbol,
		module:   module,
	}, nil
}

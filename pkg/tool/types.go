package tool

import (
	"context"
	"encoding/json"
)

// Fixed names inside a tool directory
const (
	ToolsDirName     = "tools"
	SourceFileName   = "index.go"
	MetadataFileName = "function.json"
	ManifestFileName = "go.mod"
	BuildDirName     = "dist"
	ArtifactName     = "index"
)

// Func is the callable entry point of a loaded tool
type Func func(ctx context.Context, args ...any) (any, error)

// Metadata is the function.json record describing a tool.
// Parameters and any unknown top-level fields are kept as compact raw
// JSON, so a decoded record compares equal to one decoded from the same
// document formatted differently.
type Metadata struct {
	Name         string
	Description  string
	Parameters   json.RawMessage // JSON Schema, opaque
	Dependencies map[string]string
	Extra        map[string]json.RawMessage
}

// StoredTool is the on-disk layout of a registered tool
type StoredTool struct {
	Name         string
	Dir          string
	SourcePath   string
	MetadataPath string
	ManifestPath string
	ArtifactPath string
}

// LoadedTool is the executable, in-memory form of a tool
type LoadedTool struct {
	Metadata Metadata
	Execute  Func
	Path     string
	Export   string // symbol the entry point resolved to

	module Module
}

// Close stops the module behind t. The manager never closes a tool it
// evicts, since callers may still hold it; whoever drops the last
// reference to an evicted tool releases its process here.
func (t *LoadedTool) Close() error {
	if t.module == nil {
		return nil
	}
	return t.module.Close()
}

// RegisterRequest holds the inputs of Manager.Register
type RegisterRequest struct {
	Name        string
	SourcePath  string
	AutoInstall bool
	Metadata    string // JSON text or a path to a JSON file
}

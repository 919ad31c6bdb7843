package tool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog"
)

// toolNameRegex restricts tool names to a single safe path segment
var toolNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName reports whether name can be used as a tool directory
func ValidateName(name string) error {
	if !toolNameRegex.MatchString(name) {
		return fmt.Errorf("invalid tool name %q (letters, digits, '.', '_' and '-' only)", name)
	}
	return nil
}

// Layout resolves paths under a tools root
type Layout struct {
	Root string // directory containing the tools directory
}

// ToolsDir returns <root>/tools
func (l Layout) ToolsDir() string {
	return filepath.Join(l.Root, ToolsDirName)
}

// ToolDir returns <root>/tools/<name>
func (l Layout) ToolDir(name string) string {
	return filepath.Join(l.ToolsDir(), name)
}

// ArtifactPath returns the compiled entry artifact of a tool directory
func ArtifactPath(dir string) string {
	return filepath.Join(dir, BuildDirName, ArtifactName)
}

// Stored returns the handle for name's layout without touching disk
func (l Layout) Stored(name string) *StoredTool {
	dir := l.ToolDir(name)
	return &StoredTool{
		Name:         name,
		Dir:          dir,
		SourcePath:   filepath.Join(dir, SourceFileName),
		MetadataPath: filepath.Join(dir, MetadataFileName),
		ManifestPath: filepath.Join(dir, ManifestFileName),
		ArtifactPath: ArtifactPath(dir),
	}
}

// sumFileName is the checksum file next to a tool manifest
const sumFileName = "go.sum"

// Store writes tool directories
type Store struct {
	logger   zerolog.Logger
	layout   Layout
	manifest ManifestOptions
}

// NewStore creates a store rooted at layout. A relative SDK path is made
// absolute so manifests do not depend on the tool directory.
func NewStore(logger zerolog.Logger, layout Layout, manifest ManifestOptions) *Store {
	if manifest.SDKPath != "" {
		if abs, err := filepath.Abs(manifest.SDKPath); err == nil {
			manifest.SDKPath = abs
		}
	}
	return &Store{
		logger:   logger.With().Str("component", "tool-store").Logger(),
		layout:   layout,
		manifest: manifest,
	}
}

// Save lays out a tool directory: source, metadata and manifest.
// document is the JSON metadata was decoded from. When set it is written
// as given, only re-indented; otherwise metadata is encoded.
// An existing directory for name is overwritten in place.
func (s *Store) Save(name, sourcePath string, metadata *Metadata, document []byte) (*StoredTool, error) {
	if err := ValidateName(name); err != nil {
		return nil, newError(CodeStore, name, "invalid tool name", err)
	}

	stored := s.layout.Stored(name)

	if err := os.MkdirAll(stored.Dir, 0755); err != nil {
		return nil, newError(CodeStore, name, "failed to create tool directory", err)
	}

	if err := copyFile(sourcePath, stored.SourcePath); err != nil {
		return nil, newError(CodeStore, name, "failed to copy source", err)
	}

	data, err := encodeMetadata(metadata, document)
	if err != nil {
		return nil, newError(CodeStore, name, "failed to serialize metadata", err)
	}
	if err := os.WriteFile(stored.MetadataPath, data, 0644); err != nil {
		return nil, newError(CodeStore, name, "failed to write metadata", err)
	}

	manifest, err := buildManifest(name, s.manifest, metadata.Dependencies)
	if err != nil {
		return nil, newError(CodeStore, name, "failed to build manifest", err)
	}
	if err := os.WriteFile(stored.ManifestPath, manifest, 0644); err != nil {
		return nil, newError(CodeStore, name, "failed to write manifest", err)
	}

	if err := s.seedSums(stored.Dir); err != nil {
		return nil, newError(CodeStore, name, "failed to seed checksums", err)
	}

	s.logger.Debug().
		Str("tool", name).
		Str("dir", stored.Dir).
		Int("dependencies", len(metadata.Dependencies)).
		Msg("Stored tool")

	return stored, nil
}

func encodeMetadata(metadata *Metadata, document []byte) ([]byte, error) {
	var buf bytes.Buffer
	if len(document) > 0 {
		if err := json.Indent(&buf, document, "", "  "); err != nil {
			return nil, err
		}
	} else {
		data, err := json.MarshalIndent(metadata, "", "  ")
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// seedSums copies the SDK's go.sum into dir so the tool resolves the
// SDK's own requirements from the local module cache
func (s *Store) seedSums(dir string) error {
	if s.manifest.SDKPath == "" {
		return nil
	}
	err := copyFile(filepath.Join(s.manifest.SDKPath, sumFileName), filepath.Join(dir, sumFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// Re-registering from the stored copy must not truncate it
	if srcInfo, err := in.Stat(); err == nil {
		if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(srcInfo, dstInfo) {
			return nil
		}
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

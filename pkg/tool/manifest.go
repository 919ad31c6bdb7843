package tool

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// DefaultGoVersion is written to the go directive of tool manifests
const DefaultGoVersion = "1.24"

// SDKModulePath is the module tools import toolrpc from
const SDKModulePath = "github.com/harun/ishikawa"

// sdkVersion is the placeholder version go uses for replaced modules
const sdkVersion = "v0.0.0-00010101000000-000000000000"

// ManifestOptions controls the go.mod written for each tool
type ManifestOptions struct {
	// GoVersion is the go directive (default DefaultGoVersion)
	GoVersion string
	// SDKPath is a local copy of SDKModulePath. When set, every manifest
	// requires the module and replaces it with this directory.
	SDKPath string
}

// manifestModulePath is the module path written for a tool
func manifestModulePath(name string) string {
	return "tool-" + name
}

// buildManifest renders the go.mod that carries a tool's dependencies.
// Requires are emitted in sorted path order.
func buildManifest(name string, opts ManifestOptions, dependencies map[string]string) ([]byte, error) {
	goVersion := opts.GoVersion
	if goVersion == "" {
		goVersion = DefaultGoVersion
	}

	f := new(modfile.File)
	if err := f.AddModuleStmt(manifestModulePath(name)); err != nil {
		return nil, fmt.Errorf("failed to set module: %w", err)
	}
	if err := f.AddGoStmt(goVersion); err != nil {
		return nil, fmt.Errorf("failed to set go version: %w", err)
	}

	paths := make([]string, 0, len(dependencies))
	for path := range dependencies {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if opts.SDKPath != "" && path == SDKModulePath {
			continue
		}
		if err := module.CheckPath(path); err != nil {
			return nil, fmt.Errorf("invalid dependency %q: %w", path, err)
		}
		version, err := normalizeVersion(dependencies[path])
		if err != nil {
			return nil, fmt.Errorf("invalid version for dependency %q: %w", path, err)
		}
		f.AddNewRequire(path, version, false)
	}

	if opts.SDKPath != "" {
		f.AddNewRequire(SDKModulePath, sdkVersion, false)
		if err := f.AddReplace(SDKModulePath, "", opts.SDKPath, ""); err != nil {
			return nil, fmt.Errorf("failed to replace %s: %w", SDKModulePath, err)
		}
	}

	f.Cleanup()
	return modfile.Format(f.Syntax), nil
}

// lowerBoundOperators are constraint prefixes whose operand is the
// minimum acceptable version, which is what a go.mod require states.
var lowerBoundOperators = []string{">=", "^", "~", "="}

// normalizeVersion maps a dependency constraint onto a go.mod version.
// Semantic versions and lower-bound constraints become canonical vX.Y.Z.
// Other queries such as "latest" or a branch name are kept for go mod tidy
// to resolve.
func normalizeVersion(constraint string) (string, error) {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" || constraint == "*" {
		return "latest", nil
	}

	if v, err := semver.NewVersion(constraint); err == nil {
		return "v" + v.String(), nil
	}

	for _, op := range lowerBoundOperators {
		if !strings.HasPrefix(constraint, op) {
			continue
		}
		if _, err := semver.NewConstraint(constraint); err != nil {
			return "", fmt.Errorf("invalid constraint %q: %w", constraint, err)
		}
		v, err := semver.NewVersion(strings.TrimSpace(constraint[len(op):]))
		if err != nil {
			return "", fmt.Errorf("unsupported constraint %q: %w", constraint, err)
		}
		return "v" + v.String(), nil
	}

	if strings.ContainsAny(constraint, " \t\n\"'`<>|,") {
		return "", fmt.Errorf("unsupported version query %q", constraint)
	}
	return constraint, nil
}

package tool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// fakeModule serves a fixed symbol table
type fakeModule struct {
	exports map[string]Func
	closed  atomic.Bool
}

func (m *fakeModule) Lookup(symbol string) (Func, bool) {
	fn, ok := m.exports[symbol]
	return fn, ok
}

func (m *fakeModule) Close() error {
	m.closed.Store(true)
	return nil
}

// fakeArtifacts opens fakeModules from a per-tool table
type fakeArtifacts struct {
	mu      sync.Mutex
	modules map[string]*fakeModule
	opens   map[string]int
	err     error
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{
		modules: make(map[string]*fakeModule),
		opens:   make(map[string]int),
	}
}

func (a *fakeArtifacts) set(name string, exports map[string]Func) *fakeModule {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := &fakeModule{exports: exports}
	a.modules[name] = m
	return m
}

func (a *fakeArtifacts) Open(ctx context.Context, dir, artifactPath string) (Module, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	name := filepath.Base(dir)
	a.opens[name]++
	if a.err != nil {
		return nil, a.err
	}
	m, ok := a.modules[name]
	if !ok {
		return nil, errors.New("no module for " + name)
	}
	return m, nil
}

func (a *fakeArtifacts) openCount(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opens[name]
}

// fakeCompiler writes a placeholder dist/index unless err is set
type fakeCompiler struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (c *fakeCompiler) Compile(ctx context.Context, dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, dir)
	if c.err != nil {
		return c.err
	}
	if err := os.MkdirAll(filepath.Join(dir, BuildDirName), 0755); err != nil {
		return err
	}
	return os.WriteFile(ArtifactPath(dir), []byte("#!/bin/true\n"), 0755)
}

type fakeInstaller struct {
	err   error
	calls []string
}

func (i *fakeInstaller) Install(ctx context.Context, dir string) error {
	i.calls = append(i.calls, dir)
	return i.err
}

// echoFunc returns its first argument
func echoFunc(ctx context.Context, args ...any) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return args[0], nil
}

func constFunc(v any) Func {
	return func(ctx context.Context, args ...any) (any, error) {
		return v, nil
	}
}

// writeTool lays out tools/<name> under root with the given metadata JSON
// and, when compiled is set, a placeholder artifact.
func writeTool(t *testing.T, root, name, metadata string, compiled bool) string {
	t.Helper()

	dir := filepath.Join(root, ToolsDirName, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SourceFileName), []byte("package main\n"), 0644))
	if metadata != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFileName), []byte(metadata), 0644))
	}
	if compiled {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, BuildDirName), 0755))
		require.NoError(t, os.WriteFile(ArtifactPath(dir), []byte("#!/bin/true\n"), 0755))
	}
	return dir
}

func metadataJSON(name string) string {
	return `{"name":"` + name + `","description":"test tool","parameters":{"type":"object"}}`
}

// writeSource creates a Go source file outside the tools root
func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0644))
	return path
}

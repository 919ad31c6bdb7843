package tool

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/harun/ishikawa/internal/metrics"
	"github.com/harun/ishikawa/internal/tracing"
)

// ManagerConfig configures a Manager
type ManagerConfig struct {
	// Root is the directory holding the tools directory (default: working directory)
	Root string
	// GoVersion is written to the go directive of tool manifests
	GoVersion string
	// SDKPath is a local copy of SDKModulePath that tool manifests
	// replace it with. Empty leaves tools without the SDK.
	SDKPath string

	Compiler  Compiler
	Installer Installer
	Artifacts ArtifactLoader

	// Loader replaces the default disk loader when set
	Loader ToolLoader

	// Metrics is optional
	Metrics *metrics.Metrics

	// DedupeLoads collapses concurrent loads of the same uncached tool
	// into one. When false, each concurrent miss loads on its own and the
	// last result written wins the cache slot.
	DedupeLoads bool

	// MaxConcurrentLoads bounds LoadAll fan-out; zero means unbounded
	MaxConcurrentLoads int
}

// Manager coordinates registration, loading and execution of tools and
// owns the cache of loaded tools.
type Manager struct {
	logger    zerolog.Logger
	layout    Layout
	store     *Store
	handoff   *Handoff
	loader    ToolLoader
	lister    *Lister
	validator *metadataValidator
	cache     *Cache
	artifacts ArtifactLoader
	metrics   *metrics.Metrics

	loads              singleflight.Group
	dedupeLoads        bool
	maxConcurrentLoads int
}

// NewManager creates a manager and its components
func NewManager(logger zerolog.Logger, config ManagerConfig) (*Manager, error) {
	root := config.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	layout := Layout{Root: root}

	loader := config.Loader
	if loader == nil {
		loader = NewLoader(logger, layout, config.Artifacts)
	}

	return &Manager{
		logger:             logger.With().Str("component", "tool-manager").Logger(),
		layout:             layout,
		store:              NewStore(logger, layout, ManifestOptions{GoVersion: config.GoVersion, SDKPath: config.SDKPath}),
		handoff:            NewHandoff(logger, config.Compiler, config.Installer),
		loader:             loader,
		lister:             NewLister(logger, layout),
		validator:          newMetadataValidator(),
		cache:              NewCache(),
		artifacts:          config.Artifacts,
		metrics:            config.Metrics,
		dedupeLoads:        config.DedupeLoads,
		maxConcurrentLoads: config.MaxConcurrentLoads,
	}, nil
}

// Layout returns the directory layout the manager works on
func (m *Manager) Layout() Layout {
	return m.layout
}

// Cache returns the manager's cache
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Register parses and validates metadata, stores the tool, optionally
// installs its dependencies and compiles it. metadata.name is required and
// must equal req.Name. The cache is not touched. A failure after the store
// step leaves the stored files in place.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (stored *StoredTool, err error) {
	defer func() {
		if m.metrics != nil {
			m.metrics.RegistrationsTotal.WithLabelValues(metrics.Status(err)).Inc()
		}
	}()

	metadata, document, err := parseMetadataDocument(req.Metadata)
	if err != nil {
		return nil, err
	}
	if err := m.validator.validate(document); err != nil {
		return nil, newError(CodeMetadataParse, req.Name, "metadata does not match the schema", err)
	}
	if metadata.Name != req.Name {
		return nil, newError(CodeMetadataParse, req.Name,
			fmt.Sprintf("metadata name %q does not match tool name", metadata.Name), nil)
	}

	stored, err = m.store.Save(req.Name, req.SourcePath, metadata, document)
	if err != nil {
		return nil, err
	}

	if req.AutoInstall {
		if err := m.install(ctx, req.Name, stored.Dir); err != nil {
			return nil, err
		}
	}

	if err := m.compile(ctx, req.Name, stored.Dir); err != nil {
		return nil, err
	}

	log := tracing.LoggerFromContext(tracing.WithTool(ctx, req.Name), m.logger)
	log.Info().
		Str("dir", stored.Dir).
		Msg("Tool registered")

	return stored, nil
}

// Compile rebuilds an already stored tool
func (m *Manager) Compile(ctx context.Context, name string) error {
	dir, err := m.storedDir(name)
	if err != nil {
		return err
	}
	return m.compile(ctx, name, dir)
}

// InstallDependencies runs the installer for an already stored tool
func (m *Manager) InstallDependencies(ctx context.Context, name string) error {
	dir, err := m.storedDir(name)
	if err != nil {
		return err
	}
	return m.install(ctx, name, dir)
}

func (m *Manager) compile(ctx context.Context, name, dir string) error {
	err := m.handoff.Compile(ctx, dir)
	m.recordBuild(name, "compile", err)
	return err
}

func (m *Manager) install(ctx context.Context, name, dir string) error {
	err := m.handoff.InstallDependencies(ctx, dir)
	m.recordBuild(name, "install", err)
	return err
}

func (m *Manager) recordBuild(name, step string, err error) {
	if m.metrics != nil {
		m.metrics.ToolBuildsTotal.WithLabelValues(name, step, metrics.Status(err)).Inc()
	}
}

func (m *Manager) storedDir(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", newError(CodeNotFound, name, "invalid tool name", err)
	}
	dir := m.layout.ToolDir(name)
	info, err := os.Stat(dir)
	if err != nil {
		return "", newError(CodeNotFound, name, fmt.Sprintf("tool not found at %s", dir), err)
	}
	if !info.IsDir() {
		return "", newError(CodeNotFound, name, fmt.Sprintf("%s is not a directory", dir), nil)
	}
	return dir, nil
}

// Get returns the cached tool for name, loading it on a miss
func (m *Manager) Get(ctx context.Context, name string) (*LoadedTool, error) {
	return m.get(ctx, name, false)
}

// Reload loads name from disk and replaces its cache entry. The replaced
// tool keeps its module running until LoadedTool.Close or Manager.Close.
func (m *Manager) Reload(ctx context.Context, name string) (*LoadedTool, error) {
	return m.get(ctx, name, true)
}

func (m *Manager) get(ctx context.Context, name string, forceReload bool) (*LoadedTool, error) {
	if !forceReload {
		if t, ok := m.cache.Get(name); ok {
			m.logger.Debug().Str("tool", name).Msg("Using cached tool")
			if m.metrics != nil {
				m.metrics.CacheHitsTotal.WithLabelValues(name).Inc()
			}
			return t, nil
		}
	}

	if m.metrics != nil {
		m.metrics.CacheMissesTotal.WithLabelValues(name).Inc()
	}

	if !m.dedupeLoads {
		return m.load(ctx, name)
	}

	// The first caller's context drives a shared load
	v, err, shared := m.loads.Do(name, func() (any, error) {
		if !forceReload {
			if t, ok := m.cache.Get(name); ok {
				return t, nil
			}
		}
		return m.load(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug().Str("tool", name).Msg("Joined in-flight load")
	}
	return v.(*LoadedTool), nil
}

// load runs the loader and replaces the cache entry with the result
func (m *Manager) load(ctx context.Context, name string) (*LoadedTool, error) {
	start := time.Now()
	t, err := m.loader.Load(ctx, name)

	if m.metrics != nil {
		m.metrics.ToolLoadsTotal.WithLabelValues(name, metrics.Status(err)).Inc()
		m.metrics.ToolLoadDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}

	m.cache.put(name, t)
	m.recordCacheSize()
	return t, nil
}

// List returns the names of all stored tools. The cache is not consulted.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.lister.List()
}

// LoadAll loads every stored tool concurrently and returns a snapshot of
// the cache. When any load fails the call fails with a *LoadAllError; the
// tools that did load stay cached.
func (m *Manager) LoadAll(ctx context.Context) (map[string]*LoadedTool, error) {
	names, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	if m.maxConcurrentLoads > 0 {
		g.SetLimit(m.maxConcurrentLoads)
	}

	var mu sync.Mutex
	failures := make(map[string]error)

	for _, name := range names {
		g.Go(func() error {
			if _, err := m.Get(ctx, name); err != nil {
				mu.Lock()
				failures[name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		m.logger.Warn().
			Int("failed", len(failures)).
			Int("total", len(names)).
			Msg("Some tools failed to load")
		return nil, &LoadAllError{Failures: failures}
	}

	m.logger.Info().Int("total", m.cache.Len()).Msg("All tools loaded")
	return m.cache.Snapshot(), nil
}

// Execute calls the entry point of name with args. Whatever the tool
// returns, value or error, is passed through unchanged.
func (m *Manager) Execute(ctx context.Context, name string, args ...any) (any, error) {
	t, err := m.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := t.Execute(ctx, args...)

	duration := time.Since(start)

	if m.metrics != nil {
		m.metrics.ToolExecutionsTotal.WithLabelValues(name, metrics.Status(err)).Inc()
		m.metrics.ToolExecutionDuration.WithLabelValues(name).Observe(duration.Seconds())
	}

	log := tracing.LoggerFromContext(tracing.WithTool(ctx, name), m.logger)
	log.Debug().
		Dur("duration", duration).
		Bool("success", err == nil).
		Msg("Tool executed")

	return result, err
}

// GetMetadata returns the metadata of the loaded tool name
func (m *Manager) GetMetadata(ctx context.Context, name string) (Metadata, error) {
	t, err := m.Get(ctx, name)
	if err != nil {
		return Metadata{}, err
	}
	return t.Metadata, nil
}

// ClearCache drops every cached tool. Dropped tools stay usable by
// callers holding them until LoadedTool.Close or Manager.Close.
func (m *Manager) ClearCache() {
	n := m.cache.Clear()
	m.recordCacheSize()
	m.logger.Info().Int("removed", n).Msg("Tool cache cleared")
}

// Invalidate drops the cache entry for name and reports whether it
// existed. The dropped tool is not closed.
func (m *Manager) Invalidate(name string) bool {
	removed := m.cache.Delete(name)
	if removed {
		m.recordCacheSize()
		m.logger.Info().Str("tool", name).Msg("Tool removed from cache")
	}
	return removed
}

// Close releases the artifact loader. Tools handed out earlier stop
// working once their modules are closed.
func (m *Manager) Close() error {
	if closer, ok := m.artifacts.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (m *Manager) recordCacheSize() {
	if m.metrics != nil {
		m.metrics.CacheEntries.Set(float64(m.cache.Len()))
	}
}

// Package toolwatch rebuilds tools when their sources change on disk.
// It only produces new artifacts. Loaded tools keep running their old
// artifact until the caller reloads them.
package toolwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/harun/ishikawa/internal/tracing"
	"github.com/harun/ishikawa/pkg/tool"
)

// Rebuilder is the part of tool.Manager the watcher drives
type Rebuilder interface {
	Compile(ctx context.Context, name string) error
	InstallDependencies(ctx context.Context, name string) error
}

// Action is what a change to a tool file requires
type Action int

const (
	// ActionNone ignores the change
	ActionNone Action = iota
	// ActionCompile rebuilds the artifact
	ActionCompile
	// ActionInstall installs dependencies, then rebuilds
	ActionInstall
)

func (a Action) String() string {
	switch a {
	case ActionCompile:
		return "compile"
	case ActionInstall:
		return "install"
	default:
		return "none"
	}
}

// RebuildFunc is called after each debounced rebuild
type RebuildFunc func(name string, action Action, err error)

// Config holds configuration for the watcher
type Config struct {
	ToolsDir           string
	StabilityThreshold time.Duration
	Rebuilder          Rebuilder
	OnRebuild          RebuildFunc
}

// Watcher monitors the tools directory and rebuilds changed tools
type Watcher struct {
	logger             zerolog.Logger
	watcher            *fsnotify.Watcher
	toolsDir           string
	stabilityThreshold time.Duration
	rebuilder          Rebuilder
	onRebuild          RebuildFunc

	ctx     context.Context
	cancel  context.CancelFunc
	pending map[string]*pendingRebuild
	running map[string]bool
	settled map[string]time.Time // when each tool's last rebuild finished
	mu      sync.Mutex
	wg      sync.WaitGroup
	stopped bool
}

type pendingRebuild struct {
	timer  *time.Timer
	action Action
}

// New creates a watcher. Call Start to begin watching.
func New(logger zerolog.Logger, config Config) (*Watcher, error) {
	if config.Rebuilder == nil {
		return nil, fmt.Errorf("rebuilder is required")
	}
	if config.ToolsDir == "" {
		return nil, fmt.Errorf("tools directory is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if config.StabilityThreshold == 0 {
		config.StabilityThreshold = 200 * time.Millisecond
	}

	return &Watcher{
		logger:             logger.With().Str("component", "tool-watcher").Logger(),
		watcher:            watcher,
		toolsDir:           filepath.Clean(config.ToolsDir),
		stabilityThreshold: config.StabilityThreshold,
		rebuilder:          config.Rebuilder,
		onRebuild:          config.OnRebuild,
		pending:            make(map[string]*pendingRebuild),
		running:            make(map[string]bool),
		settled:            make(map[string]time.Time),
	}, nil
}

// Start watches the tools directory and every tool directory in it.
// Rebuilds run with ctx until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.toolsDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.toolsDir, err)
	}

	entries, err := os.ReadDir(w.toolsDir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", w.toolsDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() && !ignored(entry.Name()) {
			w.addTool(filepath.Join(w.toolsDir, entry.Name()))
		}
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.eventLoop()

	w.logger.Info().Str("path", w.toolsDir).Msg("Tool watcher started")
	return nil
}

// Stop stops the watcher and waits for a running rebuild to finish
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for name, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.logger.Info().Msg("Tool watcher stopped")
	return nil
}

// Watching returns the directories currently watched
func (w *Watcher) Watching() []string {
	return w.watcher.WatchList()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")

		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// A new tool directory has to be watched before its files show up
	if filepath.Dir(event.Name) == w.toolsDir {
		if event.Op&fsnotify.Create != 0 && !ignored(filepath.Base(event.Name)) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				w.addTool(event.Name)
			}
		}
		return
	}

	name, action := Classify(w.toolsDir, event.Name)
	if action == ActionNone {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	w.schedule(name, action)
}

// schedule debounces rebuilds per tool, keeping the strongest action seen.
// go mod tidy and go build rewrite go.mod, so manifest changes during a
// tool's rebuild and for one threshold after it are dropped.
func (w *Watcher) schedule(name string, action Action) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	if action == ActionInstall && w.rebuilding(name) {
		w.logger.Debug().Str("tool", name).Msg("Ignoring manifest write from rebuild")
		return
	}

	if p, exists := w.pending[name]; exists {
		p.timer.Stop()
		if p.action > action {
			action = p.action
		}
	}

	p := &pendingRebuild{action: action}
	p.timer = time.AfterFunc(w.stabilityThreshold, func() {
		w.mu.Lock()
		if w.pending[name] != p || w.stopped {
			w.mu.Unlock()
			return
		}
		delete(w.pending, name)
		w.running[name] = true
		w.wg.Add(1)
		w.mu.Unlock()

		defer w.wg.Done()
		w.rebuild(name, p.action)

		w.mu.Lock()
		delete(w.running, name)
		w.settled[name] = time.Now()
		w.mu.Unlock()
	})
	w.pending[name] = p
}

// rebuilding reports whether name is rebuilding or just finished. w.mu
// must be held.
func (w *Watcher) rebuilding(name string) bool {
	if w.running[name] {
		return true
	}
	settled, ok := w.settled[name]
	return ok && time.Since(settled) < w.stabilityThreshold
}

func (w *Watcher) rebuild(name string, action Action) {
	ctx := tracing.WithTool(tracing.NewRequestContext(w.ctx), name)
	log := tracing.LoggerFromContext(ctx, w.logger)

	var err error
	switch action {
	case ActionInstall:
		if err = w.rebuilder.InstallDependencies(ctx, name); err == nil {
			err = w.rebuilder.Compile(ctx, name)
		}
	case ActionCompile:
		err = w.rebuilder.Compile(ctx, name)
	}

	if err == nil {
		log.Info().Stringer("action", action).Msg("Tool rebuilt")
	} else {
		log.Error().Err(err).Stringer("action", action).Msg("Tool rebuild failed")
	}

	if w.onRebuild != nil {
		w.onRebuild(name, action, err)
	}
}

func (w *Watcher) addTool(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn().Err(err).Str("path", dir).Msg("Failed to watch tool")
		return
	}
	w.logger.Debug().Str("path", dir).Msg("Watching tool")
}

// Classify maps a changed path to the tool it belongs to and the action
// the change requires. Only files directly inside a tool directory count.
func Classify(toolsDir, path string) (string, Action) {
	rel, err := filepath.Rel(filepath.Clean(toolsDir), filepath.Clean(path))
	if err != nil {
		return "", ActionNone
	}

	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) != 2 || parts[0] == ".." {
		return "", ActionNone
	}

	name, file := parts[0], parts[1]
	if ignored(name) || tool.ValidateName(name) != nil {
		return "", ActionNone
	}

	switch file {
	case tool.SourceFileName:
		return name, ActionCompile
	case tool.ManifestFileName:
		return name, ActionInstall
	default:
		return "", ActionNone
	}
}

// ignored skips hidden entries
func ignored(name string) bool {
	return strings.HasPrefix(name, ".")
}

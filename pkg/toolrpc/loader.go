package toolrpc

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/rs/zerolog"

	"github.com/harun/ishikawa/pkg/tool"
)

// Loader opens tool artifacts as go-plugin subprocesses.
// It implements tool.ArtifactLoader.
type Loader struct {
	logger  zerolog.Logger
	hclog   hclog.Logger
	mu      sync.Mutex
	clients []*plugin.Client
	closed  bool
}

// NewLoader creates a subprocess artifact loader
func NewLoader(logger zerolog.Logger) *Loader {
	l := logger.With().Str("component", "artifact-loader").Logger()
	return &Loader{
		logger: l,
		hclog: hclog.New(&hclog.LoggerOptions{
			Name:   "tool",
			Level:  hclog.Warn,
			Output: l,
		}),
	}
}

// Open starts the artifact, connects to it and reads its export list
func (l *Loader) Open(ctx context.Context, dir, artifactPath string) (tool.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, errors.New("artifact loader is closed")
	}
	l.mu.Unlock()

	cmd := exec.Command(artifactPath)
	cmd.Dir = dir

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap(nil),
		Cmd:              cmd,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger:           l.hclog,
	})

	module, err := connect(client)
	if err != nil {
		client.Kill()
		return nil, err
	}

	if err := l.track(client); err != nil {
		return nil, err
	}

	l.logger.Debug().
		Str("artifact", artifactPath).
		Strs("exports", module.symbols()).
		Msg("Opened tool artifact")

	return module, nil
}

// track records client for Close. A loader closed while the client was
// starting kills it instead.
func (l *Loader) track(client *plugin.Client) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		client.Kill()
		return errors.New("artifact loader is closed")
	}
	l.clients = append(l.clients, client)
	return nil
}

func connect(client *plugin.Client) (*rpcModule, error) {
	rpcClient, err := client.Client()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tool: %w", err)
	}

	raw, err := rpcClient.Dispense(PluginName)
	if err != nil {
		return nil, fmt.Errorf("failed to dispense tool module: %w", err)
	}

	moduleClient, ok := raw.(*ModuleRPCClient)
	if !ok {
		return nil, fmt.Errorf("unexpected tool module type %T", raw)
	}

	module, err := newRPCModule(moduleClient)
	if err != nil {
		return nil, err
	}
	module.kill = client.Kill
	return module, nil
}

// Close kills every tool process this loader started
func (l *Loader) Close() error {
	l.mu.Lock()
	clients := l.clients
	l.clients = nil
	l.closed = true
	l.mu.Unlock()

	for _, client := range clients {
		client.Kill()
	}
	l.logger.Debug().Int("clients", len(clients)).Msg("Artifact loader closed")
	return nil
}

// rpcModule adapts a ModuleRPCClient to tool.Module
type rpcModule struct {
	client  *ModuleRPCClient
	exports map[string]bool
	kill    func()
	once    sync.Once
}

func newRPCModule(client *ModuleRPCClient) (*rpcModule, error) {
	names, err := client.Exports()
	if err != nil {
		return nil, fmt.Errorf("failed to read tool exports: %w", err)
	}

	exports := make(map[string]bool, len(names))
	for _, name := range names {
		exports[name] = true
	}
	return &rpcModule{client: client, exports: exports}, nil
}

func (m *rpcModule) Lookup(symbol string) (tool.Func, bool) {
	if !m.exports[symbol] {
		return nil, false
	}
	return func(ctx context.Context, args ...any) (any, error) {
		return m.client.Call(ctx, symbol, args)
	}, true
}

func (m *rpcModule) Close() error {
	m.once.Do(func() {
		if m.kill != nil {
			m.kill()
		}
	})
	return nil
}

func (m *rpcModule) symbols() []string {
	names := make([]string, 0, len(m.exports))
	for name := range m.exports {
		names = append(names, name)
	}
	return names
}

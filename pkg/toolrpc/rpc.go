package toolrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/rpc"
	"sort"

	"github.com/hashicorp/go-plugin"

	"github.com/harun/ishikawa/pkg/tool"
)

// PluginName is the key the module is served and dispensed under
const PluginName = "module"

// Handshake is used to verify that the host and a tool binary are compatible
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "ISHIKAWA_TOOL",
	MagicCookieValue: "ishikawa-tool-v1",
}

// Exports maps symbol names to the functions a tool binary serves
type Exports map[string]tool.Func

// ModulePlugin is the implementation of plugin.Plugin for RPC
type ModulePlugin struct {
	Impl Exports
}

func (p *ModulePlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &ModuleRPCServer{Impl: p.Impl}, nil
}

func (p *ModulePlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &ModuleRPCClient{client: c}, nil
}

// PluginMap is the map of plugins the host can dispense
func PluginMap(exports Exports) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginName: &ModulePlugin{Impl: exports},
	}
}

// CallArgs are the arguments for the Call RPC
type CallArgs struct {
	Symbol string
	Args   []byte // JSON array
}

// CallResp is the response for the Call RPC. Errors cross the boundary
// as text because net/rpc cannot encode arbitrary error values.
type CallResp struct {
	Result []byte // JSON value
	Error  string
}

// ModuleRPCServer is the RPC server that ModuleRPCClient talks to
type ModuleRPCServer struct {
	Impl Exports
}

func (s *ModuleRPCServer) Exports(args interface{}, resp *[]string) error {
	names := make([]string, 0, len(s.Impl))
	for name, fn := range s.Impl {
		if fn != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	*resp = names
	return nil
}

func (s *ModuleRPCServer) Call(args *CallArgs, resp *CallResp) error {
	fn, ok := s.Impl[args.Symbol]
	if !ok || fn == nil {
		resp.Error = fmt.Sprintf("symbol %q is not exported", args.Symbol)
		return nil
	}

	var params []any
	if len(args.Args) > 0 {
		if err := json.Unmarshal(args.Args, &params); err != nil {
			resp.Error = fmt.Sprintf("failed to decode arguments: %v", err)
			return nil
		}
	}

	result, err := fn(context.Background(), params...)
	if err != nil {
		resp.Error = err.Error()
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = fmt.Sprintf("failed to encode result: %v", err)
		return nil
	}
	resp.Result = data
	return nil
}

// ModuleRPCClient is the RPC client that talks to ModuleRPCServer
type ModuleRPCClient struct {
	client *rpc.Client
}

// Exports returns the symbols the tool binary serves
func (c *ModuleRPCClient) Exports() ([]string, error) {
	var resp []string
	if err := c.client.Call("Plugin.Exports", new(interface{}), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Call invokes symbol with args. The call is abandoned, not interrupted,
// when ctx is done first.
func (c *ModuleRPCClient) Call(ctx context.Context, symbol string, args []any) (any, error) {
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}

	var resp CallResp
	call := c.client.Go("Plugin.Call", &CallArgs{Symbol: symbol, Args: encoded}, &resp, nil)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-call.Done:
	}

	if call.Error != nil {
		return nil, call.Error
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}

	var result any
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return result, nil
}

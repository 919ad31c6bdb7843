package toolrpc

import (
	"github.com/hashicorp/go-plugin"
)

// Serve exposes exports to the host process and blocks until the host
// disconnects. Tool binaries call it from main:
//
//	func main() {
//		toolrpc.Serve(toolrpc.Exports{
//			"execute": func(ctx context.Context, args ...any) (any, error) {
//				return args[0], nil
//			},
//		})
//	}
func Serve(exports Exports) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginMap(exports),
	})
}

package tool

import (
	"context"
)

// Module is the exported surface of an opened artifact
type Module interface {
	// Lookup returns the callable exported under symbol, if any
	Lookup(symbol string) (Func, bool)

	// Close releases whatever Open acquired for this module
	Close() error
}

// ArtifactLoader opens compiled artifacts. Opening runs the artifact's
// own initialization code, so this is the only place tool code executes
// during a load.
type ArtifactLoader interface {
	Open(ctx context.Context, dir, artifactPath string) (Module, error)
}

// Package tool registers, compiles, loads and caches dynamic tools.
//
// A tool lives in <root>/tools/<name>/ as index.go, function.json and a
// go.mod manifest. Compiling produces dist/index, which an ArtifactLoader
// opens to find the entry point: "default", else "execute", else the
// tool's name.
//
// Invariants:
// - The Manager's cache holds at most one LoadedTool per name.
// - Only a Manager load adds cache entries; Invalidate and ClearCache remove them.
// - Register never touches the cache.
//
// Usage:
//
//	m, _ := tool.NewManager(logger, tool.ManagerConfig{
//		Compiler:  build.NewGoCompiler(logger, build.NewExecRunner(), build.Config{}),
//		Artifacts: toolrpc.NewLoader(logger),
//	})
//	defer m.Close()
//	result, err := m.Execute(ctx, "echo", 42)
package tool

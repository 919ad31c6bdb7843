package tool

import (
	"fmt"
	"strings"
)

// Export symbols tried, in order, before the tool's own name
const (
	ExportDefault = "default"
	ExportExecute = "execute"
)

// EntryPointCandidates lists the symbols ResolveEntryPoint tries for name
func EntryPointCandidates(name string) []string {
	return []string{ExportDefault, ExportExecute, name}
}

// ResolveEntryPoint picks the callable entry point of module: the default
// export, else "execute", else an export named after the tool.
func ResolveEntryPoint(module Module, name string) (Func, string, error) {
	candidates := EntryPointCandidates(name)
	for _, symbol := range candidates {
		fn, ok := module.Lookup(symbol)
		if ok && fn != nil {
			return fn, symbol, nil
		}
	}
	return nil, "", newError(CodeInvalidExport, name, "tool does not export a valid function",
		fmt.Errorf("none of %s is exported", strings.Join(candidates, ", ")))
}

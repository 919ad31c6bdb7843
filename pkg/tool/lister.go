package tool

import (
	"os"

	"github.com/rs/zerolog"
)

// Lister enumerates registered tools
type Lister struct {
	logger zerolog.Logger
	layout Layout
}

// NewLister creates a lister over layout
func NewLister(logger zerolog.Logger, layout Layout) *Lister {
	return &Lister{
		logger: logger.With().Str("component", "tool-lister").Logger(),
		layout: layout,
	}
}

// List returns the names of the immediate subdirectories of the tools
// root in directory read order. Plain files are skipped.
func (l *Lister) List() ([]string, error) {
	dir := l.layout.ToolsDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, newError(CodeList, "", "could not list tools in "+dir, err)
	}

	tools := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		tools = append(tools, entry.Name())
	}

	l.logger.Debug().Int("count", len(tools)).Msg("Found tools")
	return tools, nil
}

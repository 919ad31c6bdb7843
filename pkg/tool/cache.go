package tool

import (
	"sort"
	"sync"
)

// Cache maps tool names to loaded tools, one entry per name.
// Entries are added only by a Manager load; Delete and Clear remove them.
type Cache struct {
	entries map[string]*LoadedTool
	mu      sync.RWMutex
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*LoadedTool),
	}
}

// Get returns the entry for name
func (c *Cache) Get(name string) (*LoadedTool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[name]
	return t, ok
}

// put stores t under name, replacing any previous entry
func (c *Cache) put(name string, t *LoadedTool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = t
}

// Delete removes the entry for name and reports whether one existed
func (c *Cache) Delete(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; !ok {
		return false
	}
	delete(c.entries, name)
	return true
}

// Clear removes every entry and returns how many were dropped
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*LoadedTool)
	return n
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the current entries
func (c *Cache) Snapshot() map[string]*LoadedTool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]*LoadedTool, len(c.entries))
	for name, t := range c.entries {
		snapshot[name] = t
	}
	return snapshot
}

// Names returns the cached tool names in sorted order
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

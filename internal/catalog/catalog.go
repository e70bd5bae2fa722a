// Package catalog holds the static plugin catalog and the dependency
// resolver that completes or validates a requested plugin set.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Core plugins are injected by every policy except manual. The engine cannot
// function without them.
const (
	PluginEssentials = "Essentials"
	PluginParagraph  = "Paragraph"
)

// Entry is one immutable catalog record. The catalog is process-wide static
// data; entries are never mutated at runtime.
type Entry struct {
	Name           string
	Requires       []string
	Recommends     []string
	ExclusionGroup string
	RequiresConfig bool
	Unavailable    bool
}

// Catalog is a read-only lookup table over plugin entries.
type Catalog struct {
	entries map[string]Entry
}

// New builds a catalog from entries. Duplicate names, self-dependencies and
// dependency cycles are construction errors; a malformed catalog must never
// reach the resolver.
func New(entries []Entry) (*Catalog, error) {
	byName := make(map[string]Entry, len(entries))
	graph := newDependencyGraph()

	for _, entry := range entries {
		if strings.TrimSpace(entry.Name) == "" {
			return nil, fmt.Errorf("catalog entry requires a non-empty name")
		}
		if _, exists := byName[entry.Name]; exists {
			return nil, fmt.Errorf("catalog entry '%s' declared more than once", entry.Name)
		}
		byName[entry.Name] = entry
		graph.AddNode(entry.Name)

		for _, dep := range entry.Requires {
			if dep == entry.Name {
				return nil, fmt.Errorf("plugin '%s' cannot depend on itself", entry.Name)
			}
			graph.AddEdge(entry.Name, dep)
		}
	}

	if cycle := graph.DetectCycles(); len(cycle) > 0 {
		return nil, ErrCircularDependency{Cycle: cycle}
	}

	return &Catalog{entries: byName}, nil
}

// MustNew builds a catalog and panics on malformed entries. Reserved for the
// bundled static catalog, which is covered by tests.
func MustNew(entries []Entry) *Catalog {
	c, err := New(entries)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the entry for the named plugin.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	entry, ok := c.entries[name]
	return entry, ok
}

// Names returns all catalog plugin names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CorePlugins returns the mandatory plugin set injected by non-manual
// policies.
func CorePlugins() []string {
	return []string{PluginEssentials, PluginParagraph}
}

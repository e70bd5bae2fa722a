// Package plugin maps abstract plugin names to loadable implementations and
// filters sets that would corrupt or crash the engine.
package plugin

import (
	"sync"

	"github.com/quillforge/editorhost/internal/catalog"
	"github.com/quillforge/editorhost/internal/engine"
)

// bundledPlugin is the implementation behind every plugin shipped in the
// standard bundle. The engine only needs the name; behaviour lives engine-side.
type bundledPlugin struct {
	name string
}

func (p bundledPlugin) Name() string { return p.name }

// NamedPlugin returns a plugin value carrying just a name. Used by the
// bundled registry and by tests standing in for premium or custom plugins.
func NamedPlugin(name string) engine.Plugin {
	return bundledPlugin{name: name}
}

var (
	bundledOnce     sync.Once
	bundledRegistry map[string]engine.PluginFactory
)

// BundledRegistry returns the static in-process registry of standard-bundle
// plugin factories. Built once from the catalog; plugins marked unavailable
// get no factory, which is what makes them unavailable.
func BundledRegistry() map[string]engine.PluginFactory {
	bundledOnce.Do(func() {
		bundledRegistry = make(map[string]engine.PluginFactory)
		for _, name := range catalog.Bundled().Names() {
			entry, _ := catalog.Bundled().Lookup(name)
			if entry.Unavailable {
				continue
			}
			n := name
			bundledRegistry[n] = func() engine.Plugin { return NamedPlugin(n) }
		}
	})
	return bundledRegistry
}

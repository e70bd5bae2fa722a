package plugin

import (
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/quillforge/editorhost/internal/engine"
)

// CustomRegistry is the one runtime-mutable plugin table: hosts explicitly
// register factories under a name before editor creation. It is a dedicated
// store rather than ambient global state so registration stays visible.
type CustomRegistry struct {
	factories cmap.ConcurrentMap[string, engine.PluginFactory]
}

// NewCustomRegistry returns an empty registry.
func NewCustomRegistry() *CustomRegistry {
	return &CustomRegistry{factories: cmap.New[engine.PluginFactory]()}
}

// Register stores a factory under the given plugin name, replacing any
// earlier registration.
func (r *CustomRegistry) Register(name string, factory engine.PluginFactory) {
	if name == "" || factory == nil {
		return
	}
	r.factories.Set(name, factory)
}

// Unregister removes the named factory.
func (r *CustomRegistry) Unregister(name string) {
	r.factories.Remove(name)
}

// Lookup returns the factory registered under name.
func (r *CustomRegistry) Lookup(name string) (engine.PluginFactory, bool) {
	return r.factories.Get(name)
}

// Names returns all registered plugin names.
func (r *CustomRegistry) Names() []string {
	return r.factories.Keys()
}

var globalCustom = NewCustomRegistry()

// GlobalCustomRegistry returns the process-wide registry hosts use to
// pre-register custom plugins.
func GlobalCustomRegistry() *CustomRegistry {
	return globalCustom
}

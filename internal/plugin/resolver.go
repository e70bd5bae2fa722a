package plugin

import (
	"fmt"

	"github.com/quillforge/editorhost/internal/catalog"
	"github.com/quillforge/editorhost/internal/config"
	"github.com/quillforge/editorhost/internal/engine"
	"github.com/quillforge/editorhost/internal/logger"
	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

// PremiumImporter loads the premium module once and returns its plugin
// factories by name. Mirrors a dynamic import: either the whole module loads
// or none of it does.
type PremiumImporter func() (map[string]engine.PluginFactory, error)

// ImportFunc dynamically loads one custom plugin from an import path.
type ImportFunc func(importPath string) (engine.PluginFactory, error)

// Result carries the loadable plugins plus every non-fatal load error.
// Load errors are reported to the host as warnings after editor creation;
// they never abort creation.
type Result struct {
	Plugins    []engine.Plugin
	LoadErrors []*editorhosterrors.PluginLoadError
}

// Resolver turns plugin specs into loadable plugin values.
type Resolver struct {
	catalog *catalog.Catalog
	bundled map[string]engine.PluginFactory
	custom  *CustomRegistry
	premium PremiumImporter
	importi ImportFunc
	log     *logger.Logger
}

// NewResolver wires a resolver over the given registries. Nil premium or
// import functions mean those plugin kinds always fail to load (recorded,
// not thrown).
func NewResolver(cat *catalog.Catalog, custom *CustomRegistry, premium PremiumImporter, importFn ImportFunc, log *logger.Logger) *Resolver {
	if cat == nil {
		cat = catalog.Bundled()
	}
	if custom == nil {
		custom = GlobalCustomRegistry()
	}
	return &Resolver{
		catalog: cat,
		bundled: BundledRegistry(),
		custom:  custom,
		premium: premium,
		importi: importFn,
		log:     log.WithComponent("plugin-resolver"),
	}
}

// Catalog exposes the resolver's catalog for dependency resolution.
func (r *Resolver) Catalog() *catalog.Catalog {
	return r.catalog
}

// Resolve filters the specs and loads each surviving plugin. Every failure is
// collected; none is fatal.
func (r *Resolver) Resolve(specs []config.PluginSpec, opts Options) Result {
	kept, dropped := FilterConflicting(specs, r.catalog, opts, r.log)

	res := Result{LoadErrors: dropped}

	var premiumSpecs []config.PluginSpec
	for _, spec := range kept {
		switch {
		case spec.Premium:
			premiumSpecs = append(premiumSpecs, spec)
		case spec.ImportPath != "":
			r.loadCustom(spec, &res)
		default:
			r.loadBundled(spec, &res)
		}
	}

	if len(premiumSpecs) > 0 {
		r.loadPremium(premiumSpecs, &res)
	}

	return res
}

func (r *Resolver) loadBundled(spec config.PluginSpec, res *Result) {
	factory, ok := r.bundled[spec.Name]
	if !ok {
		r.log.WithFields(map[string]any{"plugin": spec.Name}).Warn("plugin not found in bundled registry, skipping")
		res.LoadErrors = append(res.LoadErrors, editorhosterrors.NewPluginLoadError(spec.Name, "not found in bundled registry", nil))
		return
	}
	res.Plugins = append(res.Plugins, factory())
}

// loadPremium performs one importer invocation for the whole batch. If the
// import fails, every premium plugin in the batch becomes a load error and
// the editor proceeds without them.
func (r *Resolver) loadPremium(specs []config.PluginSpec, res *Result) {
	if r.premium == nil {
		for _, spec := range specs {
			res.LoadErrors = append(res.LoadErrors, editorhosterrors.NewPluginLoadError(spec.Name, "premium module importer not configured", nil))
		}
		return
	}

	factories, err := r.premium()
	if err != nil {
		r.log.Error(err, "premium module import failed, continuing without premium plugins")
		for _, spec := range specs {
			res.LoadErrors = append(res.LoadErrors, editorhosterrors.NewPluginLoadError(spec.Name, "premium module import failed", err))
		}
		return
	}

	for _, spec := range specs {
		factory, ok := factories[spec.Name]
		if !ok {
			res.LoadErrors = append(res.LoadErrors, editorhosterrors.NewPluginLoadError(spec.Name, "not exported by the premium module", nil))
			continue
		}
		res.Plugins = append(res.Plugins, factory())
	}
}

// loadCustom consults the global registry first, then falls back to a
// dynamic import keyed by the spec's import path.
func (r *Resolver) loadCustom(spec config.PluginSpec, res *Result) {
	if factory, ok := r.custom.Lookup(spec.Name); ok {
		res.Plugins = append(res.Plugins, factory())
		return
	}

	if r.importi == nil {
		res.LoadErrors = append(res.LoadErrors, editorhosterrors.NewPluginLoadError(spec.Name, "custom plugin importer not configured", nil))
		return
	}

	factory, err := r.importi(spec.ImportPath)
	if err != nil {
		r.log.Error(err, fmt.Sprintf("custom plugin import failed for %s", spec.Name))
		res.LoadErrors = append(res.LoadErrors, editorhosterrors.NewPluginLoadError(spec.Name, fmt.Sprintf("import of %s failed", spec.ImportPath), err))
		return
	}
	res.Plugins = append(res.Plugins, factory())
}

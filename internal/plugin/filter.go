package plugin

import (
	"fmt"

	"github.com/quillforge/editorhost/internal/catalog"
	"github.com/quillforge/editorhost/internal/config"
	"github.com/quillforge/editorhost/internal/logger"
	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

// Options controls filtering and loading behaviour.
type Options struct {
	// AllowConfigRequired keeps plugins that need extra configuration.
	AllowConfigRequired bool
	// StrictLoading disables the unavailability and needs-configuration
	// filters; the caller takes responsibility. Mutual-exclusion filtering
	// still applies because two exclusive plugins corrupt the engine.
	StrictLoading bool
}

// FilterConflicting drops plugins that are unavailable, need missing
// configuration, or collide inside a mutual-exclusion group. Within a group
// the first plugin in input order wins. Dropped plugins come back as
// non-fatal load errors for post-creation reporting.
func FilterConflicting(specs []config.PluginSpec, cat *catalog.Catalog, opts Options, log *logger.Logger) ([]config.PluginSpec, []*editorhosterrors.PluginLoadError) {
	kept := make([]config.PluginSpec, 0, len(specs))
	var dropped []*editorhosterrors.PluginLoadError
	groupWinners := make(map[string]string)

	for _, spec := range specs {
		entry, known := cat.Lookup(spec.Name)

		if !opts.StrictLoading && known {
			if entry.Unavailable {
				log.WithFields(map[string]any{"plugin": spec.Name}).Trace("dropping plugin not present in the standard bundle")
				dropped = append(dropped, editorhosterrors.NewPluginLoadError(spec.Name, "not available in the standard bundle", nil))
				continue
			}
			if entry.RequiresConfig && !opts.AllowConfigRequired {
				log.WithFields(map[string]any{"plugin": spec.Name}).Warn("dropping plugin that requires extra configuration; set allow_config_required to keep it")
				dropped = append(dropped, editorhosterrors.NewPluginLoadError(spec.Name, "requires extra configuration to load safely", nil))
				continue
			}
		}

		if known && entry.ExclusionGroup != "" {
			if winner, taken := groupWinners[entry.ExclusionGroup]; taken {
				log.WithFields(map[string]any{
					"plugin":    spec.Name,
					"conflicts": winner,
				}).Warn("dropping plugin that is mutually exclusive with an earlier one")
				dropped = append(dropped, editorhosterrors.NewPluginLoadError(
					spec.Name,
					fmt.Sprintf("mutually exclusive with already-selected plugin %s", winner),
					nil,
				))
				continue
			}
			groupWinners[entry.ExclusionGroup] = spec.Name
		}

		kept = append(kept, spec)
	}

	return kept, dropped
}

// Package config defines the configuration surface the host application
// pushes into the editor element, plus validation and the engine JSON blob
// builder.
package config

import (
	"time"

	"github.com/quillforge/editorhost/internal/bridge"
	"github.com/quillforge/editorhost/internal/catalog"
)

// Default timeouts for the upload pipeline. The host default is strictly
// longer than the client default so a stalled upload times out on the client
// first and both ends agree about who reported the failure.
const (
	DefaultClientUploadTimeout = 5 * time.Minute
	DefaultHostUploadTimeout   = 6 * time.Minute
)

// PluginSpec names one plugin the host wants loaded.
type PluginSpec struct {
	Name       string `yaml:"name" validate:"required,min=1"`
	Premium    bool   `yaml:"premium,omitempty"`
	ImportPath string `yaml:"import_path,omitempty"`
}

// UploadSettings bounds the upload pipeline. A zero timeout disables that
// side's timeout entirely; an empty MIME allow-list allows everything.
type UploadSettings struct {
	MaxBytes         int64    `yaml:"max_bytes,omitempty" validate:"omitempty,min=0"`
	AllowedMIMETypes []string `yaml:"allowed_mime_types,omitempty"`
	ClientTimeoutMS  int64    `yaml:"client_timeout_ms,omitempty" validate:"min=0"`
	HostTimeoutMS    int64    `yaml:"host_timeout_ms,omitempty" validate:"min=0"`
}

// ClientTimeout returns the client-side timeout as a duration.
func (u UploadSettings) ClientTimeout() time.Duration {
	return time.Duration(u.ClientTimeoutMS) * time.Millisecond
}

// HostTimeout returns the host-side timeout as a duration.
func (u UploadSettings) HostTimeout() time.Duration {
	return time.Duration(u.HostTimeoutMS) * time.Millisecond
}

// Config is the full editor element configuration.
type Config struct {
	Language   string `yaml:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
	LicenseKey string `yaml:"license_key,omitempty"`

	Plugins          []PluginSpec   `yaml:"plugins,omitempty" validate:"omitempty,dive"`
	RemovedPlugins   []string       `yaml:"removed_plugins,omitempty"`
	Toolbar          []string       `yaml:"toolbar,omitempty"`
	ResolutionPolicy catalog.Policy `yaml:"resolution_policy,omitempty" validate:"omitempty,resolution_policy"`

	// AllowConfigRequired opts in to plugins that need extra configuration.
	AllowConfigRequired bool `yaml:"allow_config_required,omitempty"`
	// StrictLoading disables the unavailability and needs-configuration
	// filters. Mutual-exclusion filtering is never disabled.
	StrictLoading bool `yaml:"strict_loading,omitempty"`

	InitialData    string `yaml:"initial_data,omitempty"`
	ReadOnly       bool   `yaml:"read_only,omitempty"`
	Width          string `yaml:"width,omitempty"`
	Height         string `yaml:"height,omitempty"`
	ToolbarVisible bool   `yaml:"toolbar_visible,omitempty"`
	Theme          string `yaml:"theme,omitempty" validate:"omitempty,oneof=light dark"`

	// AutosaveIntervalMS of zero disables autosave.
	AutosaveIntervalMS int64               `yaml:"autosave_interval_ms,omitempty" validate:"omitempty,min=100,max=60000"`
	FallbackMode       bridge.FallbackMode `yaml:"fallback_mode,omitempty" validate:"omitempty,oneof=textarea readonly error hidden"`

	Upload UploadSettings `yaml:"upload,omitempty"`

	// Table styling is configured separately per concern. Earlier revisions
	// assigned one source value to both keys; they are independent inputs.
	TableProperties     map[string]any `yaml:"table_properties,omitempty"`
	TableCellProperties map[string]any `yaml:"table_cell_properties,omitempty"`
}

// Default returns a Config carrying the documented defaults. Parsing YAML
// over it leaves absent keys at their defaults.
func Default() Config {
	return Config{
		Language:         "en",
		ResolutionPolicy: catalog.PolicyAutoResolve,
		ToolbarVisible:   true,
		Theme:            "light",
		FallbackMode:     bridge.FallbackTextarea,
		Upload: UploadSettings{
			ClientTimeoutMS: DefaultClientUploadTimeout.Milliseconds(),
			HostTimeoutMS:   DefaultHostUploadTimeout.Milliseconds(),
		},
	}
}

// PluginNames returns the requested plugin names in input order.
func (c *Config) PluginNames() []string {
	names := make([]string, 0, len(c.Plugins))
	for _, spec := range c.Plugins {
		names = append(names, spec.Name)
	}
	return names
}

// ResolvePluginNames completes the requested set under the configured policy
// and then subtracts the explicitly removed plugins. The subtraction happens
// after resolution: removing a plugin another plugin depends on is the
// host's own responsibility.
func (c *Config) ResolvePluginNames(cat *catalog.Catalog) ([]string, error) {
	resolved, err := cat.Resolve(c.PluginNames(), c.ResolutionPolicy)
	if err != nil {
		return nil, err
	}

	if len(c.RemovedPlugins) == 0 {
		return resolved, nil
	}

	removed := make(map[string]struct{}, len(c.RemovedPlugins))
	for _, name := range c.RemovedPlugins {
		removed[name] = struct{}{}
	}
	kept := resolved[:0]
	for _, name := range resolved {
		if _, drop := removed[name]; !drop {
			kept = append(kept, name)
		}
	}
	return kept, nil
}

// ResolvePluginSpecs completes the requested specs the same way: the
// post-resolution, post-subtraction name set, with the host's original spec
// (premium flag, import path) kept for every requested plugin and a plain
// spec minted for each dependency the policy injected. Requested plugins
// stay in input order so exclusion groups keep their first-wins semantics;
// injected dependencies follow.
func (c *Config) ResolvePluginSpecs(cat *catalog.Catalog) ([]PluginSpec, error) {
	resolved, err := c.ResolvePluginNames(cat)
	if err != nil {
		return nil, err
	}

	inResolved := make(map[string]struct{}, len(resolved))
	for _, name := range resolved {
		inResolved[name] = struct{}{}
	}

	specs := make([]PluginSpec, 0, len(resolved))
	seen := make(map[string]struct{}, len(resolved))
	for _, spec := range c.Plugins {
		if _, ok := inResolved[spec.Name]; !ok {
			continue
		}
		if _, dup := seen[spec.Name]; dup {
			continue
		}
		seen[spec.Name] = struct{}{}
		specs = append(specs, spec)
	}
	for _, name := range resolved {
		if _, ok := seen[name]; ok {
			continue
		}
		specs = append(specs, PluginSpec{Name: name})
	}
	return specs, nil
}

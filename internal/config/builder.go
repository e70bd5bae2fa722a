package config

import (
	"encoding/json"
)

// engineConfig is the JSON shape the editing engine consumes.
type engineConfig struct {
	Language   string   `json:"language,omitempty"`
	LicenseKey string   `json:"licenseKey,omitempty"`
	Plugins    []string `json:"plugins,omitempty"`
	Toolbar    []string `json:"toolbar,omitempty"`

	Table    *engineTableConfig    `json:"table,omitempty"`
	Autosave *engineAutosaveConfig `json:"autosave,omitempty"`
}

type engineTableConfig struct {
	TableProperties     map[string]any `json:"tableProperties,omitempty"`
	TableCellProperties map[string]any `json:"tableCellProperties,omitempty"`
}

type engineAutosaveConfig struct {
	WaitingTimeMS int64 `json:"waitingTime"`
}

// BuildEngineConfig marshals the engine's JSON configuration blob for the
// given resolved plugin set.
func BuildEngineConfig(cfg *Config, resolvedPlugins []string) (json.RawMessage, error) {
	out := engineConfig{
		Language:   cfg.Language,
		LicenseKey: cfg.LicenseKey,
		Plugins:    resolvedPlugins,
		Toolbar:    cfg.Toolbar,
	}

	if len(cfg.TableProperties) > 0 || len(cfg.TableCellProperties) > 0 {
		out.Table = &engineTableConfig{
			TableProperties:     cfg.TableProperties,
			TableCellProperties: cfg.TableCellProperties,
		}
	}

	if cfg.AutosaveIntervalMS > 0 {
		out.Autosave = &engineAutosaveConfig{WaitingTimeMS: cfg.AutosaveIntervalMS}
	}

	return json.Marshal(out)
}

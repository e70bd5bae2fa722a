// Package engine declares the contract of the embedded rich-text editing
// engine. The engine itself is an external collaborator; this library only
// drives it through these interfaces.
package engine

import (
	"context"
	"encoding/json"
)

// Plugin is a loadable editor capability instantiated by the engine at
// creation time.
type Plugin interface {
	Name() string
}

// PluginFactory constructs a fresh plugin value for one engine instance.
type PluginFactory func() Plugin

// File is a local file handed to an upload adapter.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// FileLoader yields the file behind one upload request. Loading may suspend,
// so it takes a context.
type FileLoader interface {
	File(ctx context.Context) (*File, error)
}

// UploadResult is the shape the engine expects back from a finished upload.
type UploadResult struct {
	Default string `json:"default"`
}

// UploadAdapter runs one file transfer at a time between the engine and the
// host application.
type UploadAdapter interface {
	Upload(ctx context.Context) (*UploadResult, error)
	Abort()
}

// UploadAdapterFactory builds an adapter bound to one file loader. The engine
// calls it once per file.
type UploadAdapterFactory func(loader FileLoader) UploadAdapter

// Config is the configuration handed to the engine at creation time.
type Config struct {
	Language             string
	LicenseKey           string
	Plugins              []Plugin
	Toolbar              []string
	InitialData          string
	UploadAdapterFactory UploadAdapterFactory
	Raw                  json.RawMessage
}

// Engine creates editor instances. Creation may suspend on asset loading.
type Engine interface {
	Create(ctx context.Context, mount string, cfg Config) (Instance, error)
}

// Instance is one live editor. Exactly one exists per lifecycle controller;
// only the controller may touch it.
type Instance interface {
	GetData() string
	SetData(html string) error
	Destroy(ctx context.Context) error

	EnableReadOnly(lockID string)
	DisableReadOnly(lockID string)
	SetDimensions(width, height string)
	SetToolbarVisible(visible bool)
	SetTheme(theme string)

	// Listener registration returns an unsubscribe handle. Handles are
	// collected by the controller and drained on teardown.
	OnChange(fn func(oldHTML, newHTML string)) (remove func())
	OnFocus(fn func(focused bool)) (remove func())
	OnReadOnlyChange(fn func(readOnly bool)) (remove func())
}

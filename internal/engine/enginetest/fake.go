// Package enginetest provides an in-memory engine double for exercising the
// lifecycle controller and upload pipeline without a real editing engine.
package enginetest

import (
	"context"
	"sync"
	"time"

	"github.com/quillforge/editorhost/internal/engine"
)

// FakeEngine implements engine.Engine with scriptable failure and latency.
type FakeEngine struct {
	mu          sync.Mutex
	CreateErr   error
	CreateDelay time.Duration
	DestroyErr  error

	created    []*FakeInstance
	lastConfig engine.Config
}

// NewFakeEngine returns a FakeEngine with no scripted behaviour.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{}
}

// Create honours CreateDelay and CreateErr, then mints a new instance.
func (e *FakeEngine) Create(ctx context.Context, mount string, cfg engine.Config) (engine.Instance, error) {
	if e.CreateDelay > 0 {
		select {
		case <-time.After(e.CreateDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.CreateErr != nil {
		return nil, e.CreateErr
	}

	inst := &FakeInstance{
		mount:      mount,
		data:       cfg.InitialData,
		destroyErr: e.DestroyErr,
		listeners:  make(map[int]func(string, string)),
		roLocks:    make(map[string]struct{}),
	}
	e.created = append(e.created, inst)
	e.lastConfig = cfg
	return inst, nil
}

// CreateCount reports how many instances the engine has minted.
func (e *FakeEngine) CreateCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.created)
}

// LastConfig returns the config passed to the most recent Create call.
func (e *FakeEngine) LastConfig() engine.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastConfig
}

// LastInstance returns the most recently minted instance, or nil.
func (e *FakeEngine) LastInstance() *FakeInstance {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.created) == 0 {
		return nil
	}
	return e.created[len(e.created)-1]
}

// FakeInstance implements engine.Instance with observable state.
type FakeInstance struct {
	mu         sync.Mutex
	mount      string
	data       string
	width      string
	height     string
	theme      string
	toolbar    bool
	destroyed  int
	destroyErr error

	nextListenerID int
	listeners      map[int]func(oldHTML, newHTML string)
	focusFns       []func(bool)
	roFns          []func(bool)
	roLocks        map[string]struct{}
}

// GetData returns the current document HTML.
func (i *FakeInstance) GetData() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.data
}

// SetData replaces the document HTML without firing change listeners, the way
// a programmatic engine call would before the controller classifies it.
func (i *FakeInstance) SetData(html string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.data = html
	return nil
}

// Destroy records the teardown. Calling it twice is a test failure surfaced
// through DestroyCount.
func (i *FakeInstance) Destroy(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.destroyed++
	return i.destroyErr
}

// DestroyCount reports how many times Destroy ran.
func (i *FakeInstance) DestroyCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.destroyed
}

// EnableReadOnly adds a read-only lock.
func (i *FakeInstance) EnableReadOnly(lockID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.roLocks[lockID] = struct{}{}
}

// DisableReadOnly removes a read-only lock.
func (i *FakeInstance) DisableReadOnly(lockID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.roLocks, lockID)
}

// ReadOnly reports whether any lock is held.
func (i *FakeInstance) ReadOnly() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.roLocks) > 0
}

// SetDimensions records the desired size.
func (i *FakeInstance) SetDimensions(width, height string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.width, i.height = width, height
}

// Dimensions returns the recorded size.
func (i *FakeInstance) Dimensions() (string, string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.width, i.height
}

// SetToolbarVisible records toolbar visibility.
func (i *FakeInstance) SetToolbarVisible(visible bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.toolbar = visible
}

// SetTheme records the applied theme.
func (i *FakeInstance) SetTheme(theme string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.theme = theme
}

// Theme returns the applied theme.
func (i *FakeInstance) Theme() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.theme
}

// OnChange registers a change listener and returns its remove handle.
func (i *FakeInstance) OnChange(fn func(oldHTML, newHTML string)) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	id := i.nextListenerID
	i.nextListenerID++
	i.listeners[id] = fn
	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		delete(i.listeners, id)
	}
}

// OnFocus registers a focus listener.
func (i *FakeInstance) OnFocus(fn func(focused bool)) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.focusFns = append(i.focusFns, fn)
	return func() {}
}

// OnReadOnlyChange registers a read-only listener.
func (i *FakeInstance) OnReadOnlyChange(fn func(readOnly bool)) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.roFns = append(i.roFns, fn)
	return func() {}
}

// ListenerCount reports how many change listeners remain registered.
func (i *FakeInstance) ListenerCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.listeners)
}

// EmitChange simulates a user edit: updates the document and fires change
// listeners in registration order.
func (i *FakeInstance) EmitChange(newHTML string) {
	i.mu.Lock()
	old := i.data
	i.data = newHTML
	fns := make([]func(string, string), 0, len(i.listeners))
	for id := 0; id < i.nextListenerID; id++ {
		if fn, ok := i.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	i.mu.Unlock()

	for _, fn := range fns {
		fn(old, newHTML)
	}
}

var _ engine.Engine = (*FakeEngine)(nil)
var _ engine.Instance = (*FakeInstance)(nil)

// Package editor owns the editor instance lifecycle: a state machine over
// {absent, creating, ready, destroying} with at most one live instance, plus
// retained desired state, theming and fallback rendering.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillforge/editorhost/internal/bridge"
	"github.com/quillforge/editorhost/internal/config"
	"github.com/quillforge/editorhost/internal/engine"
	"github.com/quillforge/editorhost/internal/logger"
	"github.com/quillforge/editorhost/internal/metrics"
	"github.com/quillforge/editorhost/internal/plugin"
	"github.com/quillforge/editorhost/internal/upload"
	"github.com/quillforge/editorhost/pkg/diff"
	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

// State is the controller's lifecycle phase.
type State string

const (
	StateAbsent     State = "absent"
	StateCreating   State = "creating"
	StateReady      State = "ready"
	StateDestroying State = "destroying"
)

// ErrDetachedDuringCreate is returned when the element is detached while its
// editor is still being created; the creation aborts without installing.
var ErrDetachedDuringCreate = errors.New("element detached during editor creation")

// readOnlyLockID identifies the host's read-only lock on the instance.
const readOnlyLockID = "editorhost-host"

// operation is one in-flight create or destroy. Latecomers wait on done and
// observe the shared outcome instead of starting a second operation.
type operation struct {
	done chan struct{}
	err  error
}

func newOperation() *operation {
	return &operation{done: make(chan struct{})}
}

func (o *operation) finish(err error) {
	o.err = err
	close(o.done)
}

func (o *operation) wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// desiredState is what the host wants the editor to look like. Setters write
// here whether or not an instance exists; creation replays it.
type desiredState struct {
	data           string
	dataSet        bool
	readOnly       bool
	width          string
	height         string
	toolbarVisible bool
}

// Controller drives one editor element. All public methods are safe for
// concurrent use.
type Controller struct {
	engine   engine.Engine
	host     bridge.Host
	cfg      *config.Config
	resolver *plugin.Resolver
	themes   *ThemeManager
	fallback FallbackRenderer
	log      *logger.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	state      State
	attached   bool
	mount      string
	instance   engine.Instance
	instanceID string
	createOp   *operation
	destroyOp  *operation
	disposers  []func()
	uploads    *upload.Factory
	autosave   chan struct{}
	nextSource bridge.ChangeSource
	desired    desiredState
}

// NewController builds a controller around a validated config. The element
// starts detached with no instance.
func NewController(eng engine.Engine, host bridge.Host, cfg *config.Config, resolver *plugin.Resolver, log *logger.Logger, m *metrics.Metrics) *Controller {
	return &Controller{
		engine:     eng,
		host:       host,
		cfg:        cfg,
		resolver:   resolver,
		themes:     NewThemeManager(cfg.Theme),
		log:        log.WithComponent("editor-controller"),
		metrics:    m,
		state:      StateAbsent,
		nextSource: bridge.SourceUser,
		desired: desiredState{
			data:           cfg.InitialData,
			dataSet:        cfg.InitialData != "",
			readOnly:       cfg.ReadOnly,
			width:          cfg.Width,
			height:         cfg.Height,
			toolbarVisible: cfg.ToolbarVisible,
		},
	}
}

// State returns the controller's current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attach marks the element as connected to a live document at mount.
func (c *Controller) Attach(mount string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attached = true
	c.mount = mount
}

// Detach marks the element as disconnected. An in-flight creation observes
// this and aborts without installing its instance.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attached = false
}

// Create brings up the editor instance. Concurrent creates share the
// in-flight creation; a create during destroy waits for the destroy to
// finish first. Creating while ready is a no-op.
func (c *Controller) Create(ctx context.Context) error {
	for {
		c.mu.Lock()
		switch c.state {
		case StateReady:
			c.mu.Unlock()
			return nil

		case StateCreating:
			op := c.createOp
			c.mu.Unlock()
			return op.wait(ctx)

		case StateDestroying:
			op := c.destroyOp
			c.mu.Unlock()
			if err := op.wait(ctx); err != nil {
				return err
			}
			continue

		case StateAbsent:
			op := newOperation()
			c.createOp = op
			c.state = StateCreating
			mount := c.mount
			c.mu.Unlock()

			err := c.doCreate(ctx, mount)

			c.mu.Lock()
			c.createOp = nil
			if err != nil {
				c.state = StateAbsent
			} else {
				c.state = StateReady
			}
			c.mu.Unlock()

			op.finish(err)
			return err

		default:
			c.mu.Unlock()
			return fmt.Errorf("editor controller in unknown state %q", c.state)
		}
	}
}

// doCreate runs outside the controller lock; only installation re-acquires
// it. Any failure produces exactly one fatal error report plus fallback
// rendering and leaves no half-initialized instance behind.
func (c *Controller) doCreate(ctx context.Context, mount string) error {
	start := time.Now()
	instanceID := uuid.NewString()

	uploads := upload.NewFactory(instanceID, c.host, upload.ClientSettings(c.cfg.Upload), c.log, c.metrics)

	// Dependency resolution runs first so the loadable set handed to the
	// engine and the config blob describe the same plugins: the completed
	// closure minus the removed set, not the raw host request.
	resolvedSpecs, err := c.cfg.ResolvePluginSpecs(c.resolver.Catalog())
	if err != nil {
		return c.failCreate("plugin-resolution-failed", err)
	}

	res := c.resolver.Resolve(resolvedSpecs, plugin.Options{
		AllowConfigRequired: c.cfg.AllowConfigRequired,
		StrictLoading:       c.cfg.StrictLoading,
	})

	resolvedNames := make([]string, 0, len(resolvedSpecs))
	for _, spec := range resolvedSpecs {
		resolvedNames = append(resolvedNames, spec.Name)
	}

	raw, err := config.BuildEngineConfig(c.cfg, resolvedNames)
	if err != nil {
		return c.failCreate("engine-config-failed", err)
	}

	inst, err := c.engine.Create(ctx, mount, engine.Config{
		Language:             c.cfg.Language,
		LicenseKey:           c.cfg.LicenseKey,
		Plugins:              res.Plugins,
		Toolbar:              c.cfg.Toolbar,
		InitialData:          c.cfg.InitialData,
		UploadAdapterFactory: uploads.AdapterFactory(),
		Raw:                  raw,
	})
	if err != nil {
		return c.failCreate("editor-create-failed", err)
	}

	c.mu.Lock()
	if !c.attached {
		c.mu.Unlock()
		// Detached mid-creation: tear the orphan down without installing it.
		if derr := inst.Destroy(context.WithoutCancel(ctx)); derr != nil {
			c.log.Error(derr, "failed to destroy orphaned editor instance")
		}
		return ErrDetachedDuringCreate
	}

	c.instance = inst
	c.instanceID = instanceID
	c.uploads = uploads
	c.disposers = c.wireListeners(inst)
	desired := c.desired
	c.mu.Unlock()

	c.applyDesired(inst, desired)
	c.themes.Apply(inst)
	c.startAutosave(inst)

	for _, loadErr := range res.LoadErrors {
		c.host.FireEditorError("plugin-load-failed", loadErr.Error(), editorhosterrors.SeverityWarning, true, "")
	}
	c.metrics.AddPluginLoadErrors(len(res.LoadErrors))

	elapsed := time.Since(start)
	c.metrics.ObserveCreation(true, elapsed)
	c.host.FireEditorReady(elapsed.Milliseconds())
	c.log.WithFields(map[string]any{
		"instance_id": instanceID,
		"init_ms":     elapsed.Milliseconds(),
		"plugins":     len(res.Plugins),
	}).Info("editor instance ready")
	return nil
}

// failCreate reports one fatal, non-recoverable error and renders fallback.
func (c *Controller) failCreate(code string, err error) error {
	c.metrics.ObserveCreation(false, 0)
	c.log.Error(err, "editor creation failed")
	c.host.FireEditorError(code, err.Error(), editorhosterrors.SeverityFatal, false, "")

	c.mu.Lock()
	mode := c.cfg.FallbackMode
	content := c.desired.data
	c.mu.Unlock()

	html, rerr := c.fallback.Render(mode, content, err.Error())
	if rerr != nil {
		c.log.Error(rerr, "fallback rendering failed")
	} else {
		c.host.SetEditorData(html)
	}
	c.host.FireFallback(mode, err.Error(), err)
	return editorhosterrors.NewEditorError(code, err.Error(), err)
}

// wireListeners registers the engine listeners and returns their disposers.
// Caller holds the lock.
func (c *Controller) wireListeners(inst engine.Instance) []func() {
	var disposers []func()

	disposers = append(disposers, inst.OnChange(func(oldHTML, newHTML string) {
		source := c.takeNextSource()
		c.host.SetEditorData(newHTML)
		c.host.FireContentChange(oldHTML, newHTML, source)
	}))

	disposers = append(disposers, inst.OnFocus(func(focused bool) {
		c.log.WithFields(map[string]any{"focused": focused}).Trace("editor focus changed")
	}))

	disposers = append(disposers, inst.OnReadOnlyChange(func(readOnly bool) {
		c.mu.Lock()
		c.desired.readOnly = readOnly
		c.mu.Unlock()
	}))

	return disposers
}

// applyDesired replays the retained desired state onto a fresh instance.
func (c *Controller) applyDesired(inst engine.Instance, d desiredState) {
	if d.dataSet && d.data != c.cfg.InitialData {
		if err := inst.SetData(d.data); err != nil {
			c.log.Error(err, "failed to apply retained content")
		}
	}
	if d.readOnly {
		inst.EnableReadOnly(readOnlyLockID)
	}
	if d.width != "" || d.height != "" {
		inst.SetDimensions(d.width, d.height)
	}
	inst.SetToolbarVisible(d.toolbarVisible)
}

// startAutosave runs the autosave ticker for this instance, if configured.
func (c *Controller) startAutosave(inst engine.Instance) {
	if c.cfg.AutosaveIntervalMS <= 0 {
		return
	}

	stop := make(chan struct{})
	c.mu.Lock()
	c.autosave = stop
	c.mu.Unlock()

	interval := time.Duration(c.cfg.AutosaveIntervalMS) * time.Millisecond
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var lastSaved string
		for {
			select {
			case <-ticker.C:
				data := inst.GetData()
				// Unchanged documents are not re-saved.
				if !diff.Changed(lastSaved, data) {
					continue
				}
				c.log.WithFields(map[string]any{"diff": diff.Documents(lastSaved, data)}).Trace("autosave snapshot")
				lastSaved = data
				c.host.SaveEditorData(data)
			case <-stop:
				return
			}
		}
	}()
}

// Destroy tears down the instance. Concurrent destroys share one outstanding
// completion; destroying an absent editor is a no-op. Teardown failures are
// logged and swallowed.
func (c *Controller) Destroy(ctx context.Context) error {
	for {
		c.mu.Lock()
		switch c.state {
		case StateAbsent:
			c.mu.Unlock()
			return nil

		case StateDestroying:
			op := c.destroyOp
			c.mu.Unlock()
			return op.wait(ctx)

		case StateCreating:
			op := c.createOp
			c.mu.Unlock()
			// The in-flight creation settles first; its outcome does not
			// matter, only that it is no longer in flight.
			_ = op.wait(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue

		case StateReady:
			op := newOperation()
			c.destroyOp = op
			c.state = StateDestroying

			// The public reference is nulled before anything else so no
			// caller can reach a dying instance.
			inst := c.instance
			c.instance = nil
			disposers := c.disposers
			c.disposers = nil
			uploads := c.uploads
			c.uploads = nil
			autosave := c.autosave
			c.autosave = nil
			attached := c.attached
			c.mu.Unlock()

			if autosave != nil {
				close(autosave)
			}
			if uploads != nil {
				uploads.Shutdown()
			}
			c.removeListeners(disposers)

			// Engine teardown happens off the caller's goroutine, and only
			// while the element is still attached to a live document. The
			// operation settles after teardown so the next create cannot
			// start against a half-destroyed engine.
			go func() {
				if attached && inst != nil {
					if err := inst.Destroy(context.WithoutCancel(ctx)); err != nil {
						c.log.Error(err, "editor teardown failed")
					}
				}
				c.mu.Lock()
				c.state = StateAbsent
				c.destroyOp = nil
				c.instanceID = ""
				c.mu.Unlock()
				op.finish(nil)
			}()

			return op.wait(ctx)

		default:
			c.mu.Unlock()
			return fmt.Errorf("editor controller in unknown state %q", c.state)
		}
	}
}

// removeListeners disposes every listener, each removal individually guarded
// so one misbehaving disposer cannot block the rest.
func (c *Controller) removeListeners(disposers []func()) {
	for _, dispose := range disposers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.WithFields(map[string]any{"panic": r}).Warn("listener removal panicked")
				}
			}()
			dispose()
		}()
	}
}

// SetData pushes content into a ready instance or retains it for the next
// creation. The resulting change event is classified as an API change.
func (c *Controller) SetData(html string) error {
	c.mu.Lock()
	c.desired.data = html
	c.desired.dataSet = true
	inst := c.instance
	if inst != nil {
		c.nextSource = bridge.SourceAPI
	}
	c.mu.Unlock()

	if inst == nil {
		return nil
	}
	return inst.SetData(html)
}

// GetData returns the live document, or the retained desired content when no
// instance exists.
func (c *Controller) GetData() string {
	c.mu.Lock()
	inst := c.instance
	retained := c.desired.data
	c.mu.Unlock()

	if inst == nil {
		return retained
	}
	return inst.GetData()
}

// SetReadOnly toggles the host's read-only lock.
func (c *Controller) SetReadOnly(readOnly bool) {
	c.mu.Lock()
	c.desired.readOnly = readOnly
	inst := c.instance
	c.mu.Unlock()

	if inst == nil {
		return
	}
	if readOnly {
		inst.EnableReadOnly(readOnlyLockID)
	} else {
		inst.DisableReadOnly(readOnlyLockID)
	}
}

// SetDimensions records and pushes the desired size.
func (c *Controller) SetDimensions(width, height string) {
	c.mu.Lock()
	c.desired.width = width
	c.desired.height = height
	inst := c.instance
	c.mu.Unlock()

	if inst != nil {
		inst.SetDimensions(width, height)
	}
}

// SetToolbarVisible records and pushes toolbar visibility.
func (c *Controller) SetToolbarVisible(visible bool) {
	c.mu.Lock()
	c.desired.toolbarVisible = visible
	inst := c.instance
	c.mu.Unlock()

	if inst != nil {
		inst.SetToolbarVisible(visible)
	}
}

// SetTheme records and pushes the theme.
func (c *Controller) SetTheme(theme string) {
	c.mu.Lock()
	inst := c.instance
	c.mu.Unlock()
	c.themes.Set(theme, inst)
}

// Theme returns the retained theme.
func (c *Controller) Theme() string {
	return c.themes.Current()
}

// AnnounceNextChangeSource classifies the next observed content change. The
// classification is consumed by that one change and resets to user input.
func (c *Controller) AnnounceNextChangeSource(source bridge.ChangeSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSource = source
}

func (c *Controller) takeNextSource() bridge.ChangeSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	source := c.nextSource
	c.nextSource = bridge.SourceUser
	return source
}

// Uploads exposes the live instance's upload factory, used by the host to
// resolve finished uploads. Nil when no instance exists.
func (c *Controller) Uploads() *upload.Factory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploads
}

package editor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillforge/editorhost/internal/bridge"
	"github.com/quillforge/editorhost/internal/bridge/bridgetest"
	"github.com/quillforge/editorhost/internal/config"
	"github.com/quillforge/editorhost/internal/engine"
	"github.com/quillforge/editorhost/internal/engine/enginetest"
	"github.com/quillforge/editorhost/internal/plugin"
	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

func loadableNames(plugins []engine.Plugin) []string {
	names := make([]string, 0, len(plugins))
	for _, p := range plugins {
		names = append(names, p.Name())
	}
	return names
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Plugins = []config.PluginSpec{
		{Name: "Essentials"},
		{Name: "Paragraph"},
		{Name: "Bold"},
	}
	return &cfg
}

func newTestController(t *testing.T, cfg *config.Config) (*Controller, *enginetest.FakeEngine, *bridgetest.Recorder) {
	t.Helper()
	eng := enginetest.NewFakeEngine()
	host := bridgetest.New()
	resolver := plugin.NewResolver(nil, plugin.NewCustomRegistry(), nil, nil, nil)
	ctrl := NewController(eng, host, cfg, resolver, nil, nil)
	ctrl.Attach("#editor")
	return ctrl, eng, host
}

func TestControllerCreateReachesReady(t *testing.T) {
	t.Parallel()

	ctrl, eng, host := newTestController(t, testConfig())
	require.Equal(t, StateAbsent, ctrl.State())

	require.NoError(t, ctrl.Create(context.Background()))
	require.Equal(t, StateReady, ctrl.State())
	require.Equal(t, 1, eng.CreateCount())
	require.Len(t, host.ReadyEvents(), 1)

	cfg := eng.LastConfig()
	require.NotNil(t, cfg.UploadAdapterFactory)
	require.Len(t, cfg.Plugins, 3)
}

func TestControllerResolvedDependenciesReachEngine(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Plugins = []config.PluginSpec{{Name: "ImageCaption"}}
	ctrl, eng, _ := newTestController(t, &cfg)

	require.NoError(t, ctrl.Create(context.Background()))

	// The loadable set handed to the engine carries the full dependency
	// closure, not just the requested plugin.
	loaded := loadableNames(eng.LastConfig().Plugins)
	require.ElementsMatch(t, []string{"Essentials", "Paragraph", "Image", "ImageCaption"}, loaded)

	// The config blob's plugin list names the same set.
	var blob struct {
		Plugins []string `json:"plugins"`
	}
	require.NoError(t, json.Unmarshal(eng.LastConfig().Raw, &blob))
	require.ElementsMatch(t, loaded, blob.Plugins)
}

func TestControllerRemovedPluginNeverLoaded(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Plugins = []config.PluginSpec{{Name: "Bold"}, {Name: "Italic"}}
	cfg.RemovedPlugins = []string{"Bold"}
	ctrl, eng, _ := newTestController(t, &cfg)

	require.NoError(t, ctrl.Create(context.Background()))

	loaded := loadableNames(eng.LastConfig().Plugins)
	require.NotContains(t, loaded, "Bold")
	require.Contains(t, loaded, "Italic")

	var blob struct {
		Plugins []string `json:"plugins"`
	}
	require.NoError(t, json.Unmarshal(eng.LastConfig().Raw, &blob))
	require.NotContains(t, blob.Plugins, "Bold")
}

func TestControllerCreateWhileReadyIsNoOp(t *testing.T) {
	t.Parallel()

	ctrl, eng, _ := newTestController(t, testConfig())
	require.NoError(t, ctrl.Create(context.Background()))
	require.NoError(t, ctrl.Create(context.Background()))
	require.Equal(t, 1, eng.CreateCount(), "a second create must not mint a second instance")
}

func TestControllerConcurrentCreatesShareOneCreation(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ctrl, eng, _ := newTestController(t, cfg)
	eng.CreateDelay = 50 * time.Millisecond

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ctrl.Create(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, eng.CreateCount())
}

func TestControllerCreateFailureFiresFatalErrorAndFallback(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.FallbackMode = bridge.FallbackError
	ctrl, eng, host := newTestController(t, cfg)
	eng.CreateErr = errors.New("engine exploded")

	err := ctrl.Create(context.Background())
	require.Error(t, err)

	var eerr *editorhosterrors.EditorError
	require.ErrorAs(t, err, &eerr)
	require.Equal(t, editorhosterrors.SeverityFatal, eerr.Severity)
	require.False(t, eerr.Recoverable)

	require.Equal(t, StateAbsent, ctrl.State())

	fatals := host.ErrorEvents()
	require.Len(t, fatals, 1)
	require.Equal(t, editorhosterrors.SeverityFatal, fatals[0].Severity)
	require.False(t, fatals[0].Recoverable)

	fallbacks := host.FallbackEvents()
	require.Len(t, fallbacks, 1)
	require.Equal(t, bridge.FallbackError, fallbacks[0].Mode)
	require.Contains(t, fallbacks[0].Reason, "engine exploded")
	require.Empty(t, host.ReadyEvents())
}

func TestControllerCreateFailureThenRetrySucceeds(t *testing.T) {
	t.Parallel()

	ctrl, eng, _ := newTestController(t, testConfig())
	eng.CreateErr = errors.New("transient")
	require.Error(t, ctrl.Create(context.Background()))

	eng.CreateErr = nil
	require.NoError(t, ctrl.Create(context.Background()))
	require.Equal(t, StateReady, ctrl.State())
}

func TestControllerDetachDuringCreationAbortsWithoutInstalling(t *testing.T) {
	t.Parallel()

	ctrl, eng, host := newTestController(t, testConfig())
	eng.CreateDelay = 50 * time.Millisecond

	errCh := make(chan error, 1)
	go func() {
		errCh <- ctrl.Create(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	ctrl.Detach()

	require.ErrorIs(t, <-errCh, ErrDetachedDuringCreate)
	require.Equal(t, StateAbsent, ctrl.State())
	require.Empty(t, host.ReadyEvents())

	// The orphaned instance was torn down, not leaked.
	require.Equal(t, 1, eng.LastInstance().DestroyCount())
}

func TestControllerDestroyIsIdempotent(t *testing.T) {
	t.Parallel()

	ctrl, eng, _ := newTestController(t, testConfig())
	require.NoError(t, ctrl.Create(context.Background()))
	inst := eng.LastInstance()

	require.NoError(t, ctrl.Destroy(context.Background()))
	require.NoError(t, ctrl.Destroy(context.Background()))
	require.Equal(t, StateAbsent, ctrl.State())
	require.Equal(t, 1, inst.DestroyCount(), "double destroy must tear down once")
	require.Zero(t, inst.ListenerCount(), "listeners must be removed on destroy")
}

func TestControllerConcurrentDestroysShareOneTeardown(t *testing.T) {
	t.Parallel()

	ctrl, eng, _ := newTestController(t, testConfig())
	require.NoError(t, ctrl.Create(context.Background()))
	inst := eng.LastInstance()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, ctrl.Destroy(context.Background()))
		}()
	}
	wg.Wait()

	require.Equal(t, 1, inst.DestroyCount())
}

func TestControllerDestroySkipsTeardownWhenDetached(t *testing.T) {
	t.Parallel()

	ctrl, eng, _ := newTestController(t, testConfig())
	require.NoError(t, ctrl.Create(context.Background()))
	inst := eng.LastInstance()

	ctrl.Detach()
	require.NoError(t, ctrl.Destroy(context.Background()))

	require.Equal(t, StateAbsent, ctrl.State())
	require.Zero(t, inst.DestroyCount(), "engine teardown is skipped for a detached element")
	require.Zero(t, inst.ListenerCount(), "listeners are still removed")
}

func TestControllerRecreateAfterDestroy(t *testing.T) {
	t.Parallel()

	ctrl, eng, _ := newTestController(t, testConfig())
	require.NoError(t, ctrl.Create(context.Background()))
	require.NoError(t, ctrl.Destroy(context.Background()))
	require.NoError(t, ctrl.Create(context.Background()))
	require.Equal(t, StateReady, ctrl.State())
	require.Equal(t, 2, eng.CreateCount())
}

func TestControllerContentChangeClassification(t *testing.T) {
	t.Parallel()

	ctrl, eng, host := newTestController(t, testConfig())
	require.NoError(t, ctrl.Create(context.Background()))
	inst := eng.LastInstance()

	inst.EmitChange("<p>typed</p>")

	ctrl.AnnounceNextChangeSource(bridge.SourcePaste)
	inst.EmitChange("<p>pasted</p>")

	// The classification is one-shot: the next change is user input again.
	inst.EmitChange("<p>typed more</p>")

	changes := host.ChangeEvents()
	require.Len(t, changes, 3)
	require.Equal(t, bridge.SourceUser, changes[0].Source)
	require.Equal(t, bridge.SourcePaste, changes[1].Source)
	require.Equal(t, bridge.SourceUser, changes[2].Source)

	// Every change also pushed the full document to the host.
	require.Equal(t, []string{"<p>typed</p>", "<p>pasted</p>", "<p>typed more</p>"}, host.SetData)
}

func TestControllerSetDataClassifiesAsAPI(t *testing.T) {
	t.Parallel()

	ctrl, eng, host := newTestController(t, testConfig())
	require.NoError(t, ctrl.Create(context.Background()))
	inst := eng.LastInstance()

	require.NoError(t, ctrl.SetData("<p>from server</p>"))
	// The engine applies programmatic data without firing listeners; the
	// next observed change carries the API classification.
	inst.EmitChange("<p>from server</p>")

	changes := host.ChangeEvents()
	require.Len(t, changes, 1)
	require.Equal(t, bridge.SourceAPI, changes[0].Source)
}

func TestControllerRetainsDesiredStateBeforeCreate(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ctrl, eng, _ := newTestController(t, cfg)

	require.NoError(t, ctrl.SetData("<p>early</p>"))
	ctrl.SetReadOnly(true)
	ctrl.SetDimensions("800px", "400px")
	ctrl.SetToolbarVisible(false)
	ctrl.SetTheme("dark")

	require.Equal(t, "<p>early</p>", ctrl.GetData(), "retained content is readable before creation")

	require.NoError(t, ctrl.Create(context.Background()))
	inst := eng.LastInstance()

	require.Equal(t, "<p>early</p>", inst.GetData())
	require.True(t, inst.ReadOnly())
	w, h := inst.Dimensions()
	require.Equal(t, "800px", w)
	require.Equal(t, "400px", h)
	require.Equal(t, "dark", inst.Theme())
}

func TestControllerSettersPushIntoReadyInstance(t *testing.T) {
	t.Parallel()

	ctrl, eng, _ := newTestController(t, testConfig())
	require.NoError(t, ctrl.Create(context.Background()))
	inst := eng.LastInstance()

	ctrl.SetReadOnly(true)
	require.True(t, inst.ReadOnly())
	ctrl.SetReadOnly(false)
	require.False(t, inst.ReadOnly())

	ctrl.SetTheme("dark")
	require.Equal(t, "dark", inst.Theme())
	require.Equal(t, "dark", ctrl.Theme())

	ctrl.SetDimensions("100%", "300px")
	w, h := inst.Dimensions()
	require.Equal(t, "100%", w)
	require.Equal(t, "300px", h)
}

func TestControllerAutosaveDeliversSnapshots(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.AutosaveIntervalMS = 100
	cfg.InitialData = "<p>draft</p>"
	ctrl, eng, host := newTestController(t, cfg)

	require.NoError(t, ctrl.Create(context.Background()))
	inst := eng.LastInstance()

	require.Eventually(t, func() bool {
		return len(host.SavedSnapshots()) >= 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "<p>draft</p>", host.SavedSnapshots()[0])

	// An unchanged document is not re-saved.
	time.Sleep(250 * time.Millisecond)
	require.Len(t, host.SavedSnapshots(), 1)

	require.NoError(t, ctrl.Destroy(context.Background()))
	inst.EmitChange("<p>edited after destroy</p>")
	count := len(host.SavedSnapshots())
	time.Sleep(250 * time.Millisecond)
	require.Equal(t, count, len(host.SavedSnapshots()), "autosave stops on destroy")
}

func TestControllerReportsPluginLoadWarnings(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Plugins = append(cfg.Plugins, config.PluginSpec{Name: "WProofreader"})
	ctrl, _, host := newTestController(t, cfg)

	require.NoError(t, ctrl.Create(context.Background()))
	require.Equal(t, StateReady, ctrl.State(), "load failures never abort creation")

	warnings := host.ErrorEvents()
	require.Len(t, warnings, 1)
	require.Equal(t, editorhosterrors.SeverityWarning, warnings[0].Severity)
	require.True(t, warnings[0].Recoverable)
}

func TestControllerUploadsAccessorTracksInstance(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t, testConfig())
	require.Nil(t, ctrl.Uploads())

	require.NoError(t, ctrl.Create(context.Background()))
	require.NotNil(t, ctrl.Uploads())

	require.NoError(t, ctrl.Destroy(context.Background()))
	require.Nil(t, ctrl.Uploads())
}

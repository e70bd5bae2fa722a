package upload

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/quillforge/editorhost/internal/bridge"
	"github.com/quillforge/editorhost/internal/engine"
	"github.com/quillforge/editorhost/internal/logger"
	"github.com/quillforge/editorhost/internal/metrics"
	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

// completion is the settlement of one pending upload.
type completion struct {
	url string
	err error
}

// Factory mints single-file adapters for one editor instance and owns the
// pending-completion table the host resolves into.
type Factory struct {
	editorID string
	counter  atomic.Uint64
	pending  cmap.ConcurrentMap[string, chan completion]
	host     bridge.Host
	settings Settings
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewFactory builds an adapter factory scoped to one editor instance id.
func NewFactory(editorID string, host bridge.Host, settings Settings, log *logger.Logger, m *metrics.Metrics) *Factory {
	return &Factory{
		editorID: editorID,
		pending:  cmap.New[chan completion](),
		host:     host,
		settings: settings,
		log:      log.WithComponent("upload-adapter"),
		metrics:  m,
	}
}

// AdapterFactory adapts the factory to the engine's extension-point shape.
func (f *Factory) AdapterFactory() engine.UploadAdapterFactory {
	return func(loader engine.FileLoader) engine.UploadAdapter {
		return f.New(loader)
	}
}

// New returns an adapter bound to one file loader.
func (f *Factory) New(loader engine.FileLoader) *Adapter {
	return &Adapter{factory: f, loader: loader}
}

// Resolve settles the pending upload with the given id: the host-to-client
// completion entry point. Returns false when no such upload is pending (it
// already timed out, was aborted, or never existed).
func (f *Factory) Resolve(id, url, errMessage string) bool {
	ch, ok := f.pending.Pop(id)
	if !ok {
		return false
	}
	if errMessage != "" {
		ch <- completion{err: editorhosterrors.NewUploadError(id, errMessage, nil)}
	} else {
		ch <- completion{url: url}
	}
	return true
}

// PendingCount reports how many uploads await host resolution.
func (f *Factory) PendingCount() int {
	return f.pending.Count()
}

// Shutdown settles every pending upload as cancelled and tells the host to
// abandon the server-side work. Called when the owning editor instance is
// destroyed.
func (f *Factory) Shutdown() {
	for _, id := range f.pending.Keys() {
		ch, ok := f.pending.Pop(id)
		if !ok {
			continue
		}
		ch <- completion{err: editorhosterrors.NewUploadError(id, ErrUploadCancelled.Error(), ErrUploadCancelled)}
		f.metrics.ObserveUpload(metrics.UploadCancelled)
		f.notifyHostCancel(id)
	}
}

// notifyHostCancel tells the host to abandon server-side work for an upload.
// Best effort with a couple of retries; failure only logs.
func (f *Factory) notifyHostCancel(id string) {
	op := func() error {
		return f.host.CancelUpload(context.Background(), id)
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)); err != nil {
		f.log.WithFields(map[string]any{"upload_id": id}).Error(err, "failed to notify host about upload cancellation")
	}
}

// Adapter runs one file transfer at a time. It is reusable: once an upload
// settles, the same adapter accepts the next Upload call.
type Adapter struct {
	factory *Factory
	loader  engine.FileLoader

	mu        sync.Mutex
	busy      bool
	currentID string
	cancel    context.CancelFunc
}

// Upload transfers the adapter's file to the host and waits for the result
// URL. Validation failures, timeouts and aborts each reject this one call;
// nothing escalates beyond it.
func (a *Adapter) Upload(ctx context.Context) (*engine.UploadResult, error) {
	f := a.factory

	a.mu.Lock()
	if a.busy {
		a.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	// The id is recorded before any suspension point so Abort always
	// observes a consistent id.
	id := fmt.Sprintf("%s-%d", f.editorID, f.counter.Add(1))
	attemptCtx, cancel := context.WithCancel(ctx)
	a.busy = true
	a.currentID = id
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		cancel()
		a.mu.Lock()
		a.busy = false
		if a.currentID == id {
			a.currentID = ""
			a.cancel = nil
		}
		a.mu.Unlock()
	}()

	file, err := a.loader.File(attemptCtx)
	if err != nil {
		return nil, editorhosterrors.NewUploadError(id, "failed to read file", err)
	}

	if err := validateFile(int64(len(file.Data)), file.MIMEType, f.settings); err != nil {
		f.metrics.ObserveUpload(metrics.UploadRejected)
		return nil, editorhosterrors.NewUploadError(id, err.Error(), err)
	}

	encoded, err := encodeBase64(attemptCtx, file.Data)
	if err != nil {
		return nil, editorhosterrors.NewUploadError(id, "encode interrupted", errOrCancelled(err))
	}

	// The pending entry must exist before the host sees the payload, or a
	// synchronous host resolution would find nothing to settle.
	ch := make(chan completion, 1)
	f.pending.Set(id, ch)

	if err := f.host.HandleFileUpload(attemptCtx, id, file.Name, file.MIMEType, encoded); err != nil {
		f.pending.Pop(id)
		return nil, editorhosterrors.NewUploadError(id, "host rejected upload", err)
	}

	var timeoutCh <-chan time.Time
	if f.settings.Timeout > 0 {
		timer := time.NewTimer(f.settings.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case c := <-ch:
		if c.err != nil {
			return nil, c.err
		}
		return &engine.UploadResult{Default: c.url}, nil

	case <-timeoutCh:
		f.pending.Pop(id)
		f.notifyHostCancel(id)
		f.metrics.ObserveUpload(metrics.UploadTimedOut)
		return nil, editorhosterrors.NewUploadError(id, ErrUploadTimeout.Error(), ErrUploadTimeout)

	case <-attemptCtx.Done():
		// Abort settles the pending entry itself; this branch covers the
		// caller's own context. Prefer the settlement when both raced.
		select {
		case c := <-ch:
			if c.err != nil {
				return nil, c.err
			}
			return &engine.UploadResult{Default: c.url}, nil
		default:
		}
		// The entry was still pending, so the host is still working on an
		// upload nobody is waiting for anymore.
		if _, ok := f.pending.Pop(id); ok {
			f.notifyHostCancel(id)
		}
		return nil, editorhosterrors.NewUploadError(id, ErrUploadCancelled.Error(), ErrUploadCancelled)
	}
}

// Abort cancels the in-flight upload, if any. Safe to call at any time, any
// number of times; it only ever touches the id captured at the instant of
// the call, so it can never cancel a successor upload.
func (a *Adapter) Abort() {
	f := a.factory

	a.mu.Lock()
	if !a.busy || a.currentID == "" {
		a.mu.Unlock()
		f.log.Debug("abort requested with no upload in progress")
		return
	}
	id := a.currentID
	cancel := a.cancel
	a.currentID = ""
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if ch, ok := f.pending.Pop(id); ok {
		ch <- completion{err: editorhosterrors.NewUploadError(id, ErrUploadCancelled.Error(), ErrUploadCancelled)}
	}

	f.metrics.ObserveUpload(metrics.UploadCancelled)
	f.notifyHostCancel(id)
}

func errOrCancelled(err error) error {
	if err == context.Canceled {
		return ErrUploadCancelled
	}
	return err
}

var _ engine.UploadAdapter = (*Adapter)(nil)

package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/quillforge/editorhost/internal/logger"
	"github.com/quillforge/editorhost/internal/metrics"
	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

// HandlerContext describes one decoded upload to the pluggable handler.
type HandlerContext struct {
	UploadID string
	FileName string
	MIMEType string
	Size     int64
	Data     []byte
}

// HandlerResult is what a successful handler run produces.
type HandlerResult struct {
	URL string
}

// Handler persists one upload and returns the URL the editor should embed.
// It runs on a pooled worker; the context carries the host timeout and is
// cancelled when the upload is cancelled or the manager shuts down.
type Handler func(ctx context.Context, hc HandlerContext) (*HandlerResult, error)

// Notifier delivers exactly one terminal outcome per upload id back to the
// client half. Empty errMsg means success.
type Notifier func(id, url, errMsg string)

// defaultPoolSize bounds concurrent handler executions per manager.
const defaultPoolSize = 8

// TaskManager is the host half of the upload pipeline. It decodes payloads,
// runs the configured handler on a worker pool, and guarantees each task
// produces at most one notification no matter how completion, failure,
// timeout and cancellation interleave.
type TaskManager struct {
	handler  Handler
	notifier Notifier
	settings Settings
	tasks    cmap.ConcurrentMap[string, *Task]
	pool     *ants.Pool
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewTaskManager builds a host-side manager. handler may be nil, in which
// case every upload fails fast with a configuration error.
func NewTaskManager(handler Handler, notifier Notifier, settings Settings, log *logger.Logger, m *metrics.Metrics) (*TaskManager, error) {
	pool, err := ants.NewPool(defaultPoolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload worker pool: %w", err)
	}
	return &TaskManager{
		handler:  handler,
		notifier: notifier,
		settings: settings,
		tasks:    cmap.New[*Task](),
		pool:     pool,
		log:      log.WithComponent("upload-manager"),
		metrics:  m,
	}, nil
}

// TaskCount reports how many tasks are currently tracked.
func (tm *TaskManager) TaskCount() int {
	return tm.tasks.Count()
}

// Task returns the tracked task for id, if any.
func (tm *TaskManager) Task(id string) (*Task, bool) {
	return tm.tasks.Get(id)
}

// HandleUpload accepts one upload from the client half. Fast failures (no
// handler, undecodable payload, validation) notify synchronously and never
// register a task; accepted uploads are registered before the worker starts
// so a racing CancelUpload always finds them.
func (tm *TaskManager) HandleUpload(ctx context.Context, id, fileName, mimeType, payload string) error {
	if tm.handler == nil {
		err := editorhosterrors.NewUploadError(id, "no upload handler configured", nil)
		tm.notify(id, "", err.Message)
		tm.metrics.ObserveUpload(metrics.UploadFailed)
		return err
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		uerr := editorhosterrors.NewUploadError(id, "malformed upload payload", err)
		tm.notify(id, "", uerr.Message)
		tm.metrics.ObserveUpload(metrics.UploadFailed)
		return uerr
	}

	if err := validateFile(int64(len(data)), mimeType, tm.settings); err != nil {
		uerr := editorhosterrors.NewUploadError(id, err.Error(), err)
		tm.notify(id, "", uerr.Message)
		tm.metrics.ObserveUpload(metrics.UploadRejected)
		return uerr
	}

	// The task outlives the request that delivered it, so the handler runs
	// under the manager's own lifetime, bounded only by the host timeout.
	base := context.WithoutCancel(ctx)
	var taskCtx context.Context
	var cancel context.CancelFunc
	if tm.settings.Timeout > 0 {
		taskCtx, cancel = context.WithTimeout(base, tm.settings.Timeout)
	} else {
		taskCtx, cancel = context.WithCancel(base)
	}

	task := newTask(id, fileName, mimeType, int64(len(data)), cancel)
	tm.tasks.Set(id, task)

	submitErr := tm.pool.Submit(func() {
		tm.run(taskCtx, task, data)
	})
	if submitErr != nil {
		tm.tasks.Remove(id)
		cancel()
		uerr := editorhosterrors.NewUploadError(id, "upload worker pool unavailable", submitErr)
		tm.notify(id, "", uerr.Message)
		tm.metrics.ObserveUpload(metrics.UploadFailed)
		return uerr
	}

	tm.log.WithFields(map[string]any{
		"upload_id": id,
		"file_name": fileName,
		"size":      len(data),
	}).Debug("upload task accepted")
	return nil
}

// run executes the handler for one task and settles it. Removal from the
// table happens unconditionally so the table never leaks settled tasks.
func (tm *TaskManager) run(ctx context.Context, task *Task, data []byte) {
	defer tm.tasks.Remove(task.ID)
	defer task.cancelWork()

	task.setInProgress()

	result, err := tm.invokeHandler(ctx, task, data)

	switch {
	case err == nil && result != nil:
		if task.markTerminal(StatusCompleted, result.URL, "") {
			tm.notify(task.ID, result.URL, "")
			tm.metrics.ObserveUpload(metrics.UploadCompleted)
			tm.metrics.AddUploadBytes(task.Size)
		}

	case err == nil:
		// A nil result with a nil error is a handler contract violation.
		if task.markTerminal(StatusFailed, "", "upload handler returned no result") {
			tm.notify(task.ID, "", "upload handler returned no result")
			tm.metrics.ObserveUpload(metrics.UploadFailed)
		}

	case ctx.Err() == context.DeadlineExceeded:
		if task.markTerminal(StatusFailed, "", ErrUploadTimeout.Error()) {
			tm.notify(task.ID, "", ErrUploadTimeout.Error())
			tm.metrics.ObserveUpload(metrics.UploadTimedOut)
			tm.log.WithFields(map[string]any{"upload_id": task.ID}).Warn("upload handler exceeded host timeout")
		}

	case ctx.Err() == context.Canceled:
		// CancelUpload already settled and notified; nothing to do unless
		// the handler returned an error before observing the cancellation.
		if task.markTerminal(StatusCancelled, "", ErrUploadCancelled.Error()) {
			tm.notify(task.ID, "", ErrUploadCancelled.Error())
			tm.metrics.ObserveUpload(metrics.UploadCancelled)
		}

	default:
		if task.markTerminal(StatusFailed, "", err.Error()) {
			tm.notify(task.ID, "", err.Error())
			tm.metrics.ObserveUpload(metrics.UploadFailed)
			tm.log.WithFields(map[string]any{"upload_id": task.ID}).Error(err, "upload handler failed")
		}
	}
}

// invokeHandler shields the manager from a panicking handler.
func (tm *TaskManager) invokeHandler(ctx context.Context, task *Task, data []byte) (result *HandlerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("upload handler panic: %v", r)
		}
	}()
	return tm.handler(ctx, HandlerContext{
		UploadID: task.ID,
		FileName: task.FileName,
		MIMEType: task.MIMEType,
		Size:     task.Size,
		Data:     data,
	})
}

// CancelUpload cancels a tracked upload. Returns false when the id is
// unknown or the task already reached a terminal state; in that case the
// earlier outcome stands and no second notification is sent.
func (tm *TaskManager) CancelUpload(id string) bool {
	task, ok := tm.tasks.Get(id)
	if !ok {
		return false
	}
	if !task.markTerminal(StatusCancelled, "", ErrUploadCancelled.Error()) {
		return false
	}
	task.cancelWork()
	tm.tasks.Remove(id)
	tm.notify(id, "", ErrUploadCancelled.Error())
	tm.metrics.ObserveUpload(metrics.UploadCancelled)
	tm.log.WithFields(map[string]any{"upload_id": id}).Debug("upload cancelled")
	return true
}

// Cleanup cancels every tracked task. The id set is snapshotted first so
// cancellation never mutates the table mid-iteration. Used when the owning
// editor instance is destroyed so no orphaned handler keeps running.
func (tm *TaskManager) Cleanup() {
	for _, id := range tm.tasks.Keys() {
		tm.CancelUpload(id)
	}
}

// Close cancels outstanding work and releases the worker pool.
func (tm *TaskManager) Close() {
	tm.Cleanup()
	tm.pool.Release()
}

func (tm *TaskManager) notify(id, url, errMsg string) {
	if tm.notifier == nil {
		return
	}
	tm.notifier(id, url, errMsg)
}

// Stale returns tracked tasks older than maxAge. Diagnostic helper for hosts
// that want to surface stuck uploads.
func (tm *TaskManager) Stale(maxAge time.Duration) []*Task {
	cutoff := time.Now().Add(-maxAge)
	var stale []*Task
	for _, task := range tm.tasks.Items() {
		if task.CreatedAt.Before(cutoff) {
			stale = append(stale, task)
		}
	}
	return stale
}

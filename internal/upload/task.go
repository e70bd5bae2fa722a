package upload

import (
	"context"
	"sync"
	"time"
)

// Status is the lifecycle of one upload task. Terminal states are final.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Task is the host-side bookkeeping record for one file transfer attempt.
// Owned exclusively by the TaskManager that created it.
type Task struct {
	ID        string
	FileName  string
	MIMEType  string
	Size      int64
	CreatedAt time.Time

	mu        sync.Mutex
	status    Status
	resultURL string
	errMsg    string
	notified  bool
	cancel    context.CancelFunc
}

func newTask(id, fileName, mimeType string, size int64, cancel context.CancelFunc) *Task {
	return &Task{
		ID:        id,
		FileName:  fileName,
		MIMEType:  mimeType,
		Size:      size,
		CreatedAt: time.Now(),
		status:    StatusPending,
		cancel:    cancel,
	}
}

// Status returns the task's current status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// ResultURL returns the result URL set on success.
func (t *Task) ResultURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resultURL
}

// ErrorMessage returns the error set on failure or cancellation.
func (t *Task) ErrorMessage() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errMsg
}

func (t *Task) setInProgress() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusPending {
		t.status = StatusInProgress
	}
}

// markTerminal performs the checked-and-set of the notified flag under the
// per-task lock. It returns true exactly once: a cancellation racing a late
// completion can never both win.
func (t *Task) markTerminal(status Status, url, errMsg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.notified {
		return false
	}
	t.notified = true
	t.status = status
	t.resultURL = url
	t.errMsg = errMsg
	return true
}

// cancelWork cancels the underlying handler operation, if still running.
func (t *Task) cancelWork() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Package bridgetest records bridge traffic for assertions in tests.
package bridgetest

import (
	"context"
	"sync"

	"github.com/quillforge/editorhost/internal/bridge"
	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

// ErrorEvent is one captured FireEditorError call.
type ErrorEvent struct {
	Code        string
	Message     string
	Severity    editorhosterrors.Severity
	Recoverable bool
	Stack       string
}

// ChangeEvent is one captured FireContentChange call.
type ChangeEvent struct {
	Old    string
	New    string
	Source bridge.ChangeSource
}

// FallbackEvent is one captured FireFallback call.
type FallbackEvent struct {
	Mode   bridge.FallbackMode
	Reason string
	Err    error
}

// UploadCall is one captured HandleFileUpload call.
type UploadCall struct {
	ID       string
	FileName string
	MIMEType string
	Base64   string
}

// Recorder implements bridge.Host and keeps every event for inspection.
type Recorder struct {
	mu sync.Mutex

	SetData    []string
	Saved      []string
	ReadyMS    []int64
	Errors     []ErrorEvent
	Changes    []ChangeEvent
	Fallbacks  []FallbackEvent
	Uploads    []UploadCall
	Cancels    []string
	UploadErr  error
	CancelErr  error
	OnUpload   func(call UploadCall)
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SetEditorData(html string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SetData = append(r.SetData, html)
}

func (r *Recorder) SaveEditorData(html string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Saved = append(r.Saved, html)
}

func (r *Recorder) FireEditorReady(initMS int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReadyMS = append(r.ReadyMS, initMS)
}

func (r *Recorder) FireEditorError(code, message string, severity editorhosterrors.Severity, recoverable bool, stack string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, ErrorEvent{Code: code, Message: message, Severity: severity, Recoverable: recoverable, Stack: stack})
}

func (r *Recorder) FireContentChange(oldHTML, newHTML string, source bridge.ChangeSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Changes = append(r.Changes, ChangeEvent{Old: oldHTML, New: newHTML, Source: source})
}

func (r *Recorder) FireFallback(mode bridge.FallbackMode, reason string, originalErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Fallbacks = append(r.Fallbacks, FallbackEvent{Mode: mode, Reason: reason, Err: originalErr})
}

func (r *Recorder) HandleFileUpload(ctx context.Context, id, fileName, mimeType, base64Data string) error {
	r.mu.Lock()
	call := UploadCall{ID: id, FileName: fileName, MIMEType: mimeType, Base64: base64Data}
	r.Uploads = append(r.Uploads, call)
	hook := r.OnUpload
	err := r.UploadErr
	r.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return err
}

func (r *Recorder) CancelUpload(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cancels = append(r.Cancels, id)
	return r.CancelErr
}

// Snapshot helpers below copy under the lock so tests can assert without
// racing library goroutines.

// ErrorEvents returns a copy of captured errors.
func (r *Recorder) ErrorEvents() []ErrorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ErrorEvent(nil), r.Errors...)
}

// ChangeEvents returns a copy of captured content changes.
func (r *Recorder) ChangeEvents() []ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ChangeEvent(nil), r.Changes...)
}

// FallbackEvents returns a copy of captured fallback events.
func (r *Recorder) FallbackEvents() []FallbackEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FallbackEvent(nil), r.Fallbacks...)
}

// UploadCalls returns a copy of captured upload payloads.
func (r *Recorder) UploadCalls() []UploadCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]UploadCall(nil), r.Uploads...)
}

// CancelledIDs returns a copy of captured cancel requests.
func (r *Recorder) CancelledIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Cancels...)
}

// ReadyEvents returns a copy of captured ready timings.
func (r *Recorder) ReadyEvents() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.ReadyMS...)
}

// SavedSnapshots returns a copy of captured autosave payloads.
func (r *Recorder) SavedSnapshots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Saved...)
}

var _ bridge.Host = (*Recorder)(nil)

// Package bridge declares the host-application side of the editor element.
// The bridge is an external collaborator: the library calls out through Host
// and the host calls back through the upload resolver installed by the
// adapter factory.
package bridge

import (
	"context"

	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

// ChangeSource classifies what caused a content change. The classification is
// a one-shot annotation on the next observed change.
type ChangeSource string

const (
	SourceUser          ChangeSource = "user"
	SourceAPI           ChangeSource = "api"
	SourceUndoRedo      ChangeSource = "undo_redo"
	SourcePaste         ChangeSource = "paste"
	SourceCollaboration ChangeSource = "collaboration"
)

// FallbackMode selects the degraded rendering used when the editor cannot be
// created.
type FallbackMode string

const (
	FallbackTextarea FallbackMode = "textarea"
	FallbackReadOnly FallbackMode = "readonly"
	FallbackError    FallbackMode = "error"
	FallbackHidden   FallbackMode = "hidden"
)

// Host receives editor events and upload payloads. Implementations live in
// the host application; every method must tolerate being called from library
// goroutines.
type Host interface {
	// SetEditorData pushes the full document to the host on content change.
	SetEditorData(html string)

	// SaveEditorData delivers an autosave snapshot.
	SaveEditorData(html string)

	// FireEditorReady reports successful creation with the initialization
	// time in milliseconds.
	FireEditorReady(initMS int64)

	// FireEditorError reports a creation failure or a post-creation warning.
	FireEditorError(code, message string, severity editorhosterrors.Severity, recoverable bool, stack string)

	// FireContentChange reports one content change with its cause.
	FireContentChange(oldHTML, newHTML string, source ChangeSource)

	// FireFallback reports that the controller entered fallback rendering.
	FireFallback(mode FallbackMode, reason string, originalErr error)

	// HandleFileUpload receives one encoded file from the client adapter.
	HandleFileUpload(ctx context.Context, id, fileName, mimeType, base64Data string) error

	// CancelUpload asks the host to abandon server-side work for an upload.
	// Best effort; callers tolerate errors.
	CancelUpload(ctx context.Context, id string) error
}

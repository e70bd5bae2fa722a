package errors

import (
	"fmt"
)

// Severity classifies how a reported editor error should be treated by the
// host application.
type Severity string

const (
	// SeverityFatal marks unrecoverable failures such as engine creation errors.
	SeverityFatal Severity = "fatal"
	// SeverityWarning marks recoverable issues the editor proceeds without.
	SeverityWarning Severity = "warning"
)

// EditorError reports a failure in the editor lifecycle. Fatal errors trigger
// fallback rendering; warnings are informational.
type EditorError struct {
	Code        string
	Message     string
	Severity    Severity
	Recoverable bool
	Err         error
}

// NewEditorError constructs a fatal, non-recoverable EditorError.
func NewEditorError(code, message string, err error) error {
	return &EditorError{
		Code:        code,
		Message:     message,
		Severity:    SeverityFatal,
		Recoverable: false,
		Err:         err,
	}
}

func (e *EditorError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("editor error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("editor error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *EditorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PluginLoadError records one plugin that could not be loaded. Load errors
// are collected and reported as warnings after editor creation; they never
// abort creation.
type PluginLoadError struct {
	Plugin string
	Reason string
	Err    error
}

// NewPluginLoadError constructs a PluginLoadError for the named plugin.
func NewPluginLoadError(plugin, reason string, err error) *PluginLoadError {
	return &PluginLoadError{Plugin: plugin, Reason: reason, Err: err}
}

func (e *PluginLoadError) Error() string {
	if e == nil {
		return ""
	}
	if e.Reason != "" {
		return fmt.Sprintf("plugin load error [%s]: %s", e.Plugin, e.Reason)
	}
	return fmt.Sprintf("plugin load error [%s]: %v", e.Plugin, e.Err)
}

// Unwrap exposes the underlying error.
func (e *PluginLoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UploadError represents a per-operation upload failure. It resolves exactly
// one pending upload and is never escalated to a fatal error.
type UploadError struct {
	UploadID string
	Message  string
	Err      error
}

// NewUploadError constructs an UploadError scoped to the given upload id.
func NewUploadError(uploadID, message string, err error) *UploadError {
	return &UploadError{UploadID: uploadID, Message: message, Err: err}
}

func (e *UploadError) Error() string {
	if e == nil {
		return ""
	}
	if e.UploadID != "" {
		return fmt.Sprintf("upload error [%s]: %s", e.UploadID, e.Message)
	}
	return fmt.Sprintf("upload error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *UploadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

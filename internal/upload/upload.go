// Package upload implements both halves of the file-upload pipeline: the
// client-side adapter handed to the engine and the host-side task manager
// that runs the pluggable upload handler. The two halves share one protocol:
// id, file name, MIME type and a base64 payload travel host-ward; a result
// URL or error message travels back.
package upload

import (
	"errors"
	"fmt"
	"time"

	"github.com/quillforge/editorhost/internal/config"
)

// Sentinel errors surfaced by upload validation and settlement.
var (
	ErrUploadInProgress = errors.New("upload already in progress")
	ErrEmptyFile        = errors.New("cannot upload empty file")
	ErrFileTooLarge     = errors.New("file exceeds maximum upload size")
	ErrMIMENotAllowed   = errors.New("file type is not allowed")
	ErrUploadTimeout    = errors.New("upload timed out")
	ErrUploadCancelled  = errors.New("upload cancelled")
)

// Settings bounds one half of the pipeline. A zero Timeout disables that
// half's timeout; an empty MIME allow-list allows everything.
type Settings struct {
	MaxBytes         int64
	AllowedMIMETypes []string
	Timeout          time.Duration
}

// ClientSettings derives the client-half settings from the element config.
func ClientSettings(u config.UploadSettings) Settings {
	return Settings{
		MaxBytes:         u.MaxBytes,
		AllowedMIMETypes: u.AllowedMIMETypes,
		Timeout:          u.ClientTimeout(),
	}
}

// HostSettings derives the host-half settings from the element config.
func HostSettings(u config.UploadSettings) Settings {
	return Settings{
		MaxBytes:         u.MaxBytes,
		AllowedMIMETypes: u.AllowedMIMETypes,
		Timeout:          u.HostTimeout(),
	}
}

// validateFile applies the configured bounds to one file. Both halves run it
// so a payload rejected client-side is also rejected if it reaches the host.
func validateFile(size int64, mimeType string, s Settings) error {
	if size == 0 {
		return ErrEmptyFile
	}
	if s.MaxBytes > 0 && size > s.MaxBytes {
		return fmt.Errorf("%w (%d bytes, limit %d)", ErrFileTooLarge, size, s.MaxBytes)
	}
	if len(s.AllowedMIMETypes) == 0 {
		return nil
	}
	for _, allowed := range s.AllowedMIMETypes {
		if allowed == mimeType {
			return nil
		}
	}
	return fmt.Errorf("%w (%s)", ErrMIMENotAllowed, mimeType)
}

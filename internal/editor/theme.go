package editor

import (
	"sync"

	"github.com/quillforge/editorhost/internal/engine"
)

// DefaultTheme is applied when the host never picked one.
const DefaultTheme = "light"

// ThemeManager retains the desired theme across the instance lifecycle: sets
// before the editor exists are remembered and applied after creation.
type ThemeManager struct {
	mu      sync.Mutex
	desired string
}

// NewThemeManager starts from the given theme, or DefaultTheme when empty.
func NewThemeManager(theme string) *ThemeManager {
	if theme == "" {
		theme = DefaultTheme
	}
	return &ThemeManager{desired: theme}
}

// Set records the desired theme and pushes it to inst when one is live.
func (t *ThemeManager) Set(theme string, inst engine.Instance) {
	if theme == "" {
		return
	}
	t.mu.Lock()
	t.desired = theme
	t.mu.Unlock()
	if inst != nil {
		inst.SetTheme(theme)
	}
}

// Apply pushes the retained theme to a freshly created instance.
func (t *ThemeManager) Apply(inst engine.Instance) {
	t.mu.Lock()
	theme := t.desired
	t.mu.Unlock()
	inst.SetTheme(theme)
}

// Current returns the retained theme.
func (t *ThemeManager) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.desired
}

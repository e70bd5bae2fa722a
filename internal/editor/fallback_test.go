package editor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillforge/editorhost/internal/bridge"
)

func TestFallbackRendererTextareaEscapesContent(t *testing.T) {
	t.Parallel()

	html, err := FallbackRenderer{}.Render(bridge.FallbackTextarea, `<script>alert("x")</script>`, "")
	require.NoError(t, err)
	require.Contains(t, html, "<textarea")
	require.NotContains(t, html, "<script>")
}

func TestFallbackRendererModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mode     bridge.FallbackMode
		contains string
	}{
		{"readonly", bridge.FallbackReadOnly, `aria-readonly="true"`},
		{"error", bridge.FallbackError, "Editor failed to load"},
		{"hidden", bridge.FallbackHidden, "hidden"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			html, err := FallbackRenderer{}.Render(tt.mode, "<p>doc</p>", "boom")
			require.NoError(t, err)
			require.Contains(t, html, tt.contains)
		})
	}
}

func TestFallbackRendererErrorModeIncludesReason(t *testing.T) {
	t.Parallel()

	html, err := FallbackRenderer{}.Render(bridge.FallbackError, "", "engine unavailable")
	require.NoError(t, err)
	require.Contains(t, html, "engine unavailable")
}

func TestFallbackRendererUnknownModeFallsBackToTextarea(t *testing.T) {
	t.Parallel()

	html, err := FallbackRenderer{}.Render(bridge.FallbackMode("bogus"), "<p>doc</p>", "")
	require.NoError(t, err)
	require.Contains(t, html, "<textarea")
}

func TestThemeManagerRetainsAndApplies(t *testing.T) {
	t.Parallel()

	tm := NewThemeManager("")
	require.Equal(t, DefaultTheme, tm.Current())

	tm.Set("dark", nil)
	require.Equal(t, "dark", tm.Current())

	tm.Set("", nil)
	require.Equal(t, "dark", tm.Current(), "empty theme is ignored")
}

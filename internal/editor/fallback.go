package editor

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/quillforge/editorhost/internal/bridge"
)

// Fallback templates keep the document visible (or deliberately hidden) when
// the editor cannot be created. The document HTML is inserted as text inside
// the textarea and escaped everywhere else, so a hostile document cannot
// script the degraded page.
var fallbackTemplates = template.Must(template.New("fallback").Parse(`
{{define "textarea"}}<textarea class="editorhost-fallback" aria-label="editor unavailable">{{.Content}}</textarea>{{end}}
{{define "readonly"}}<div class="editorhost-fallback editorhost-fallback-readonly" aria-readonly="true">{{.Content}}</div>{{end}}
{{define "error"}}<div class="editorhost-fallback editorhost-fallback-error" role="alert">Editor failed to load: {{.Reason}}</div>{{end}}
{{define "hidden"}}<div class="editorhost-fallback" hidden></div>{{end}}
`))

type fallbackData struct {
	Content string
	Reason  string
}

// FallbackRenderer produces the degraded markup for one fallback mode.
type FallbackRenderer struct{}

// Render returns the markup for mode. Unknown modes render as textarea, the
// most conservative degradation.
func (FallbackRenderer) Render(mode bridge.FallbackMode, content, reason string) (string, error) {
	name := string(mode)
	switch mode {
	case bridge.FallbackTextarea, bridge.FallbackReadOnly, bridge.FallbackError, bridge.FallbackHidden:
	default:
		name = string(bridge.FallbackTextarea)
	}

	var sb strings.Builder
	if err := fallbackTemplates.ExecuteTemplate(&sb, name, fallbackData{Content: content, Reason: reason}); err != nil {
		return "", fmt.Errorf("failed to render %s fallback: %w", name, err)
	}
	return sb.String(), nil
}

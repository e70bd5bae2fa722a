package catalog

import "sync"

var (
	bundledOnce sync.Once
	bundled     *Catalog
)

// Bundled returns the process-wide catalog describing the standard plugin
// bundle. Built once, read-only afterwards.
func Bundled() *Catalog {
	bundledOnce.Do(func() {
		bundled = MustNew(bundledEntries)
	})
	return bundled
}

// bundledEntries mirrors the capabilities shipped in the standard editor
// bundle. Exclusion groups mark plugins that corrupt the engine when loaded
// together; RequiresConfig marks plugins that crash without extra setup.
var bundledEntries = []Entry{
	{Name: PluginEssentials},
	{Name: PluginParagraph},

	{Name: "Bold"},
	{Name: "Italic"},
	{Name: "Underline"},
	{Name: "Strikethrough"},
	{Name: "Code"},
	{Name: "CodeBlock"},
	{Name: "Subscript"},
	{Name: "Superscript"},
	{Name: "Heading", Requires: []string{PluginParagraph}},
	{Name: "BlockQuote"},
	{Name: "HorizontalLine"},
	{Name: "RemoveFormat"},

	{Name: "Link", Recommends: []string{"AutoLink"}},
	{Name: "AutoLink", Requires: []string{"Link"}},

	{Name: "List"},
	{Name: "TodoList", Requires: []string{"List"}},
	{Name: "Indent"},
	{Name: "IndentBlock", Requires: []string{"Indent"}},
	{Name: "Alignment"},

	{Name: "Font"},
	{Name: "FontFamily", Requires: []string{"Font"}},
	{Name: "FontSize", Requires: []string{"Font"}},
	{Name: "FontColor", Requires: []string{"Font"}},
	{Name: "Highlight"},

	{Name: "Image", Recommends: []string{"ImageToolbar", "ImageStyle"}},
	{Name: "ImageCaption", Requires: []string{"Image"}},
	{Name: "ImageStyle", Requires: []string{"Image"}},
	{Name: "ImageToolbar", Requires: []string{"Image"}},
	{Name: "ImageResize", Requires: []string{"Image"}},
	{Name: "ImageUpload", Requires: []string{"Image"}},

	{Name: "Table", Recommends: []string{"TableToolbar"}},
	{Name: "TableToolbar", Requires: []string{"Table"}},
	{Name: "TableProperties", Requires: []string{"Table"}},
	{Name: "TableCellProperties", Requires: []string{"Table"}},

	{Name: "MediaEmbed"},
	{Name: "PasteFromOffice"},
	{Name: "SpecialCharacters"},
	{Name: "FindAndReplace"},
	{Name: "WordCount"},
	{Name: "SourceEditing"},
	{Name: "Autosave"},

	// Loading both members of an exclusion group corrupts the engine, so the
	// client resolver keeps only the first one requested.
	{Name: "StandardEditingMode", ExclusionGroup: "editing-mode"},
	{Name: "RestrictedEditingMode", ExclusionGroup: "editing-mode"},
	{Name: "GeneralHtmlSupport", ExclusionGroup: "data-processor"},
	{Name: "Markdown", ExclusionGroup: "data-processor"},

	// These crash unless the host supplies extra configuration.
	{Name: "CloudServices", RequiresConfig: true},
	{Name: "CKBox", RequiresConfig: true, Requires: []string{"CloudServices"}},
	{Name: "CKFinder", RequiresConfig: true},
	{Name: "AIAssistant", RequiresConfig: true},

	// Known not to exist in the standard bundle.
	{Name: "WProofreader", Unavailable: true},
	{Name: "MathType", Unavailable: true},
}

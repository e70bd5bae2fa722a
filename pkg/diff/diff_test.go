package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocumentsIdentical(t *testing.T) {
	t.Parallel()
	require.Empty(t, Documents("<p>same</p>", "<p>same</p>"))
}

func TestDocumentsShowsInsertionsAndDeletions(t *testing.T) {
	t.Parallel()

	out := Documents("<p>old text</p>", "<p>new text</p>")
	require.Contains(t, out, "+")
	require.Contains(t, out, "-")
}

func TestDocumentsTruncatesHugeDiffs(t *testing.T) {
	t.Parallel()

	before := strings.Repeat("a\n", 5000)
	after := strings.Repeat("b\n", 5000)
	out := Documents(before, after)
	require.Contains(t, out, "truncated")
}

func TestChanged(t *testing.T) {
	t.Parallel()
	require.False(t, Changed("x", "x"))
	require.True(t, Changed("x", "y"))
}

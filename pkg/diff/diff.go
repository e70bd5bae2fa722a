// Package diff renders unified diffs between document snapshots, used for
// autosave tracing and change inspection.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxLines        = 2000
	truncateMessage = "... (diff truncated) ..."
)

// Documents compares two document snapshots and returns a compact unified
// diff. Identical documents produce an empty string. Very large diffs are
// truncated; the diff is diagnostic output, not a patch source.
func Documents(before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	lines := 0
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		default:
			// Unchanged runs are elided; the surrounding context is the
			// document itself.
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			if lines >= maxLines {
				sb.WriteString(truncateMessage)
				sb.WriteString("\n")
				return sb.String()
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteString("\n")
			lines++
		}
	}
	return sb.String()
}

// Changed reports whether two snapshots differ. Cheap equality check kept
// next to Documents so callers do not diff unchanged documents.
func Changed(before, after string) bool {
	return before != after
}

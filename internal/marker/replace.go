package marker

import (
	"sort"
	"strings"
)

// Replacement pairs a marker with the text that replaces its whole line
// range, directives included.
type Replacement struct {
	Marker Marker
	Text   string
}

// ReplaceAll splices every replacement into document. Replacements are
// applied in descending StartLine order regardless of input order, so each
// splice only shifts lines that have already been handled. A replacement
// whose range falls outside the document or overlaps one already applied
// is skipped.
func ReplaceAll(document string, replacements []Replacement) string {
	if len(replacements) == 0 {
		return document
	}

	sorted := make([]Replacement, len(replacements))
	copy(sorted, replacements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Marker.StartLine > sorted[j].Marker.StartLine
	})

	lines := strings.Split(document, "\n")
	floor := len(lines)
	for _, r := range sorted {
		start, end := r.Marker.StartLine, r.Marker.EndLine
		if start < 0 || end < start || end >= floor {
			continue
		}
		out := make([]string, 0, len(lines)-(end-start))
		out = append(out, lines[:start]...)
		out = append(out, r.Text)
		out = append(out, lines[end+1:]...)
		lines = out
		floor = start
	}
	return strings.Join(lines, "\n")
}

package marker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/acadwrite/internal/chunker"
)

var (
	startRe = regexp.MustCompile(`(?i)^<!--\s*ACADWRITE:\s*(\w+)(?:\s+(.*?))?\s*-->$`)
	endRe   = regexp.MustCompile(`(?i)^<!--\s*END\s+ACADWRITE\s*-->$`)
)

// Options tunes parsing.
type Options struct {
	// Strict reports dangling or stray directives as warnings instead of
	// dropping them silently.
	Strict bool
}

// Warning describes a directive that could not be paired.
type Warning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line+1, w.Message)
}

// IsDirective reports whether line is an opening or closing directive.
func IsDirective(line string) bool {
	s := strings.TrimSpace(line)
	return startRe.MatchString(s) || endRe.MatchString(s)
}

// Parse returns every complete directive region in document order.
// Openers without a closer, before end of document or before the next
// opener, are dropped.
func Parse(document string) []Marker {
	markers, _ := ParseWithOptions(document, Options{})
	return markers
}

// ParseWithOptions is Parse with optional strict reporting. Warnings are
// only returned when opts.Strict is set.
func ParseWithOptions(document string, opts Options) ([]Marker, []Warning) {
	var (
		markers  []Marker
		warnings []Warning
		headings chunker.HeadingStack
		open     *Marker
		body     []string
		inFence  bool
	)

	for i, line := range strings.Split(document, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
		if inFence || strings.HasPrefix(trimmed, "```") {
			if open != nil {
				body = append(body, line)
			}
			continue
		}

		if text, level, ok := chunker.ParseHeading(line); ok {
			headings.Push(text, level)
		}

		if m := startRe.FindStringSubmatch(trimmed); m != nil {
			if open != nil {
				warnings = append(warnings, Warning{
					Line:    open.StartLine,
					Message: "directive has no END before the next directive; dropped",
				})
			}
			op, _ := ParseOperation(m[1])
			heading, level := headings.Top()
			open = &Marker{
				Operation:    op,
				RawOperation: m[1],
				StartLine:    i,
				Context:      headings.Path(),
				Heading:      heading,
				HeadingLevel: level,
				Params:       parseParams(m[2]),
			}
			body = nil
			continue
		}

		if endRe.MatchString(trimmed) {
			if open == nil {
				warnings = append(warnings, Warning{Line: i, Message: "END directive without an opening directive"})
				continue
			}
			open.EndLine = i
			open.Content = strings.TrimSpace(strings.Join(body, "\n"))
			markers = append(markers, *open)
			open = nil
			body = nil
			continue
		}

		if open != nil {
			body = append(body, line)
		}
	}

	if open != nil {
		warnings = append(warnings, Warning{
			Line:    open.StartLine,
			Message: "directive has no END before end of document; dropped",
		})
	}

	if !opts.Strict {
		return markers, nil
	}
	return markers, warnings
}

// parseParams reads whitespace-separated key=value tokens. Tokens without
// '=' or with an empty key are ignored.
func parseParams(s string) Params {
	var params Params
	for _, tok := range strings.Fields(s) {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" {
			continue
		}
		params = append(params, Param{Key: key, Value: value})
	}
	return params
}

// ExtractContext returns up to n non-empty lines immediately before the
// marker's opening line, skipping directive lines, in original order.
func ExtractContext(document string, m Marker, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(document, "\n")
	end := m.StartLine
	if end > len(lines) {
		end = len(lines)
	}

	var picked []string
	for i := end - 1; i >= 0 && len(picked) < n; i-- {
		line := lines[i]
		if strings.TrimSpace(line) == "" || IsDirective(line) {
			continue
		}
		picked = append(picked, line)
	}
	for l, r := 0, len(picked)-1; l < r; l, r = l+1, r-1 {
		picked[l], picked[r] = picked[r], picked[l]
	}
	return strings.Join(picked, "\n")
}

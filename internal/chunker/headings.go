package chunker

import "strings"

// ContextSeparator joins ancestor headings in a context path.
const ContextSeparator = " > "

type headingEntry struct {
	text  string
	level int
}

// HeadingStack tracks the ancestor headings at a position in a document.
// Levels on the stack are strictly increasing from root to top.
type HeadingStack struct {
	entries []headingEntry
}

// Push records a heading of the given level, first popping every entry
// whose level is greater than or equal to it.
func (s *HeadingStack) Push(text string, level int) {
	for len(s.entries) > 0 && s.entries[len(s.entries)-1].level >= level {
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, headingEntry{text: text, level: level})
}

// Top returns the innermost heading and its level, or "" and 0.
func (s *HeadingStack) Top() (string, int) {
	if len(s.entries) == 0 {
		return "", 0
	}
	e := s.entries[len(s.entries)-1]
	return e.text, e.level
}

// Path joins the stack from root to top.
func (s *HeadingStack) Path() string {
	parts := make([]string, len(s.entries))
	for i, e := range s.entries {
		parts[i] = e.text
	}
	return strings.Join(parts, ContextSeparator)
}

// Levels returns the levels on the stack, root first.
func (s *HeadingStack) Levels() []int {
	out := make([]int, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.level
	}
	return out
}

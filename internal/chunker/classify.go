package chunker

import (
	"regexp"
	"strings"
)

// BlockType tags a chunk with the kind of markdown it holds.
type BlockType string

const (
	TypeParagraph BlockType = "paragraph"
	TypeHeading   BlockType = "heading"
	TypeList      BlockType = "list"
	TypeCode      BlockType = "code"
	TypeQuote     BlockType = "quote"
)

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	listItemRe = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)
)

// Classify returns the type of a single block of contiguous lines.
func Classify(block string) BlockType {
	s := strings.TrimSpace(block)
	switch {
	case isFence(s):
		return TypeCode
	case strings.HasPrefix(s, ">"):
		return TypeQuote
	case listItemRe.MatchString(s):
		return TypeList
	default:
		return TypeParagraph
	}
}

func isFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

func isListItem(line string) bool {
	return listItemRe.MatchString(line)
}

func isQuoteLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), ">")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// isIndented reports a list continuation line.
func isIndented(line string) bool {
	return strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t")
}

// ParseHeading reports whether line is an ATX heading and returns its text
// and level.
func ParseHeading(line string) (string, int, bool) {
	m := headingRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return "", 0, false
	}
	text := strings.TrimSpace(m[2])
	if text == "" {
		return "", 0, false
	}
	return text, len(m[1]), true
}

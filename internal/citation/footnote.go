package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	inlineRe      = regexp.MustCompile(`\[([^,\]]+),\s*(\d{4}|n\.d\.),?\s*(?:p\.\s*(\d+))?\]`)
	footnoteRefRe = regexp.MustCompile(`\[\^(\d+)\]`)
)

// ConvertInlineToFootnotes replaces inline tags with [^N] markers numbered
// by first appearance, starting after the highest [^N] already in text.
// Repeated tags share a number. The returned citations are the distinct
// tags in number order.
func ConvertInlineToFootnotes(text string) (string, []Citation) {
	f := NewFootnoter(text)
	out := f.Convert(text)
	return out, f.Refs()
}

// Footnoter converts inline tags to footnote markers across several
// fragments of one document, sharing numbers between them.
type Footnoter struct {
	first   int
	numbers map[string]int
	refs    []Citation
}

// NewFootnoter returns a Footnoter whose numbers continue after the highest
// footnote label already present in doc.
func NewFootnoter(doc string) *Footnoter {
	return &Footnoter{first: MaxFootnote(doc) + 1, numbers: make(map[string]int)}
}

// Convert rewrites the inline tags in text.
func (f *Footnoter) Convert(text string) string {
	return inlineRe.ReplaceAllStringFunc(text, func(tag string) string {
		c := parseInline(tag)
		key := strings.ToLower(fmt.Sprintf("%s|%s|%d", c.Author, c.Year, c.Page))
		n, ok := f.numbers[key]
		if !ok {
			n = f.first + len(f.refs)
			f.numbers[key] = n
			c.ID = n
			f.refs = append(f.refs, c)
		}
		return fmt.Sprintf("[^%d]", n)
	})
}

// Refs returns the distinct tags converted so far, in number order.
func (f *Footnoter) Refs() []Citation {
	return append([]Citation(nil), f.refs...)
}

// Definitions renders the footnote block for everything converted so far.
// Each reference is enriched from the matching entry in known; known
// citations never referenced follow with the next free numbers. It
// returns "" when there is nothing to define.
func (f *Footnoter) Definitions(known []Citation) string {
	unique, _ := Deduplicate(known)

	used := make([]bool, len(unique))
	ordered := make([]Citation, 0, len(f.refs)+len(unique))
	for _, r := range f.refs {
		if i := findMatch(unique, r); i >= 0 {
			k := unique[i]
			if k.Page == 0 {
				k.Page = r.Page
			}
			k.ID = r.ID
			used[i] = true
			ordered = append(ordered, k)
			continue
		}
		ordered = append(ordered, r)
	}
	next := f.first + len(f.refs)
	for i, k := range unique {
		if !used[i] {
			k.ID = next
			next++
			ordered = append(ordered, k)
		}
	}
	if len(ordered) == 0 {
		return ""
	}
	lines := []string{"---", ""}
	for _, c := range ordered {
		lines = append(lines, c.Footnote(c.ID))
	}
	return strings.Join(lines, "\n")
}

// MaxFootnote returns the highest N among [^N] labels in text, or 0.
func MaxFootnote(text string) int {
	highest := 0
	for _, m := range footnoteRefRe.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

func parseInline(tag string) Citation {
	m := inlineRe.FindStringSubmatch(tag)
	c := Citation{Author: strings.TrimSpace(m[1]), Year: m[2]}
	if m[3] != "" {
		c.Page, _ = strconv.Atoi(m[3])
	}
	c.FullCitation = fmt.Sprintf("%s (%s)", c.Author, c.Year)
	if c.Page > 0 {
		c.FullCitation += fmt.Sprintf(", p. %d", c.Page)
	}
	return c
}

// GenerateFootnotes renders a "---" separator followed by one definition
// per citation, numbered from 1. It returns "" for no citations.
func GenerateFootnotes(cites []Citation) string {
	if len(cites) == 0 {
		return ""
	}
	lines := []string{"---", ""}
	for i, c := range cites {
		lines = append(lines, c.Footnote(i+1))
	}
	return strings.Join(lines, "\n")
}

// Deduplicate keeps the first citation per (author, title, page), renumbers
// the survivors from 1 and maps every old ID to its new ID.
func Deduplicate(cites []Citation) ([]Citation, map[int]int) {
	seen := make(map[identity]int)
	unique := make([]Citation, 0, len(cites))
	mapping := make(map[int]int, len(cites))

	for _, c := range cites {
		if id, ok := seen[c.identity()]; ok {
			mapping[c.ID] = id
			continue
		}
		id := len(unique) + 1
		seen[c.identity()] = id
		mapping[c.ID] = id
		c.ID = id
		unique = append(unique, c)
	}
	return unique, mapping
}

// RenumberFootnotes rewrites [^N] markers (and definitions) through
// mapping. Unmapped numbers are left alone.
func RenumberFootnotes(text string, mapping map[int]int) string {
	return footnoteRefRe.ReplaceAllStringFunc(text, func(ref string) string {
		old, _ := strconv.Atoi(ref[2 : len(ref)-1])
		if n, ok := mapping[old]; ok {
			return fmt.Sprintf("[^%d]", n)
		}
		return ref
	})
}

// ApplyFootnoteStyle converts inline tags in text to footnote markers and
// appends a footnote block. Each tag is enriched from the matching entry
// in known; known citations never referenced in the text follow.
func ApplyFootnoteStyle(text string, known []Citation) string {
	f := NewFootnoter(text)
	converted := f.Convert(text)
	defs := f.Definitions(known)
	if defs == "" {
		return converted
	}
	return strings.TrimRight(converted, "\n") + "\n\n" + defs + "\n"
}

func findMatch(known []Citation, ref Citation) int {
	for i, k := range known {
		if !strings.EqualFold(k.Author, ref.Author) || normYear(k.Year) != normYear(ref.Year) {
			continue
		}
		if ref.Page == 0 || k.Page == 0 || k.Page == ref.Page {
			return i
		}
	}
	return -1
}

func normYear(y string) string {
	if y == "n.d." {
		return ""
	}
	return y
}

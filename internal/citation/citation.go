// Package citation formats, extracts, validates and exports bibliographic
// citations in the inline [Author, Year, p. N] and footnote [^N] styles.
package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/acadwrite/internal/rag"
)

// Style selects how citations appear in rendered markdown.
type Style string

const (
	StyleInline   Style = "inline"
	StyleFootnote Style = "footnote"
)

// ParseStyle accepts "inline" or "footnote" case-insensitively.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleInline, "":
		return StyleInline, nil
	case StyleFootnote:
		return StyleFootnote, nil
	}
	return "", fmt.Errorf("unknown citation style %q (want inline or footnote)", s)
}

// Citation is one reference. Page is zero when unknown.
type Citation struct {
	ID           int    `json:"id" yaml:"id"`
	Author       string `json:"author" yaml:"author"`
	Title        string `json:"title" yaml:"title"`
	Year         string `json:"year,omitempty" yaml:"year,omitempty"`
	Page         int    `json:"page,omitempty" yaml:"page,omitempty"`
	FullCitation string `json:"full_citation" yaml:"full_citation"`
}

// Inline renders [Author, Year, p. N]. A missing year renders as n.d.
func (c Citation) Inline() string {
	year := c.Year
	if year == "" {
		year = "n.d."
	}
	if c.Page > 0 {
		return fmt.Sprintf("[%s, %s, p. %d]", c.Author, year, c.Page)
	}
	return fmt.Sprintf("[%s, %s]", c.Author, year)
}

// Footnote renders the definition line "[^n]: Author (Year). Title. p.N".
// An empty title is left out.
func (c Citation) Footnote(n int) string {
	parts := []string{fmt.Sprintf("[^%d]:", n)}
	if c.Year != "" {
		parts = append(parts, fmt.Sprintf("%s (%s).", c.Author, c.Year))
	} else {
		parts = append(parts, c.Author+".")
	}
	if c.Title != "" {
		parts = append(parts, c.Title+".")
	}
	if c.Page > 0 {
		parts = append(parts, fmt.Sprintf("p.%d", c.Page))
	}
	return strings.Join(parts, " ")
}

// Key is the default BibTeX key: lowercased author without spaces plus the
// year, or "nd".
func (c Citation) Key() string {
	year := c.Year
	if year == "" {
		year = "nd"
	}
	return strings.ReplaceAll(strings.ToLower(c.Author), " ", "") + year
}

// BibTeX renders an @article entry. An empty key uses Key().
func (c Citation) BibTeX(key string) string {
	if key == "" {
		key = c.Key()
	}
	lines := []string{fmt.Sprintf("@article{%s,", key)}
	if c.Author != "" {
		lines = append(lines, fmt.Sprintf("  author = {%s},", c.Author))
	}
	if c.Title != "" {
		lines = append(lines, fmt.Sprintf("  title = {%s},", c.Title))
	}
	if c.Year != "" {
		lines = append(lines, fmt.Sprintf("  year = {%s},", c.Year))
	}
	if c.Page > 0 {
		lines = append(lines, fmt.Sprintf("  pages = {%d},", c.Page))
	}
	lines = append(lines, "}")
	return strings.Join(lines, "\n")
}

// identity is the deduplication key.
type identity struct {
	author, title string
	page          int
}

func (c Citation) identity() identity {
	return identity{c.Author, c.Title, c.Page}
}

var pageRe = regexp.MustCompile(`p\.\s*(\d+)`)

// PageFromText returns the first "p. N" page number in s, or 0.
func PageFromText(s string) int {
	m := pageRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// FromSource builds a citation from a retrieved source. The page comes from
// chunk metadata, falling back to the "p. N" in the in-text citation.
func FromSource(id int, s rag.Source) Citation {
	page := s.ChunkMetadata.PageNumber
	if page <= 0 {
		page = PageFromText(s.InTextCitation)
	}
	return Citation{
		ID:           id,
		Author:       s.Author(),
		Title:        s.Title(),
		Year:         s.Year(),
		Page:         page,
		FullCitation: s.Citation,
	}
}

// FromSources converts up to limit sources, numbering from 1. A limit of
// zero or less converts all of them.
func FromSources(sources []rag.Source, limit int) []Citation {
	if limit <= 0 || limit > len(sources) {
		limit = len(sources)
	}
	out := make([]Citation, 0, limit)
	for i, s := range sources[:limit] {
		out = append(out, FromSource(i+1, s))
	}
	return out
}

// Bibliography lists full citations one per line, building an APA-like
// line when the full citation is missing.
func Bibliography(cites []Citation) string {
	lines := make([]string, 0, len(cites))
	for _, c := range cites {
		if c.FullCitation != "" {
			lines = append(lines, c.FullCitation)
			continue
		}
		line := fmt.Sprintf("%s (%s)", c.Author, c.Year)
		if c.Title != "" {
			line += ". " + c.Title
		}
		if c.Page > 0 {
			line += fmt.Sprintf(", p. %d", c.Page)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

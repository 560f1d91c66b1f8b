package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/acadwrite/internal/doctree"
)

// Parser converts an outline file into a doctree.Outline.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Outline, error)
}

// SupportedExtensions lists outline file extensions.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".yaml":     true,
	".yml":      true,
	".html":     true,
	".htm":      true,
}

// ForFile returns the parser for a filename's extension.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".yaml", ".yml":
		return &YAMLParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported outline format: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// defaultTitle is the filename without directory or extension.
func defaultTitle(filename string) string {
	base := filepath.Base(filename)
	if t := strings.TrimSuffix(base, filepath.Ext(base)); t != "" && t != "." {
		return t
	}
	return "Untitled"
}

// heading is one flat heading before tree building.
type heading struct {
	text  string
	level int
	hint  string
}

// buildTree nests flat headings by level: each heading becomes a child of
// the nearest preceding heading with a lower level.
func buildTree(hs []heading) []*doctree.Node {
	type entry struct {
		node  *doctree.Node
		level int
	}
	var (
		roots []*doctree.Node
		stack []entry
	)
	for _, h := range hs {
		n := &doctree.Node{Heading: h.text, Level: h.level, QueryHint: h.hint}
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, n)
		}
		stack = append(stack, entry{node: n, level: h.level})
	}
	return roots
}

// splitTitle takes a leading h1 as the outline title.
func splitTitle(hs []heading, fallback string) (string, []heading) {
	if len(hs) > 0 && hs[0].level == 1 {
		return hs[0].text, hs[1:]
	}
	return fallback, hs
}

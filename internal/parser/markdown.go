package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/acadwrite/internal/doctree"
)

// MarkdownParser reads an outline from markdown headings. The first
// paragraph directly under a heading becomes its query hint.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Outline, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var hs []heading
	afterHeading := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			hs = append(hs, heading{text: strings.TrimSpace(extractText(node, src)), level: node.Level})
			afterHeading = true
			continue
		case *ast.Paragraph:
			if afterHeading && len(hs) > 0 {
				hs[len(hs)-1].hint = strings.Join(strings.Fields(extractText(node, src)), " ")
			}
		}
		afterHeading = false
	}

	title, rest := splitTitle(hs, defaultTitle(filename))
	return &doctree.Outline{Title: title, Items: buildTree(rest)}, nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		if n.FirstChild() == nil {
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			continue
		}
		buf.WriteString(extractText(c, src))
	}
	return strings.TrimSpace(buf.String())
}

package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/acadwrite/internal/doctree"
)

// HTMLParser reads an outline from the h1-h6 elements of an HTML draft.
// The title comes from <title>, else from a leading h1.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Outline, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		hs           []heading
		afterHeading bool
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				hs = append(hs, heading{text: textContent(n), level: level})
				afterHeading = true
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "head":
				return
			case "p":
				if afterHeading && len(hs) > 0 {
					hs[len(hs)-1].hint = textContent(n)
				}
				afterHeading = false
				return
			case "ul", "ol", "table", "blockquote", "pre":
				afterHeading = false
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	title := findTitle(doc)
	if title != "" {
		if len(hs) > 0 && hs[0].level == 1 && hs[0].text == title {
			hs = hs[1:]
		}
		return &doctree.Outline{Title: title, Items: buildTree(hs)}, nil
	}
	title, hs = splitTitle(hs, defaultTitle(filename))
	return &doctree.Outline{Title: title, Items: buildTree(hs)}, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

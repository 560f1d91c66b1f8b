package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_HeadingHierarchy(t *testing.T) {
	input := `# Chapter 3: Methodology

## Introduction

### Background

### Related Work

## Methods
`
	p := &MarkdownParser{}
	outline, err := p.Parse(strings.NewReader(input), "outline.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outline.Title != "Chapter 3: Methodology" {
		t.Errorf("expected title %q, got %q", "Chapter 3: Methodology", outline.Title)
	}
	if len(outline.Items) != 2 {
		t.Fatalf("expected 2 top-level items, got %d", len(outline.Items))
	}

	intro := outline.Items[0]
	if intro.Heading != "Introduction" || intro.Level != 2 {
		t.Errorf("unexpected first item: %+v", intro)
	}
	if len(intro.Children) != 2 {
		t.Fatalf("expected 2 children under Introduction, got %d", len(intro.Children))
	}
	if intro.Children[1].Heading != "Related Work" || intro.Children[1].Level != 3 {
		t.Errorf("unexpected child: %+v", intro.Children[1])
	}
	if !outline.Items[1].IsLeaf() {
		t.Errorf("expected Methods to be a leaf")
	}
	if outline.Len() != 4 {
		t.Errorf("expected 4 nodes, got %d", outline.Len())
	}
}

func TestMarkdownParser_LaterH1IsAnItem(t *testing.T) {
	input := "## Preface\n\n# Part One\n\n## Chapter\n"

	p := &MarkdownParser{}
	outline, err := p.Parse(strings.NewReader(input), "drafts/book.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outline.Title != "book" {
		t.Errorf("expected filename title %q, got %q", "book", outline.Title)
	}
	if len(outline.Items) != 2 {
		t.Fatalf("expected 2 top-level items, got %d", len(outline.Items))
	}
	if got := outline.Items[1]; got.Heading != "Part One" || len(got.Children) != 1 {
		t.Errorf("expected Part One with one child, got %+v", got)
	}
}

func TestMarkdownParser_QueryHint(t *testing.T) {
	input := "# T\n\n## Sampling\n\nHow were   participants\nrecruited?\n\nSecond paragraph.\n\n## Analysis\n\n- bullet\n"

	p := &MarkdownParser{}
	outline, err := p.Parse(strings.NewReader(input), "t.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outline.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(outline.Items))
	}
	if got := outline.Items[0].QueryHint; got != "How were participants recruited?" {
		t.Errorf("unexpected hint %q", got)
	}
	if got := outline.Items[1].QueryHint; got != "" {
		t.Errorf("expected no hint after a list, got %q", got)
	}
}

func TestMarkdownParser_InlineMarkupInHeadings(t *testing.T) {
	p := &MarkdownParser{}
	outline, err := p.Parse(strings.NewReader("# T\n\n## The *role* of `context`\n"), "t.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outline.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(outline.Items))
	}
	if got := outline.Items[0].Heading; got != "The role of context" {
		t.Errorf("unexpected heading %q", got)
	}
}

func TestMarkdownParser_HeadingsInCodeIgnored(t *testing.T) {
	input := "# T\n\n## Real\n\n```\n## not a heading\n```\n"
	p := &MarkdownParser{}
	outline, err := p.Parse(strings.NewReader(input), "t.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outline.Len() != 1 {
		t.Errorf("expected 1 node, got %d", outline.Len())
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	outline, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outline.Items) != 0 {
		t.Errorf("expected 0 items for empty input, got %d", len(outline.Items))
	}
	if outline.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", outline.Title)
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"outline.md", false},
		{"outline.MARKDOWN", false},
		{"outline.yaml", false},
		{"outline.yml", false},
		{"draft.html", false},
		{"draft.htm", false},
		{"paper.pdf", true},
		{"noext", true},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			p, err := ForFile(tt.filename)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %s", tt.filename)
				}
				return
			}
			if err != nil || p == nil {
				t.Fatalf("unexpected error for %s: %v", tt.filename, err)
			}
			if !IsSupportedExtension(tt.filename) {
				t.Errorf("expected %s to be supported", tt.filename)
			}
		})
	}
}

package parser

import (
	"strings"
	"testing"
)

func TestYAMLParser(t *testing.T) {
	input := `title: "Chapter 3: Methodology"
sections:
  - heading: Introduction
    level: 2
    query_hint: why qualitative methods
    subsections:
      - heading: Background
      - heading: Scope
        level: 4
  - heading: Methods
`
	p := &YAMLParser{}
	outline, err := p.Parse(strings.NewReader(input), "outline.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outline.Title != "Chapter 3: Methodology" {
		t.Errorf("unexpected title %q", outline.Title)
	}
	if len(outline.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(outline.Items))
	}
	intro := outline.Items[0]
	if intro.QueryHint != "why qualitative methods" {
		t.Errorf("unexpected hint %q", intro.QueryHint)
	}
	if len(intro.Children) != 2 {
		t.Fatalf("expected 2 subsections, got %d", len(intro.Children))
	}
	if intro.Children[0].Level != 3 {
		t.Errorf("expected default child level 3, got %d", intro.Children[0].Level)
	}
	if intro.Children[1].Level != 4 {
		t.Errorf("expected explicit level 4, got %d", intro.Children[1].Level)
	}
	if outline.Items[1].Level != 2 {
		t.Errorf("expected default top-level 2, got %d", outline.Items[1].Level)
	}
}

func TestYAMLParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing heading", "sections:\n  - level: 2\n", "sections[0]: heading is required"},
		{"bad level", "sections:\n  - heading: A\n    subsections:\n      - heading: B\n        level: 9\n", "sections[0].subsections[0]: level 9"},
		{"malformed", "sections: [\n", "parse yaml outline"},
	}
	p := &YAMLParser{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(strings.NewReader(tt.input), "o.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestYAMLParser_Empty(t *testing.T) {
	p := &YAMLParser{}
	outline, err := p.Parse(strings.NewReader(""), "o.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outline.Title != "Untitled" || len(outline.Items) != 0 {
		t.Errorf("unexpected outline %+v", outline)
	}
}

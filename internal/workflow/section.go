package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/rag"
)

// Section is a generated piece of academic prose.
type Section struct {
	Heading     string              `json:"heading"`
	Level       int                 `json:"level"`
	Content     string              `json:"content"`
	Citations   []citation.Citation `json:"citations"`
	Subsections []*Section          `json:"subsections,omitempty"`
}

// WordCount counts whitespace-separated words in the content.
func (s *Section) WordCount() int { return countWords(s.Content) }

// AllCitations returns this section's citations followed by those of its
// subsections, depth first.
func (s *Section) AllCitations() []citation.Citation {
	out := append([]citation.Citation(nil), s.Citations...)
	for _, sub := range s.Subsections {
		out = append(out, sub.AllCitations()...)
	}
	return out
}

// Markdown renders the heading, the content and, in footnote style, the
// section's footnote definitions.
func (s *Section) Markdown(style citation.Style) string {
	level := min(max(s.Level, 1), 6)
	lines := []string{strings.Repeat("#", level) + " " + s.Heading, "", s.Content, ""}

	if style == citation.StyleFootnote && len(s.Citations) > 0 {
		lines = append(lines, "---", "")
		for _, c := range s.Citations {
			lines = append(lines, c.Footnote(c.ID))
		}
		lines = append(lines, "")
	}
	for _, sub := range s.Subsections {
		lines = append(lines, sub.Markdown(style), "")
	}
	return strings.Join(lines, "\n")
}

// SectionRequest describes one section to generate. Query, when set, is
// asked instead of the heading; Context is appended to either.
type SectionRequest struct {
	Heading    string
	Level      int
	Query      string
	Context    string
	MaxWords   int
	MaxSources int
}

// SectionGenerator asks the RAG service for a section on a heading.
type SectionGenerator struct {
	RAG        RAG
	Collection string
	Log        *slog.Logger
}

func (g *SectionGenerator) Generate(ctx context.Context, req SectionRequest) (*Section, error) {
	question := req.Query
	if question == "" {
		question = req.Heading
	}
	if req.Context != "" {
		question += ". Context: " + req.Context
	}

	resp, err := g.RAG.Query(ctx, rag.QueryRequest{
		Collection: g.Collection,
		Question:   question,
		SearchType: "vector",
		MaxSources: req.MaxSources,
	})
	if err != nil {
		return nil, fmt.Errorf("generate section %q: %w", req.Heading, err)
	}

	content := resp.Answer
	if req.MaxWords > 0 {
		content = TruncateWords(content, req.MaxWords)
	}
	level := req.Level
	if level == 0 {
		level = 2
	}
	orDefault(g.Log).Debug("section generated", "heading", req.Heading, "sources", len(resp.Sources))

	return &Section{
		Heading:   req.Heading,
		Level:     level,
		Content:   content,
		Citations: sectionCitations(resp.Sources),
	}, nil
}

// sectionCitations prefers the full author name, then the title, as the
// citation author.
func sectionCitations(sources []rag.Source) []citation.Citation {
	out := make([]citation.Citation, 0, len(sources))
	for i, s := range sources {
		c := citation.FromSource(i+1, s)
		switch md := s.DocumentMetadata; {
		case len(md.Authors) > 0 && md.Authors[0] != "":
			c.Author = md.Authors[0]
		case md.Title != "":
			c.Author = md.Title
		default:
			c.Author = "Unknown"
		}
		c.Page = citation.PageFromText(s.InTextCitation)
		if c.Page == 0 {
			c.Page = s.ChunkMetadata.PageNumber
		}
		out = append(out, c)
	}
	return out
}

// TruncateWords keeps the first maxWords words. If a sentence ends in the
// final 30% of the kept text the cut happens there, otherwise "..." is
// appended.
func TruncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		return text
	}
	kept := strings.Join(words[:maxWords], " ")
	last := strings.LastIndexAny(kept, ".?!")
	if float64(last) > float64(len(kept))*0.7 {
		return kept[:last+1]
	}
	return kept + "..."
}

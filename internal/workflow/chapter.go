package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/doctree"
)

// Chapter is a generated outline: sections in tree order plus the
// deduplicated citations they share.
type Chapter struct {
	Title     string              `json:"title"`
	Sections  []*Section          `json:"sections"`
	Citations []citation.Citation `json:"citations"`
	Metadata  ChapterMetadata     `json:"metadata"`
}

type ChapterMetadata struct {
	Title           string   `json:"title"`
	TotalSections   int      `json:"total_sections"`
	TotalWordCount  int      `json:"total_word_count"`
	TotalCitations  int      `json:"total_citations"`
	UniqueCitations int      `json:"unique_citations"`
	Sections        []string `json:"sections"`
}

type ChapterOptions struct {
	MaxWords   int
	MaxSources int
	// StopOnError propagates the first section failure instead of
	// writing a placeholder section.
	StopOnError bool
}

// ChapterProcessor generates every section of an outline.
type ChapterProcessor struct {
	Generator *SectionGenerator
	Log       *slog.Logger

	// Progress, if set, is called after each outline node.
	Progress func(done, total int, heading string)
}

// Process walks the outline. Top-level items run in order, each seeing the
// heading of the section before it; children see their parent's heading.
// A failed item is replaced by a placeholder and its children are skipped,
// unless opts.StopOnError is set.
func (p *ChapterProcessor) Process(ctx context.Context, outline *doctree.Outline, opts ChapterOptions) (*Chapter, error) {
	log := orDefault(p.Log).With("chapter", outline.Title)
	w := &chapterWalk{p: p, opts: opts, log: log, total: outline.Len()}

	var sections []*Section
	prev := ""
	for _, item := range outline.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := w.item(ctx, item, prev)
		if err != nil {
			return nil, err
		}
		sections = append(sections, got...)
		if len(got) > 0 {
			prev = "Previous section: " + got[len(got)-1].Heading
		}
	}

	ch := &Chapter{Title: outline.Title, Sections: sections}
	ch.Citations = renumberChapter(sections)
	ch.Metadata = chapterMetadata(outline.Title, sections, ch.Citations)
	log.Info("chapter generated", "sections", len(sections), "citations", len(ch.Citations))
	return ch, nil
}

type chapterWalk struct {
	p     *ChapterProcessor
	opts  ChapterOptions
	log   *slog.Logger
	total int
	done  int
}

func (w *chapterWalk) item(ctx context.Context, n *doctree.Node, sectionContext string) ([]*Section, error) {
	s, err := w.p.Generator.Generate(ctx, SectionRequest{
		Heading:    n.Heading,
		Level:      n.Level,
		Query:      n.QueryHint,
		Context:    sectionContext,
		MaxWords:   w.opts.MaxWords,
		MaxSources: w.opts.MaxSources,
	})
	w.done++
	if w.p.Progress != nil {
		w.p.Progress(w.done, w.total, n.Heading)
	}
	if err != nil {
		if w.opts.StopOnError || ctx.Err() != nil {
			return nil, err
		}
		w.log.Warn("section failed", "heading", n.Heading, "error", err)
		return []*Section{{
			Heading: n.Heading,
			Level:   n.Level,
			Content: "Error generating section: " + err.Error(),
		}}, nil
	}
	if n.Level > 0 {
		s.Level = n.Level
	}

	out := []*Section{s}
	for _, c := range n.Children {
		got, err := w.item(ctx, c, "Parent section: "+n.Heading)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

// renumberChapter gives every section citation a chapter-wide ID,
// deduplicates across sections and rewrites each section's [^N] markers
// and citation list to the surviving numbering.
func renumberChapter(sections []*Section) []citation.Citation {
	var (
		all    []citation.Citation
		locals = make([]map[int]int, len(sections))
	)
	for i, s := range sections {
		locals[i] = make(map[int]int, len(s.Citations))
		for _, c := range s.Citations {
			global := len(all) + 1
			locals[i][c.ID] = global
			c.ID = global
			all = append(all, c)
		}
	}

	unique, mapping := citation.Deduplicate(all)
	for i, s := range sections {
		final := make(map[int]int, len(locals[i]))
		for local, global := range locals[i] {
			final[local] = mapping[global]
		}
		s.Content = citation.RenumberFootnotes(s.Content, final)

		seen := make(map[int]bool)
		cites := make([]citation.Citation, 0, len(s.Citations))
		for _, c := range s.Citations {
			id := final[c.ID]
			if id == 0 || seen[id] {
				continue
			}
			seen[id] = true
			cites = append(cites, unique[id-1])
		}
		s.Citations = cites
	}
	return unique
}

func chapterMetadata(title string, sections []*Section, unique []citation.Citation) ChapterMetadata {
	md := ChapterMetadata{
		Title:           title,
		TotalSections:   len(sections),
		UniqueCitations: len(unique),
		Sections:        make([]string, 0, len(sections)),
	}
	for _, s := range sections {
		md.TotalWordCount += s.WordCount()
		md.TotalCitations += len(s.AllCitations())
		md.Sections = append(md.Sections, s.Heading)
	}
	return md
}

// SaveChapter writes the chapter under dir and returns the written paths
// keyed by role: "chapter" or "section_N", "bibliography", "metadata".
func SaveChapter(dir string, ch *Chapter, style citation.Style, singleFile bool) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	saved := make(map[string]string)
	write := func(key, name, content string) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		saved[key] = path
		return nil
	}

	if singleFile {
		parts := []string{"# " + ch.Title, ""}
		for _, s := range ch.Sections {
			parts = append(parts, sectionBody(s, style), "")
		}
		if len(ch.Citations) > 0 {
			parts = append(parts, "---", "", "## References", "")
			for _, c := range ch.Citations {
				parts = append(parts, c.Footnote(c.ID))
			}
			parts = append(parts, "")
		}
		if err := write("chapter", Slug(ch.Title)+".md", strings.Join(parts, "\n")); err != nil {
			return nil, err
		}
	} else {
		for i, s := range ch.Sections {
			name := fmt.Sprintf("%02d_%s.md", i+1, Slug(s.Heading))
			if err := write(fmt.Sprintf("section_%d", i+1), name, s.Markdown(style)); err != nil {
				return nil, err
			}
		}
	}

	if err := write("bibliography", "bibliography.bib", citation.ExportBibTeX(ch.Citations)); err != nil {
		return nil, err
	}
	md, err := json.MarshalIndent(ch.Metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := write("metadata", "metadata.json", string(md)); err != nil {
		return nil, err
	}
	return saved, nil
}

// sectionBody renders a section without its own footnote block; the
// single-file chapter carries one shared reference list.
func sectionBody(s *Section, style citation.Style) string {
	if style == citation.StyleFootnote {
		flat := *s
		flat.Citations = nil
		return flat.Markdown(style)
	}
	return s.Markdown(style)
}

// Slug lowercases text, keeps letters and digits, collapses everything else
// to single underscores and caps the result at 50 bytes.
func Slug(text string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	s := strings.TrimRight(b.String(), "_")
	s = strings.TrimRight(prefix(s, 50), "_")
	if s == "" {
		return "untitled"
	}
	return s
}

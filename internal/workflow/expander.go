package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/llm"
	"github.com/dgallion1/acadwrite/internal/marker"
	"github.com/dgallion1/acadwrite/internal/rag"
)

const (
	clarityMaxTokens   = 2000
	evidenceCitations  = 5
	citationsCitations = 3
	contradictItems    = 3
)

// ExpandedContent is the outcome of resolving one marker. It is produced
// for every marker, failed or not.
type ExpandedContent struct {
	Marker    marker.Marker       `json:"marker"`
	Text      string              `json:"generated_content"`
	Citations []citation.Citation `json:"citations"`
	Success   bool                `json:"success"`
	Error     string              `json:"error,omitempty"`
}

func failed(m marker.Marker, err error) ExpandedContent {
	return ExpandedContent{Marker: m, Text: m.Content, Success: false, Error: err.Error()}
}

// ExpandResult is the rewritten document plus every per-marker outcome.
type ExpandResult struct {
	Text       string            `json:"text"`
	Expansions []ExpandedContent `json:"expansions"`
	Warnings   []marker.Warning  `json:"warnings,omitempty"`
}

func (r *ExpandResult) Succeeded() int {
	n := 0
	for _, e := range r.Expansions {
		if e.Success {
			n++
		}
	}
	return n
}

func (r *ExpandResult) Failed() int { return len(r.Expansions) - r.Succeeded() }

// Expander resolves every ACADWRITE marker in a document.
type Expander struct {
	RAG RAG
	LLM Completer // Optional; clarity and contradict fail without it.
	Log *slog.Logger

	Collection    string
	ContextLines  int // Lines of preceding text given to expand; default 10.
	Concurrency   int // Markers resolved at once; <= 1 is sequential.
	MaxWords      int // Default word cap for expand when max_words is absent.
	Strict        bool
	CitationStyle citation.Style
	SearchType    string // Default for markers without type/search_type.
	AnswerFormat  string // Default for markers without format/answer_format.
	Temperature   float64

	// Progress, if set, is called after each marker resolves. It may be
	// called from several goroutines when Concurrency > 1.
	Progress func(done, total int, ec ExpandedContent)
}

// ExpandText resolves all markers in text and splices successful results
// back in. Failed markers keep their original lines. The only error
// returned is the context's.
func (e *Expander) ExpandText(ctx context.Context, text string) (*ExpandResult, error) {
	log := orDefault(e.Log)
	markers, warnings := marker.ParseWithOptions(text, marker.Options{Strict: e.Strict})
	for _, w := range warnings {
		log.Warn("unpaired directive", "line", w.Line+1, "message", w.Message)
	}

	res := &ExpandResult{Text: text, Warnings: warnings}
	if len(markers) == 0 {
		return res, nil
	}
	log.Info("markers found", "count", len(markers), "collection", e.Collection)

	for i := range markers {
		m := &markers[i]
		if m.Remapped() {
			log.Warn("unknown operation, using expand", "line", m.StartLine+1, "op", m.RawOperation)
		}
		e.applyDefaults(m)
	}

	res.Expansions = make([]ExpandedContent, len(markers))
	var done atomic.Int32
	resolve := func(i int) {
		ec := e.ExpandMarker(ctx, markers[i], text)
		res.Expansions[i] = ec
		n := int(done.Add(1))
		if ec.Success {
			log.Debug("marker expanded", "marker", i, "op", ec.Marker.Operation)
		} else {
			log.Warn("marker failed", "marker", i, "op", ec.Marker.Operation, "error", ec.Error)
		}
		if e.Progress != nil {
			e.Progress(n, len(markers), ec)
		}
	}

	if e.Concurrency <= 1 {
		for i := range markers {
			resolve(i)
		}
	} else {
		p := pool.New().WithMaxGoroutines(e.Concurrency)
		for i := range markers {
			p.Go(func() { resolve(i) })
		}
		p.Wait()
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// Footnote conversion touches generated text only, numbered in
	// document order after any labels the draft already has.
	var footnotes *citation.Footnoter
	if e.CitationStyle == citation.StyleFootnote {
		footnotes = citation.NewFootnoter(text)
	}
	var (
		replacements []marker.Replacement
		collected    []citation.Citation
	)
	for _, ec := range res.Expansions {
		if !ec.Success {
			continue
		}
		out := ec.Text
		if footnotes != nil {
			out = footnotes.Convert(out)
		}
		replacements = append(replacements, marker.Replacement{Marker: ec.Marker, Text: out})
		collected = append(collected, ec.Citations...)
	}
	res.Text = marker.ReplaceAll(text, replacements)

	if footnotes != nil {
		if defs := footnotes.Definitions(collected); defs != "" {
			res.Text = strings.TrimRight(res.Text, "\n") + "\n\n" + defs + "\n"
		}
	}
	return res, nil
}

func (e *Expander) applyDefaults(m *marker.Marker) {
	if _, ok := firstParam(m.Params, "type", "search_type"); !ok && e.SearchType != "" {
		m.Params = append(m.Params, marker.Param{Key: "type", Value: e.SearchType})
	}
	if _, ok := firstParam(m.Params, "format", "answer_format"); !ok && e.AnswerFormat != "" {
		m.Params = append(m.Params, marker.Param{Key: "format", Value: e.AnswerFormat})
	}
}

func firstParam(p marker.Params, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := p.Get(k); ok {
			return v, true
		}
	}
	return "", false
}

// ExpandMarker resolves a single marker against the unmodified document.
// Failures are reported in the result, never returned.
func (e *Expander) ExpandMarker(ctx context.Context, m marker.Marker, fullText string) ExpandedContent {
	if m.Operation.RequiresLLM() && e.LLM == nil {
		return failed(m, fmt.Errorf("%w for %s operation", ErrLLMRequired, m.Operation))
	}

	var (
		ec  ExpandedContent
		err error
	)
	switch m.Operation {
	case marker.OpExpand:
		ec, err = e.expand(ctx, m, fullText)
	case marker.OpEvidence:
		ec, err = e.evidence(ctx, m)
	case marker.OpCitations:
		ec, err = e.citations(ctx, m)
	case marker.OpClarity:
		ec, err = e.clarity(ctx, m)
	case marker.OpContradict:
		ec, err = e.contradict(ctx, m)
	default:
		err = fmt.Errorf("unsupported operation %q", m.Operation)
	}
	if err != nil {
		return failed(m, err)
	}
	ec.Marker = m
	ec.Success = true
	return ec
}

// BuildQuery derives the expand question: "heading: a, b" from bullets,
// the bare bullets without a heading, else a prefix of the content.
func BuildQuery(m marker.Marker) string {
	if bullets := m.Bullets(); len(bullets) > 0 {
		topics := strings.Join(bullets, ", ")
		if m.Heading != "" {
			return m.Heading + ": " + topics
		}
		return topics
	}
	if c := strings.TrimSpace(m.Content); c != "" {
		return prefix(c, queryPrefixLen)
	}
	return m.Heading
}

func (e *Expander) expand(ctx context.Context, m marker.Marker, fullText string) (ExpandedContent, error) {
	maxWords := e.MaxWords
	if v, ok := m.Params.Get("max_words"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return ExpandedContent{}, fmt.Errorf("invalid max_words %q", v)
		}
		maxWords = n
	}
	lines := e.ContextLines
	if lines <= 0 {
		lines = 10
	}
	heading := m.Heading
	if heading == "" {
		heading = "Content"
	}

	gen := SectionGenerator{RAG: e.RAG, Collection: e.Collection, Log: e.Log}
	section, err := gen.Generate(ctx, SectionRequest{
		Heading:  heading,
		Query:    BuildQuery(m),
		Context:  marker.ExtractContext(fullText, m, lines),
		MaxWords: maxWords,
	})
	if err != nil {
		return ExpandedContent{}, err
	}
	return ExpandedContent{Text: section.Content, Citations: section.Citations}, nil
}

func (e *Expander) query(ctx context.Context, question string, m marker.Marker) (*rag.QueryResponse, error) {
	return e.RAG.Query(ctx, rag.QueryRequest{
		Collection:   e.Collection,
		Question:     question,
		SearchType:   m.Params.Lookup("adaptive", "type", "search_type"),
		AnswerFormat: m.Params.Lookup("default", "format", "answer_format"),
	})
}

func (e *Expander) evidence(ctx context.Context, m marker.Marker) (ExpandedContent, error) {
	resp, err := e.query(ctx, prefix(m.Content, queryPrefixLen), m)
	if err != nil {
		return ExpandedContent{}, err
	}
	if strings.TrimSpace(resp.Answer) == "" {
		return ExpandedContent{}, fmt.Errorf("%w: no evidence found", ErrEmptyAnswer)
	}
	return ExpandedContent{
		Text:      m.Content + "\n\n" + resp.Answer + "\n",
		Citations: citation.FromSources(resp.Sources, evidenceCitations),
	}, nil
}

func (e *Expander) citations(ctx context.Context, m marker.Marker) (ExpandedContent, error) {
	resp, err := e.query(ctx, m.Content, m)
	if err != nil {
		return ExpandedContent{}, err
	}
	if strings.TrimSpace(resp.Answer) == "" {
		return ExpandedContent{}, fmt.Errorf("%w: no citations found", ErrEmptyAnswer)
	}
	return ExpandedContent{
		Text:      resp.Answer,
		Citations: citation.FromSources(resp.Sources, citationsCitations),
	}, nil
}

func (e *Expander) clarity(ctx context.Context, m marker.Marker) (ExpandedContent, error) {
	out, err := e.LLM.Complete(ctx, llm.ClarityPrompt(m.Content), clarityMaxTokens, e.temperature())
	if err != nil {
		return ExpandedContent{}, fmt.Errorf("clarity: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return ExpandedContent{}, fmt.Errorf("clarity: %w", llm.ErrEmptyCompletion)
	}
	return ExpandedContent{Text: out}, nil
}

func (e *Expander) contradict(ctx context.Context, m marker.Marker) (ExpandedContent, error) {
	gen := Counterarguments{RAG: e.RAG, LLM: e.LLM, Temperature: e.Temperature, Log: e.Log}
	report, err := gen.Generate(ctx, m.Content, CounterOptions{
		Collection: e.Collection,
		Depth:      DepthStandard,
		Synthesis:  true,
	})
	if err != nil {
		return ExpandedContent{}, err
	}

	items := report.Contradicting
	if len(items) > contradictItems {
		items = items[:contradictItems]
	}
	parts := []string{m.Content, "", "**Contradicting Evidence:**", ""}
	cites := make([]citation.Citation, 0, len(items))
	for i, ev := range items {
		parts = append(parts,
			fmt.Sprintf("%d. %s", i+1, ev.Source.Text),
			"   - "+ev.Source.Citation,
			"",
		)
		cites = append(cites, citation.FromSource(i+1, ev.Source))
	}
	if report.Synthesis != "" {
		parts = append(parts, "**Analysis:**", report.Synthesis)
	}
	return ExpandedContent{Text: strings.Join(parts, "\n"), Citations: cites}, nil
}

func (e *Expander) temperature() float64 {
	if e.Temperature > 0 {
		return e.Temperature
	}
	return DefaultTemperature
}

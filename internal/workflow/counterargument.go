package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/acadwrite/internal/chunker"
	"github.com/dgallion1/acadwrite/internal/llm"
	"github.com/dgallion1/acadwrite/internal/rag"
)

// Depth scales how many sources are gathered per side.
type Depth string

const (
	DepthQuick    Depth = "quick"
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

func ParseDepth(s string) (Depth, error) {
	switch d := Depth(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DepthStandard, nil
	case DepthQuick, DepthStandard, DepthDeep:
		return d, nil
	}
	return "", fmt.Errorf("unknown depth %q (want quick, standard or deep)", s)
}

// sources returns the per-side limit for base at this depth.
func (d Depth) sources(base int) int {
	switch d {
	case DepthDeep:
		return base * 2
	case DepthQuick:
		return max(base/2, 1)
	}
	return base
}

const (
	synthesisMaxTokens = 200
	keyPointMaxLen     = 200
	// NoSynthesis replaces the synthesis when the LLM call fails.
	NoSynthesis = "Unable to generate synthesis."
)

// Evidence is one source on one side of a claim.
type Evidence struct {
	Source    rag.Source `json:"source"`
	KeyPoint  string     `json:"key_point"`
	Relevance string     `json:"relevance"`
}

// Report holds both sides of the analysis of a claim.
type Report struct {
	OriginalClaim string     `json:"original_claim"`
	InvertedClaim string     `json:"inverted_claim"`
	Supporting    []Evidence `json:"supporting_evidence"`
	Contradicting []Evidence `json:"contradicting_evidence"`
	Synthesis     string     `json:"synthesis,omitempty"`
	Depth         Depth      `json:"depth"`
}

// CounterOptions configures one Generate call.
type CounterOptions struct {
	Collection        string
	Depth             Depth
	Synthesis         bool
	MaxSourcesPerSide int // Default 5, before depth scaling.
}

// Counterarguments gathers supporting and opposing evidence for claims.
type Counterarguments struct {
	RAG         RAG
	LLM         Completer
	Temperature float64
	Log         *slog.Logger
}

// Generate runs, in order: the supporting query, claim inversion, the
// opposing query, evidence extraction and the optional synthesis. A failed
// synthesis degrades to NoSynthesis.
func (c *Counterarguments) Generate(ctx context.Context, claim string, opts CounterOptions) (*Report, error) {
	if c.LLM == nil {
		return nil, fmt.Errorf("counterarguments: %w", ErrLLMRequired)
	}
	if opts.MaxSourcesPerSide <= 0 {
		opts.MaxSourcesPerSide = 5
	}
	if opts.Depth == "" {
		opts.Depth = DepthStandard
	}
	limit := opts.Depth.sources(opts.MaxSourcesPerSide)
	log := orDefault(c.Log).With("op", "contradict")

	supporting, err := c.RAG.Query(ctx, rag.QueryRequest{
		Collection: opts.Collection,
		Question:   claim,
		SearchType: "vector",
		MaxSources: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query supporting evidence: %w", err)
	}

	inverted, err := c.LLM.Complete(ctx, llm.InvertClaimPrompt(claim), 100, c.temperature())
	if err != nil {
		return nil, fmt.Errorf("invert claim: %w", err)
	}
	inverted = strings.TrimSpace(inverted)
	if inverted == "" {
		return nil, fmt.Errorf("invert claim: %w", llm.ErrEmptyCompletion)
	}
	log.Debug("claim inverted", "inverted", inverted)

	opposing, err := c.RAG.Query(ctx, rag.QueryRequest{
		Collection: opts.Collection,
		Question:   inverted,
		SearchType: "vector",
		MaxSources: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query contradicting evidence: %w", err)
	}

	report := &Report{
		OriginalClaim: claim,
		InvertedClaim: inverted,
		Supporting:    evidenceList(supporting.Sources, limit, "Supports original claim"),
		Contradicting: evidenceList(opposing.Sources, limit, "Supports opposing view"),
		Depth:         opts.Depth,
	}

	if opts.Synthesis {
		report.Synthesis = c.synthesize(ctx, log, report)
	}
	return report, nil
}

func (c *Counterarguments) synthesize(ctx context.Context, log *slog.Logger, r *Report) string {
	prompt := llm.SynthesisPrompt(r.OriginalClaim, r.InvertedClaim, keyPoints(r.Supporting), keyPoints(r.Contradicting))
	out, err := c.LLM.Complete(ctx, prompt, synthesisMaxTokens, c.temperature())
	if err != nil {
		log.Warn("synthesis failed", "error", err)
		return NoSynthesis
	}
	if out = strings.TrimSpace(out); out == "" {
		return NoSynthesis
	}
	return out
}

func (c *Counterarguments) temperature() float64 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return DefaultTemperature
}

func evidenceList(sources []rag.Source, limit int, relevance string) []Evidence {
	if len(sources) > limit {
		sources = sources[:limit]
	}
	out := make([]Evidence, 0, len(sources))
	for _, s := range sources {
		out = append(out, Evidence{Source: s, KeyPoint: KeyPoint(s.Text), Relevance: relevance})
	}
	return out
}

func keyPoints(ev []Evidence) []string {
	out := make([]string, len(ev))
	for i, e := range ev {
		out[i] = e.KeyPoint
	}
	return out
}

// KeyPoint returns the first sentence of text when it fits in 80% of the
// key point length, else a hard truncation with an ellipsis.
func KeyPoint(text string) string {
	text = strings.TrimSpace(text)
	if sentences := chunker.SplitSentences(text); len(sentences) > 0 {
		if first := sentences[0]; len(first) <= keyPointMaxLen*8/10 {
			return first
		}
	}
	return strings.TrimSpace(ellipsize(text, keyPointMaxLen))
}

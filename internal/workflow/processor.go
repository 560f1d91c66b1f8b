package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/acadwrite/internal/chunker"
	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/llm"
	"github.com/dgallion1/acadwrite/internal/rag"
)

// DocOperation is a whole-document processing pass.
type DocOperation string

const (
	FindCitations      DocOperation = "find_citations"
	AddEvidence        DocOperation = "add_evidence"
	ImproveClarity     DocOperation = "improve_clarity"
	FindContradictions DocOperation = "find_contradictions"
)

var DocOperations = []DocOperation{FindCitations, AddEvidence, ImproveClarity, FindContradictions}

func ParseDocOperation(s string) (DocOperation, error) {
	op := DocOperation(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(DocOperations, op) {
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// RequiresLLM reports whether the operation needs a completion service.
func (o DocOperation) RequiresLLM() bool {
	return o == ImproveClarity || o == FindContradictions
}

const clarityMinAvgWords = 25

// AddedCitation records a citation inserted after a claim.
type AddedCitation struct {
	Claim    string            `json:"claim"`
	Inline   string            `json:"citation"`
	Citation citation.Citation `json:"source"`
}

// Contradiction records opposing sources found for a claim.
type Contradiction struct {
	Claim    string       `json:"original_claim"`
	Inverted string       `json:"inverted_claim"`
	Sources  []rag.Source `json:"contradicting_sources"`
}

// ProcessedChunk pairs a chunk with its processed text and the side
// output of the operation.
type ProcessedChunk struct {
	Original       chunker.Chunk   `json:"original"`
	Text           string          `json:"processed_text"`
	Operation      DocOperation    `json:"operation"`
	CitationsAdded []AddedCitation `json:"citations_added,omitempty"`
	EvidenceAdded  []rag.Source    `json:"evidence_added,omitempty"`
	Improvements   []string        `json:"improvements,omitempty"`
	Contradictions []Contradiction `json:"contradictions,omitempty"`
	Errors         []string        `json:"errors,omitempty"`
}

// ProcessedDocument aggregates one or more passes over a document.
type ProcessedDocument struct {
	OriginalText        string           `json:"original_text"`
	Text                string           `json:"processed_text"`
	Operations          []DocOperation   `json:"operations"`
	Chunks              []ProcessedChunk `json:"chunks"`
	ChunksProcessed     int              `json:"chunks_processed"`
	ChunksFailed        int              `json:"chunks_failed"`
	CitationsAdded      int              `json:"citations_added"`
	EvidenceAdded       int              `json:"evidence_added"`
	Improvements        int              `json:"improvements"`
	ContradictionsFound int              `json:"contradictions_found"`
}

// Processor applies document operations chunk by chunk.
type Processor struct {
	RAG         RAG
	LLM         Completer
	Log         *slog.Logger
	Collection  string
	Chunking    chunker.Config
	Concurrency int
	Temperature float64

	// Progress, if set, is called after each non-heading chunk.
	Progress func(done, total int, pc ProcessedChunk)
}

// Process runs ops in order, each pass over the output of the previous
// one. Per-claim and per-chunk failures are recorded on the chunk; only a
// missing LLM, an unknown operation or cancellation return an error.
func (p *Processor) Process(ctx context.Context, text string, ops ...DocOperation) (*ProcessedDocument, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("no operations given")
	}
	for _, op := range ops {
		if !slices.Contains(DocOperations, op) {
			return nil, fmt.Errorf("unknown operation %q", op)
		}
		if op.RequiresLLM() && p.LLM == nil {
			return nil, fmt.Errorf("%s: %w", op, ErrLLMRequired)
		}
	}

	doc := &ProcessedDocument{OriginalText: text, Text: text, Operations: ops}
	for _, op := range ops {
		chunks, err := p.pass(ctx, doc.Text, op)
		if err != nil {
			return doc, err
		}
		doc.Text = reassemble(doc.Text, chunks)
		doc.Chunks = append(doc.Chunks, chunks...)
		for _, c := range chunks {
			if c.Original.Type == chunker.TypeHeading {
				continue
			}
			doc.ChunksProcessed++
			if len(c.Errors) > 0 {
				doc.ChunksFailed++
			}
			doc.CitationsAdded += len(c.CitationsAdded)
			doc.EvidenceAdded += len(c.EvidenceAdded)
			doc.Improvements += len(c.Improvements)
			doc.ContradictionsFound += len(c.Contradictions)
		}
	}
	return doc, nil
}

func (p *Processor) pass(ctx context.Context, text string, op DocOperation) ([]ProcessedChunk, error) {
	chunks := chunker.Split(text, p.Chunking)
	out := make([]ProcessedChunk, len(chunks))
	log := orDefault(p.Log).With("op", string(op))

	total := 0
	for _, c := range chunks {
		if c.Type != chunker.TypeHeading {
			total++
		}
	}
	done := 0
	report := func(pc ProcessedChunk) {
		if p.Progress != nil {
			p.Progress(done, total, pc)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Concurrency, 1))
	var mu sync.Mutex

	for i, c := range chunks {
		if c.Type == chunker.TypeHeading {
			out[i] = ProcessedChunk{Original: c, Text: c.Text, Operation: op}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pc := p.processChunk(gctx, c, op)
			for _, e := range pc.Errors {
				log.Warn("chunk step failed", "start", c.StartPos, "error", e)
			}
			out[i] = pc
			mu.Lock()
			done++
			report(pc)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, ctx.Err()
}

func (p *Processor) processChunk(ctx context.Context, c chunker.Chunk, op DocOperation) ProcessedChunk {
	switch op {
	case FindCitations:
		return p.findCitations(ctx, c)
	case AddEvidence:
		return p.addEvidence(ctx, c)
	case ImproveClarity:
		return p.improveClarity(ctx, c)
	case FindContradictions:
		return p.findContradictions(ctx, c)
	}
	return ProcessedChunk{Original: c, Text: c.Text, Operation: op, Errors: []string{"unknown operation"}}
}

var (
	percentRe     = regexp.MustCompile(`\d+%`)
	decimalRe     = regexp.MustCompile(`\d+\.\d+`)
	comparativeRe = regexp.MustCompile(`(?i)\b(better|faster|more|less)\s+\w+\s+than\b`)
	claimPhrases  = []string{"research shows", "studies indicate", "has been shown", "is known"}

	citedInlineRe   = regexp.MustCompile(`\[([^,\]]+),\s*(\d{4}|n\.d\.)`)
	citedFootnoteRe = regexp.MustCompile(`\[\^\d+\]`)
)

// ExtractClaims returns sentences that look like factual claims: they
// carry a statistic, a research phrase or a comparative.
func ExtractClaims(text string) []string {
	var claims []string
	for _, s := range chunker.SplitSentences(text) {
		lower := strings.ToLower(s)
		isClaim := percentRe.MatchString(s) || decimalRe.MatchString(s) || comparativeRe.MatchString(s)
		for _, phrase := range claimPhrases {
			if isClaim {
				break
			}
			isClaim = strings.Contains(lower, phrase)
		}
		if isClaim {
			claims = append(claims, s)
		}
	}
	return claims
}

// HasCitation looks for an inline or footnote citation within the claim
// or the 50 bytes after it.
func HasCitation(claim, text string) bool {
	pos := strings.Index(text, claim)
	if pos < 0 {
		return false
	}
	end := min(pos+len(claim)+50, len(text))
	window := text[pos:end]
	return citedInlineRe.MatchString(window) || citedFootnoteRe.MatchString(window)
}

func (p *Processor) query(ctx context.Context, question string, n int) (*rag.QueryResponse, error) {
	return p.RAG.Query(ctx, rag.QueryRequest{Collection: p.Collection, Question: question, MaxSources: n})
}

func (p *Processor) findCitations(ctx context.Context, c chunker.Chunk) ProcessedChunk {
	pc := ProcessedChunk{Original: c, Text: c.Text, Operation: FindCitations}
	for _, claim := range ExtractClaims(c.Text) {
		if HasCitation(claim, c.Text) {
			continue
		}
		question := claim
		if c.Context != "" {
			question = c.Context + ": " + claim
		}
		resp, err := p.query(ctx, question, 2)
		if err != nil {
			pc.Errors = append(pc.Errors, fmt.Sprintf("claim %q: %v", ellipsize(claim, 50), err))
			continue
		}
		if len(resp.Sources) == 0 {
			continue
		}
		cite := citation.FromSource(len(pc.CitationsAdded)+1, resp.Sources[0])
		inline := cite.Inline()
		pc.Text = strings.Replace(pc.Text, claim, claim+" "+inline, 1)
		pc.CitationsAdded = append(pc.CitationsAdded, AddedCitation{Claim: claim, Inline: inline, Citation: cite})
	}
	return pc
}

func (p *Processor) addEvidence(ctx context.Context, c chunker.Chunk) ProcessedChunk {
	pc := ProcessedChunk{Original: c, Text: c.Text, Operation: AddEvidence}
	sentences := chunker.SplitSentences(c.Text)
	if len(sentences) == 0 {
		return pc
	}

	resp, err := p.query(ctx, "Evidence supporting: "+sentences[0], 3)
	if err != nil {
		pc.Errors = append(pc.Errors, err.Error())
		return pc
	}
	if len(resp.Sources) == 0 {
		return pc
	}
	sources := resp.Sources[:min(len(resp.Sources), 3)]

	lines := []string{pc.Text + "\n\nSupporting evidence:"}
	for i, s := range sources {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, citation.FromSource(i+1, s).Inline(), prefix(s.Text, 200)+"..."))
	}
	pc.Text = strings.Join(lines, "\n")
	pc.EvidenceAdded = sources
	return pc
}

func (p *Processor) improveClarity(ctx context.Context, c chunker.Chunk) ProcessedChunk {
	pc := ProcessedChunk{Original: c, Text: c.Text, Operation: ImproveClarity}
	sentences := chunker.SplitSentences(c.Text)
	if len(sentences) == 0 || countWords(c.Text)/len(sentences) < clarityMinAvgWords {
		return pc
	}

	temp := p.Temperature
	if temp <= 0 {
		temp = DefaultTemperature
	}
	out, err := p.LLM.Complete(ctx, llm.ClarityPrompt(c.Text), clarityMaxTokens, temp)
	if err != nil {
		pc.Errors = append(pc.Errors, err.Error())
		return pc
	}
	if out = strings.TrimSpace(out); out != "" {
		pc.Text = out
		pc.Improvements = append(pc.Improvements, "clarity")
	}
	return pc
}

func (p *Processor) findContradictions(ctx context.Context, c chunker.Chunk) ProcessedChunk {
	pc := ProcessedChunk{Original: c, Text: c.Text, Operation: FindContradictions}
	temp := p.Temperature
	if temp <= 0 {
		temp = DefaultTemperature
	}
	for _, claim := range ExtractClaims(c.Text) {
		inverted, err := p.LLM.Complete(ctx, llm.InvertClaimPrompt(claim), 100, temp)
		if err == nil && strings.TrimSpace(inverted) == "" {
			err = llm.ErrEmptyCompletion
		}
		if err != nil {
			pc.Errors = append(pc.Errors, fmt.Sprintf("invert %q: %v", ellipsize(claim, 50), err))
			continue
		}
		inverted = strings.TrimSpace(inverted)

		resp, err := p.query(ctx, inverted, 2)
		if err != nil {
			pc.Errors = append(pc.Errors, fmt.Sprintf("claim %q: %v", ellipsize(claim, 50), err))
			continue
		}
		if len(resp.Sources) > 0 {
			pc.Contradictions = append(pc.Contradictions, Contradiction{Claim: claim, Inverted: inverted, Sources: resp.Sources})
		}
	}
	return pc
}

// reassemble splices changed chunk text back over its source span,
// last chunk first so earlier offsets stay valid. Untouched regions keep
// their original bytes.
func reassemble(text string, chunks []ProcessedChunk) string {
	ordered := slices.Clone(chunks)
	slices.SortStableFunc(ordered, func(a, b ProcessedChunk) int {
		return b.Original.StartPos - a.Original.StartPos
	})

	floor := len(text) + 1
	for _, pc := range ordered {
		start, end := pc.Original.StartPos, pc.Original.EndPos
		if pc.Text == pc.Original.Text || start < 0 || end > len(text) || start > end || end > floor {
			continue
		}
		text = text[:start] + pc.Text + text[end:]
		floor = start
	}
	return text
}

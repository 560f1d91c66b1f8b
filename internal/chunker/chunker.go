package chunker

import "strings"

// Chunk is a semantic unit of markdown content with its position and
// heading context in the source document. Chunks are never mutated after
// Split returns them.
type Chunk struct {
	Heading  string    `json:"heading"`
	Text     string    `json:"text"`
	Type     BlockType `json:"type"`
	Context  string    `json:"context"`
	StartPos int       `json:"start_pos"`
	EndPos   int       `json:"end_pos"`
	Level    int       `json:"level"`
}

// Config controls paragraph sub-chunking.
type Config struct {
	TargetTokens int // Advisory target per paragraph sub-chunk.
	MaxTokens    int // Hard ceiling per paragraph sub-chunk.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TargetTokens: 300,
		MaxTokens:    500,
	}
}

type line struct {
	text  string
	start int
}

func (l line) end() int { return l.start + len(l.text) }

type section struct {
	heading string
	level   int
	context string
	head    line
	body    []line
}

// Split walks a markdown document and produces chunks in document order.
// Heading chunks interleave with the content chunks of their section;
// fenced code, lists and quotes are emitted whole, paragraphs are split
// into sentence-aligned sub-chunks no larger than cfg.MaxTokens unless a
// single sentence is larger on its own.
func Split(document string, cfg Config) []Chunk {
	if cfg.TargetTokens <= 0 {
		cfg.TargetTokens = 300
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}

	var chunks []Chunk
	for _, sec := range splitSections(document) {
		base := Chunk{Heading: sec.heading, Context: sec.context}
		if sec.level > 0 {
			h := base
			h.Text = sec.head.text
			h.Type = TypeHeading
			h.StartPos = sec.head.start
			h.EndPos = sec.head.end()
			h.Level = sec.level
			chunks = append(chunks, h)
		}

		for _, b := range splitBlocks(sec.body) {
			text := joinLines(b)
			typ := Classify(text)
			if typ == TypeParagraph {
				chunks = append(chunks, splitParagraph(b, base, cfg.MaxTokens)...)
				continue
			}
			c := base
			c.Text = text
			c.Type = typ
			c.StartPos = b[0].start
			c.EndPos = b[len(b)-1].end()
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// splitSections segments the document at ATX headings outside fenced
// code. Content before the first heading forms a preamble section with
// level 0.
func splitSections(document string) []section {
	var (
		sections []section
		stack    HeadingStack
		cur      section
		inFence  bool
	)
	for _, ln := range splitLines(document) {
		if isFence(ln.text) {
			inFence = !inFence
		}
		if !inFence {
			if text, level, ok := ParseHeading(ln.text); ok {
				if cur.level > 0 || !allBlank(cur.body) {
					sections = append(sections, cur)
				}
				stack.Push(text, level)
				cur = section{heading: text, level: level, context: stack.Path(), head: ln}
				continue
			}
		}
		cur.body = append(cur.body, ln)
	}
	if cur.level > 0 || !allBlank(cur.body) {
		sections = append(sections, cur)
	}
	return sections
}

type blockKind int

const (
	kindNone blockKind = iota
	kindParagraph
	kindList
	kindQuote
	kindCode
)

// splitBlocks groups section lines into blocks. Blank lines end a block
// except inside a fence or between items of the same list; starting a
// fence, list or quote flushes whatever block was open.
func splitBlocks(body []line) [][]line {
	var (
		blocks [][]line
		cur    []line
		kind   = kindNone
	)
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, cur)
		}
		cur = nil
		kind = kindNone
	}

	for _, ln := range body {
		t := ln.text
		if kind == kindCode {
			cur = append(cur, ln)
			if isFence(t) {
				flush()
			}
			continue
		}

		switch {
		case isFence(t):
			flush()
			kind = kindCode
			cur = append(cur, ln)
		case isBlank(t):
			flush()
		case isListItem(t):
			if kind != kindList {
				flush()
				kind = kindList
			}
			cur = append(cur, ln)
		case kind == kindList && isIndented(t):
			cur = append(cur, ln)
		case isQuoteLine(t):
			if kind != kindQuote {
				flush()
				kind = kindQuote
			}
			cur = append(cur, ln)
		default:
			if kind != kindParagraph {
				flush()
				kind = kindParagraph
			}
			cur = append(cur, ln)
		}
	}
	flush()
	return blocks
}

// splitParagraph greedily packs sentences into sub-chunks. Each sub-chunk's
// text is the literal source span from its first to its last sentence.
func splitParagraph(b []line, base Chunk, maxTokens int) []Chunk {
	text := joinLines(b)
	offset := b[0].start

	var chunks []Chunk
	emit := func(start, end int) {
		c := base
		c.Type = TypeParagraph
		c.Text = text[start:end]
		c.StartPos = offset + start
		c.EndPos = offset + end
		chunks = append(chunks, c)
	}

	curStart, curEnd := -1, 0
	for _, s := range sentenceSpans(text) {
		if curStart >= 0 {
			if EstimateTokens(text[curStart:s.end]) <= maxTokens {
				curEnd = s.end
				continue
			}
			emit(curStart, curEnd)
		}
		curStart, curEnd = s.start, s.end
	}
	if curStart >= 0 {
		emit(curStart, curEnd)
	}
	return chunks
}

func splitLines(document string) []line {
	var out []line
	start := 0
	for i := 0; i <= len(document); i++ {
		if i == len(document) || document[i] == '\n' {
			out = append(out, line{text: document[start:i], start: start})
			start = i + 1
		}
	}
	return out
}

func joinLines(lines []line) string {
	parts := make([]string, len(lines))
	for i, ln := range lines {
		parts[i] = ln.text
	}
	return strings.Join(parts, "\n")
}

func allBlank(lines []line) bool {
	for _, ln := range lines {
		if !isBlank(ln.text) {
			return false
		}
	}
	return true
}

package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations never end a sentence when followed by a period.
var abbreviations = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
	"sr": true, "jr": true, "st": true, "etc": true, "vs": true,
	"e.g": true, "i.e": true, "cf": true, "p": true, "pp": true,
	"vol": true, "fig": true, "al": true, "et": true, "no": true,
	"ch": true, "eq": true, "ed": true, "eds": true,
}

type span struct {
	start, end int
}

// SplitSentences splits text into trimmed sentences. Empty input yields nil;
// text without terminal punctuation yields a single sentence.
func SplitSentences(text string) []string {
	spans := sentenceSpans(text)
	if len(spans) == 0 {
		return nil
	}
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, text[s.start:s.end])
	}
	return out
}

// sentenceSpans returns byte ranges of trimmed sentences within text, so
// callers can map sentences back to document offsets.
func sentenceSpans(text string) []span {
	var spans []span
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		end, ok := boundaryAfter(text, i)
		if !ok {
			continue
		}
		if c == '.' && isAbbreviation(text[start:i]) {
			continue
		}
		if s, ok := trimSpan(text, start, end); ok {
			spans = append(spans, s)
		}
		start = end
		i = end - 1
	}
	if s, ok := trimSpan(text, start, len(text)); ok {
		spans = append(spans, s)
	}
	return spans
}

// boundaryAfter reports whether the punctuation at i ends a sentence: it
// must be followed (after optional closing quotes or brackets) by
// whitespace and then a capital letter. It returns the offset where the
// sentence ends.
func boundaryAfter(text string, i int) (int, bool) {
	j := i + 1
	for j < len(text) && strings.IndexByte(`"')]`, text[j]) >= 0 {
		j++
	}
	end := j
	if j >= len(text) || !isSpace(text[j]) {
		return 0, false
	}
	for j < len(text) && isSpace(text[j]) {
		j++
	}
	for j < len(text) && strings.IndexByte(`"'(`, text[j]) >= 0 {
		j++
	}
	if j >= len(text) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(text[j:])
	if !unicode.IsUpper(r) {
		return 0, false
	}
	return end, true
}

// isAbbreviation checks the word immediately before a period.
func isAbbreviation(before string) bool {
	idx := strings.LastIndexFunc(before, func(r rune) bool {
		return unicode.IsSpace(r) || r == '(' || r == '[' || r == '"'
	})
	word := before
	if idx >= 0 {
		_, size := utf8.DecodeRuneInString(before[idx:])
		word = before[idx+size:]
	}
	word = strings.ToLower(word)
	if word == "" {
		return false
	}
	if abbreviations[word] {
		return true
	}
	// Initials: "J" in "J. Smith", "U.S" in "U.S. Army".
	for _, part := range strings.Split(word, ".") {
		if utf8.RuneCountInString(part) != 1 {
			return false
		}
		r, _ := utf8.DecodeRuneInString(part)
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func trimSpan(text string, start, end int) (span, bool) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return span{start: start, end: end}, end > start
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

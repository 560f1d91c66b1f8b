// Package workflow turns markers, chunks, claims and outlines into cited
// prose by combining the RAG and LLM collaborators.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/acadwrite/internal/rag"
)

// RAG answers questions against a document collection.
type RAG interface {
	Query(ctx context.Context, req rag.QueryRequest) (*rag.QueryResponse, error)
}

// Completer produces a single-shot text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

var (
	// ErrLLMRequired is returned when an operation needs a Completer and
	// none was configured.
	ErrLLMRequired = errors.New("LLM client required")
	// ErrEmptyAnswer marks a RAG response with a blank answer.
	ErrEmptyAnswer = errors.New("empty answer")
)

// DefaultTemperature is used when a workflow has no explicit temperature.
const DefaultTemperature = 0.1

// queryPrefixLen bounds how much marker or chunk text is sent as a question.
const queryPrefixLen = 200

func orDefault(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}

// prefix returns at most n bytes of s without splitting a rune.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ellipsize cuts s to n bytes and appends "..." when it was longer.
func ellipsize(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return prefix(s, n) + "..."
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

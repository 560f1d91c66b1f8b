package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dgallion1/acadwrite/internal/rag"
)

type stubRAG struct {
	mu     sync.Mutex
	reqs   []rag.QueryRequest
	events *[]string
	fn     func(req rag.QueryRequest) (*rag.QueryResponse, error)
}

func (s *stubRAG) Query(_ context.Context, req rag.QueryRequest) (*rag.QueryResponse, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	if s.events != nil {
		*s.events = append(*s.events, "rag:"+req.Question)
	}
	s.mu.Unlock()
	if s.fn == nil {
		return &rag.QueryResponse{}, nil
	}
	return s.fn(req)
}

func (s *stubRAG) requests() []rag.QueryRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rag.QueryRequest(nil), s.reqs...)
}

func answering(answer string, sources ...rag.Source) func(rag.QueryRequest) (*rag.QueryResponse, error) {
	return func(rag.QueryRequest) (*rag.QueryResponse, error) {
		return &rag.QueryResponse{Answer: answer, Sources: sources}, nil
	}
}

type stubLLM struct {
	mu      sync.Mutex
	prompts []string
	events  *[]string
	fn      func(prompt string, maxTokens int) (string, error)
}

func (s *stubLLM) Complete(_ context.Context, prompt string, maxTokens int, _ float64) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	if s.events != nil {
		*s.events = append(*s.events, "llm")
	}
	s.mu.Unlock()
	if s.fn == nil {
		return "", nil
	}
	return s.fn(prompt, maxTokens)
}

func (s *stubLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// inverting answers the claim-inversion prompt with inverted and every
// other prompt with rest.
func inverting(inverted, rest string) func(string, int) (string, error) {
	return func(prompt string, _ int) (string, error) {
		if strings.Contains(prompt, "OPPOSING or CONTRADICTING") {
			return inverted, nil
		}
		return rest, nil
	}
}

func source(surname, year string, page int, text string) rag.Source {
	return rag.Source{
		DocumentID:     "doc-" + strings.ToLower(surname),
		Citation:       fmt.Sprintf("%s, A. (%s). %s study. Journal.", surname, year, surname),
		InTextCitation: fmt.Sprintf("(%s, %s, p. %d)", surname, year, page),
		Text:           text,
		RelevanceScore: 0.9,
		ChunkMetadata:  rag.ChunkMetadata{PageNumber: page},
		DocumentMetadata: rag.DocumentMetadata{
			Title:           surname + " study",
			Authors:         []string{surname + ", A."},
			AuthorSurnames:  []string{surname},
			PublicationDate: year + "-01-01",
		},
	}
}

package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/acadwrite/internal/llm"
	"github.com/dgallion1/acadwrite/internal/rag"
)

func counterStubs(events *[]string) (*stubRAG, *stubLLM) {
	r := &stubRAG{events: events, fn: func(req rag.QueryRequest) (*rag.QueryResponse, error) {
		if req.Question == "remote work lowers productivity" {
			return &rag.QueryResponse{Sources: []rag.Source{source("Lee", "2021", 3, "Output fell. Teams drifted.")}}, nil
		}
		return &rag.QueryResponse{Sources: []rag.Source{
			source("Smith", "2020", 4, "Output rose by a third. Other details."),
			source("Jones", "2019", 9, "Workers reported focus."),
		}}, nil
	}}
	l := &stubLLM{events: events, fn: inverting("  remote work lowers productivity\n", "Both sides have merit.")}
	return r, l
}

func TestCounterarguments_Order(t *testing.T) {
	var events []string
	r, l := counterStubs(&events)
	c := &Counterarguments{RAG: r, LLM: l}

	rep, err := c.Generate(context.Background(), "Remote work raises productivity.", CounterOptions{Collection: "hr", Synthesis: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"rag:Remote work raises productivity.",
		"llm",
		"rag:remote work lowers productivity",
		"llm",
	}, events)

	assert.Equal(t, "remote work lowers productivity", rep.InvertedClaim)
	assert.Equal(t, DepthStandard, rep.Depth)
	require.Len(t, rep.Supporting, 2)
	require.Len(t, rep.Contradicting, 1)
	assert.Equal(t, "Output rose by a third.", rep.Supporting[0].KeyPoint)
	assert.Equal(t, "Supports original claim", rep.Supporting[0].Relevance)
	assert.Equal(t, "Supports opposing view", rep.Contradicting[0].Relevance)
	assert.Equal(t, "Both sides have merit.", rep.Synthesis)

	for _, req := range r.requests() {
		assert.Equal(t, "vector", req.SearchType)
		assert.Equal(t, 5, req.MaxSources)
		assert.Equal(t, "hr", req.Collection)
	}

	synth := l.prompts[1]
	assert.Contains(t, synth, "Supporting Evidence (2 sources):")
	assert.Contains(t, synth, "Output rose by a third.")
}

func TestCounterarguments_NoSynthesisRequested(t *testing.T) {
	r, l := counterStubs(nil)
	c := &Counterarguments{RAG: r, LLM: l}

	rep, err := c.Generate(context.Background(), "claim", CounterOptions{})
	require.NoError(t, err)
	assert.Empty(t, rep.Synthesis)
	assert.Equal(t, 1, l.calls())
}

func TestCounterarguments_SynthesisDegrades(t *testing.T) {
	r, _ := counterStubs(nil)
	l := &stubLLM{fn: func(prompt string, _ int) (string, error) {
		if strings.Contains(prompt, "OPPOSING or CONTRADICTING") {
			return "remote work lowers productivity", nil
		}
		return "", errors.New("rate limited")
	}}
	c := &Counterarguments{RAG: r, LLM: l}

	rep, err := c.Generate(context.Background(), "claim", CounterOptions{Synthesis: true})
	require.NoError(t, err)
	assert.Equal(t, NoSynthesis, rep.Synthesis)
}

func TestCounterarguments_Errors(t *testing.T) {
	t.Run("no llm", func(t *testing.T) {
		r := &stubRAG{}
		_, err := (&Counterarguments{RAG: r}).Generate(context.Background(), "claim", CounterOptions{})
		assert.ErrorIs(t, err, ErrLLMRequired)
		assert.Empty(t, r.requests())
	})
	t.Run("empty inversion", func(t *testing.T) {
		r := &stubRAG{}
		l := &stubLLM{fn: func(string, int) (string, error) { return " \n", nil }}
		_, err := (&Counterarguments{RAG: r, LLM: l}).Generate(context.Background(), "claim", CounterOptions{})
		assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
		assert.Len(t, r.requests(), 1)
	})
	t.Run("supporting query fails", func(t *testing.T) {
		r := &stubRAG{fn: func(rag.QueryRequest) (*rag.QueryResponse, error) { return nil, rag.ErrTimeout }}
		l := &stubLLM{}
		_, err := (&Counterarguments{RAG: r, LLM: l}).Generate(context.Background(), "claim", CounterOptions{})
		assert.ErrorIs(t, err, rag.ErrTimeout)
		assert.Zero(t, l.calls())
	})
}

func TestCounterarguments_Depth(t *testing.T) {
	tests := []struct {
		depth Depth
		base  int
		want  int
	}{
		{DepthQuick, 5, 2},
		{DepthQuick, 1, 1},
		{DepthStandard, 5, 5},
		{DepthDeep, 5, 10},
	}
	for _, tt := range tests {
		t.Run(string(tt.depth), func(t *testing.T) {
			r, l := counterStubs(nil)
			c := &Counterarguments{RAG: r, LLM: l}
			_, err := c.Generate(context.Background(), "claim", CounterOptions{Depth: tt.depth, MaxSourcesPerSide: tt.base})
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.requests()[0].MaxSources)
		})
	}
}

func TestParseDepth(t *testing.T) {
	d, err := ParseDepth("")
	require.NoError(t, err)
	assert.Equal(t, DepthStandard, d)

	d, err = ParseDepth(" Deep ")
	require.NoError(t, err)
	assert.Equal(t, DepthDeep, d)

	_, err = ParseDepth("thorough")
	assert.Error(t, err)
}

func TestKeyPoint(t *testing.T) {
	assert.Equal(t, "Short first sentence.", KeyPoint("Short first sentence. Second one here."))

	long := strings.Repeat("word ", 60)
	got := KeyPoint(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), keyPointMaxLen+3)

	assert.Equal(t, "", KeyPoint("  "))
}

func TestFormatReport(t *testing.T) {
	rep := &Report{
		OriginalClaim: "A raises B.",
		InvertedClaim: "A lowers B",
		Supporting: []Evidence{{
			Source:   source("Smith", "2020", 4, "x"),
			KeyPoint: "B rose.",
		}},
		Synthesis: "Mixed.",
	}

	out := FormatReport(rep)
	assert.True(t, strings.HasPrefix(out, "# Counterargument Analysis\n\n## Original Claim\n\n> A raises B.\n"))
	assert.Contains(t, out, "## Inverted Claim\n\n> A lowers B\n")
	assert.Contains(t, out, "## Supporting Evidence (1 sources)")
	assert.Contains(t, out, "### 1. Smith study")
	assert.Contains(t, out, "**Key Point:** B rose.")
	assert.Contains(t, out, "**Citation:** (Smith, 2020, p. 4)")
	assert.Contains(t, out, "**Relevance Score:** 0.90")
	assert.Contains(t, out, "## Contradicting Evidence (0 sources)\n\n*No contradicting evidence found.*")
	assert.Contains(t, out, "## Synthesis\n\nMixed.")

	rep.Synthesis = ""
	assert.NotContains(t, FormatReport(rep), "## Synthesis")
}

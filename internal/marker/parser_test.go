package marker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# Thesis

## Introduction

Background sentence.
<!-- ACADWRITE: expand max_words=300 style=formal -->
- AI in healthcare
- diagnostics
<!-- END ACADWRITE -->

### Methods

<!-- acadwrite: Evidence type=vector bogus -->
Existing paragraph.
<!-- end acadwrite -->
`

func TestParse_TwoMarkers(t *testing.T) {
	markers := Parse(sample)
	require.Len(t, markers, 2)

	m := markers[0]
	assert.Equal(t, OpExpand, m.Operation)
	assert.Equal(t, 5, m.StartLine)
	assert.Equal(t, 8, m.EndLine)
	assert.Equal(t, "- AI in healthcare\n- diagnostics", m.Content)
	assert.Equal(t, "Introduction", m.Heading)
	assert.Equal(t, 2, m.HeadingLevel)
	assert.Equal(t, "Thesis > Introduction", m.Context)
	assert.Equal(t, Params{{"max_words", "300"}, {"style", "formal"}}, m.Params)

	e := markers[1]
	assert.Equal(t, OpEvidence, e.Operation)
	assert.False(t, e.Remapped())
	assert.Equal(t, "Methods", e.Heading)
	assert.Equal(t, 3, e.HeadingLevel)
	assert.Equal(t, "Thesis > Introduction > Methods", e.Context)
	assert.Equal(t, Params{{"type", "vector"}}, e.Params, "tokens without '=' are ignored")
	assert.Greater(t, e.StartLine, m.EndLine)
}

func TestParse_NoMarkers(t *testing.T) {
	assert.Empty(t, Parse("# Just a doc\n\nNothing to do.\n"))
	assert.Empty(t, Parse(""))
}

func TestParse_UnterminatedDropped(t *testing.T) {
	doc := "# H\n<!-- ACADWRITE: expand -->\n- x\n"
	assert.Empty(t, Parse(doc))
}

func TestParse_OpenerBeforeCloserDropsFirst(t *testing.T) {
	doc := strings.Join([]string{
		"<!-- ACADWRITE: clarity -->",
		"orphan",
		"<!-- ACADWRITE: citations -->",
		"kept",
		"<!-- END ACADWRITE -->",
	}, "\n")
	markers := Parse(doc)
	require.Len(t, markers, 1)
	assert.Equal(t, OpCitations, markers[0].Operation)
	assert.Equal(t, 2, markers[0].StartLine)
	assert.Equal(t, "kept", markers[0].Content)
}

func TestParseWithOptions_StrictWarnings(t *testing.T) {
	doc := strings.Join([]string{
		"<!-- END ACADWRITE -->",
		"<!-- ACADWRITE: expand -->",
		"- x",
		"<!-- ACADWRITE: expand -->",
		"- y",
	}, "\n")

	markers, warnings := ParseWithOptions(doc, Options{Strict: true})
	assert.Empty(t, markers)
	require.Len(t, warnings, 3)
	assert.Equal(t, 0, warnings[0].Line)
	assert.Equal(t, 1, warnings[1].Line)
	assert.Equal(t, 3, warnings[2].Line)
	assert.Contains(t, warnings[2].String(), "line 4")

	_, lenient := ParseWithOptions(doc, Options{})
	assert.Nil(t, lenient)
}

func TestParse_UnknownOperationDefaultsToExpand(t *testing.T) {
	doc := "<!-- ACADWRITE: summarize -->\ntext\n<!-- END ACADWRITE -->"
	markers := Parse(doc)
	require.Len(t, markers, 1)
	assert.Equal(t, OpExpand, markers[0].Operation)
	assert.Equal(t, "summarize", markers[0].RawOperation)
	assert.True(t, markers[0].Remapped())
}

func TestParse_IgnoresDirectivesInsideFence(t *testing.T) {
	doc := strings.Join([]string{
		"```markdown",
		"<!-- ACADWRITE: expand -->",
		"example",
		"<!-- END ACADWRITE -->",
		"```",
	}, "\n")
	assert.Empty(t, Parse(doc))
}

func TestParse_Idempotent(t *testing.T) {
	assert.Equal(t, Parse(sample), Parse(sample))
}

func TestParseOperation(t *testing.T) {
	for _, op := range Operations {
		got, ok := ParseOperation(strings.ToUpper(string(op)))
		assert.True(t, ok)
		assert.Equal(t, op, got)
	}
	got, ok := ParseOperation("nope")
	assert.False(t, ok)
	assert.Equal(t, OpExpand, got)
}

func TestOperation_RequiresLLM(t *testing.T) {
	assert.True(t, OpClarity.RequiresLLM())
	assert.True(t, OpContradict.RequiresLLM())
	assert.False(t, OpExpand.RequiresLLM())
	assert.False(t, OpEvidence.RequiresLLM())
	assert.False(t, OpCitations.RequiresLLM())
}

func TestParams_Lookup(t *testing.T) {
	p := Params{{"search_type", "graph"}, {"format", ""}, {"type", "vector"}}
	assert.Equal(t, "vector", p.Lookup("adaptive", "type", "search_type"))
	assert.Equal(t, "default", p.Lookup("default", "format", "answer_format"))
	assert.Equal(t, map[string]string{"search_type": "graph", "format": "", "type": "vector"}, p.Map())
}

func TestMarker_Bullets(t *testing.T) {
	m := Marker{Content: "- one\n* two\nplain\n  + three\n-"}
	assert.Equal(t, []string{"one", "two", "three"}, m.Bullets())
}

func TestExtractContext(t *testing.T) {
	markers := Parse(sample)
	require.Len(t, markers, 2)

	assert.Equal(t, "## Introduction\nBackground sentence.", ExtractContext(sample, markers[0], 2))
	assert.Equal(t, "# Thesis\n## Introduction\nBackground sentence.", ExtractContext(sample, markers[0], 10))
	assert.Equal(t, "", ExtractContext(sample, markers[0], 0))

	ctx := ExtractContext(sample, markers[1], 3)
	assert.NotContains(t, ctx, "ACADWRITE")
	assert.Equal(t, "- AI in healthcare\n- diagnostics\n### Methods", ctx)
}

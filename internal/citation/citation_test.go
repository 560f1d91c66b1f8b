package citation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dgallion1/acadwrite/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCitationFormats(t *testing.T) {
	c := Citation{Author: "Smith", Title: "On Agile", Year: "2020", Page: 5}
	assert.Equal(t, "[Smith, 2020, p. 5]", c.Inline())
	assert.Equal(t, "[^3]: Smith (2020). On Agile. p.5", c.Footnote(3))
	assert.Equal(t, "smith2020", c.Key())
	assert.Equal(t, "@article{smith2020,\n  author = {Smith},\n  title = {On Agile},\n  year = {2020},\n  pages = {5},\n}", c.BibTeX(""))

	bare := Citation{Author: "Van Der Berg", Title: "T"}
	assert.Equal(t, "[Van Der Berg, n.d.]", bare.Inline())
	assert.Equal(t, "[^1]: Van Der Berg. T.", bare.Footnote(1))
	assert.Equal(t, "vanderbergnd", bare.Key())

	untitled := Citation{Author: "Smith", Year: "2020", Page: 3}
	assert.Equal(t, "[^2]: Smith (2020). p.3", untitled.Footnote(2))
}

func TestFromSource(t *testing.T) {
	src := rag.Source{
		Citation:       "Smith, J. (2020). On Agile. Press.",
		InTextCitation: "(Smith, 2020, p. 12)",
		DocumentMetadata: rag.DocumentMetadata{
			Title:           "On Agile",
			AuthorSurnames:  []string{"Smith"},
			PublicationDate: "2020-05-01",
		},
	}
	c := FromSource(7, src)
	assert.Equal(t, Citation{ID: 7, Author: "Smith", Title: "On Agile", Year: "2020", Page: 12, FullCitation: src.Citation}, c)

	src.ChunkMetadata.PageNumber = 3
	assert.Equal(t, 3, FromSource(1, src).Page)

	cites := FromSources([]rag.Source{src, src, src}, 2)
	require.Len(t, cites, 2)
	assert.Equal(t, 2, cites[1].ID)
	assert.Len(t, FromSources([]rag.Source{src}, 5), 1)
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("Footnote")
	require.NoError(t, err)
	assert.Equal(t, StyleFootnote, s)
	s, err = ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, StyleInline, s)
	_, err = ParseStyle("endnote")
	assert.Error(t, err)
}

func TestConvertInlineToFootnotes(t *testing.T) {
	out, refs := ConvertInlineToFootnotes("A [Smith, 2020, p. 4]. B [Jones, 2019]. C [Smith, 2020, p. 4]. See [link](x).")
	assert.Equal(t, "A [^1]. B [^2]. C [^1]. See [link](x).", out)
	require.Len(t, refs, 2)
	assert.Equal(t, Citation{ID: 1, Author: "Smith", Year: "2020", Page: 4, FullCitation: "Smith (2020), p. 4"}, refs[0])
	assert.Equal(t, "Jones", refs[1].Author)
	assert.Equal(t, 0, refs[1].Page)
}

func TestConvertInlineToFootnotes_ContinuesExistingLabels(t *testing.T) {
	text := "Prior claim[^2]. New [Smith, 2020, p. 3].\n\n[^2]: Existing Ref (1999). Old."
	out, refs := ConvertInlineToFootnotes(text)
	assert.Equal(t, "Prior claim[^2]. New [^3].\n\n[^2]: Existing Ref (1999). Old.", out)
	require.Len(t, refs, 1)
	assert.Equal(t, 3, refs[0].ID)
}

func TestFootnoter_SharesNumbersAcrossFragments(t *testing.T) {
	f := NewFootnoter("Draft[^1].")
	assert.Equal(t, "A [^2].", f.Convert("A [Smith, 2020]."))
	assert.Equal(t, "B [^3] and [^2].", f.Convert("B [Jones, 2019] and [Smith, 2020]."))

	known := []Citation{
		{ID: 1, Author: "Jones", Title: "Sleep", Year: "2019"},
		{ID: 2, Author: "Lee", Title: "Unused", Year: "2021"},
	}
	assert.Equal(t,
		"---\n\n[^2]: Smith (2020).\n[^3]: Jones (2019). Sleep.\n[^4]: Lee (2021). Unused.",
		f.Definitions(known))
	assert.Equal(t, "", NewFootnoter("").Definitions(nil))
}

func TestMaxFootnote(t *testing.T) {
	assert.Equal(t, 0, MaxFootnote("none"))
	assert.Equal(t, 12, MaxFootnote("a[^3] b[^12]\n[^7]: x"))
}

func TestGenerateFootnotes(t *testing.T) {
	assert.Equal(t, "", GenerateFootnotes(nil))
	got := GenerateFootnotes([]Citation{{ID: 9, Author: "A", Title: "T", Year: "2001"}})
	assert.Equal(t, "---\n\n[^1]: A (2001). T.", got)
}

func TestDeduplicateAndRenumber(t *testing.T) {
	cites := []Citation{
		{ID: 1, Author: "Smith", Title: "X", Page: 4},
		{ID: 2, Author: "Jones", Title: "Y"},
		{ID: 3, Author: "Smith", Title: "X", Page: 4},
		{ID: 4, Author: "Smith", Title: "X", Page: 5},
	}
	unique, mapping := Deduplicate(cites)
	require.Len(t, unique, 3)
	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 1, 4: 3}, mapping)
	assert.Equal(t, 3, unique[2].ID)

	text := "a[^3] b[^2] c[^4] d[^9]\n\n[^4]: Smith (2020). X. p.5"
	assert.Equal(t, "a[^1] b[^2] c[^3] d[^9]\n\n[^3]: Smith (2020). X. p.5", RenumberFootnotes(text, mapping))
}

func TestApplyFootnoteStyle(t *testing.T) {
	known := []Citation{
		{ID: 1, Author: "Smith", Title: "On X", Year: "2020", Page: 4},
		{ID: 2, Author: "Doe", Title: "Y", Year: "2018"},
		{ID: 3, Author: "Smith", Title: "On X", Year: "2020", Page: 4},
	}
	got := ApplyFootnoteStyle("Claim [Smith, 2020, p. 4].\n", known)
	assert.Equal(t, "Claim [^1].\n\n---\n\n[^1]: Smith (2020). On X. p.4\n[^2]: Doe (2018). Y.\n", got)

	assert.Equal(t, "plain\n", ApplyFootnoteStyle("plain\n", nil))

	unknown := ApplyFootnoteStyle("See [Lee, n.d.].", nil)
	assert.Equal(t, "See [^1].\n\n---\n\n[^1]: Lee (n.d.).\n", unknown)
}

func TestExtractFromText(t *testing.T) {
	text := "Inline [Smith, 2020, p. 4] and [Jones et al., n.d.].\n\n[^7]: Brown (2021). Title. p.2\n[^8]: no author-year here"
	cites := ExtractFromText(text)
	require.Len(t, cites, 3)
	assert.Equal(t, "Smith", cites[0].Author)
	assert.Equal(t, 4, cites[0].Page)
	assert.Equal(t, "Jones et al.", cites[1].Author)
	assert.Equal(t, "n.d.", cites[1].Year)
	assert.Equal(t, 7, cites[2].ID)
	assert.Equal(t, "Brown", cites[2].Author)
	assert.Equal(t, 2, cites[2].Page)
}

func TestCheck(t *testing.T) {
	text := "A [Smith, 2020, p. 4]. B [Jones, 2019]. C [Old, 0999, p. 1].\n\n[^1]: Brown (2021). T. p.2"

	res := Check(text, false)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 4, res.Valid)
	assert.True(t, res.OK())
	assert.Len(t, res.MissingPages, 1)
	assert.Contains(t, res.MissingPages[0], "Jones")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "suspicious year: 0999")

	strict := Check(text, true)
	assert.Equal(t, 3, strict.Valid)
	assert.False(t, strict.OK())
	assert.Empty(t, strict.MissingPages)
	require.Len(t, strict.Invalid, 1)
	assert.Contains(t, strict.Invalid[0], "missing page number")
}

func TestCheck_NoCitations(t *testing.T) {
	res := Check("nothing cited", true)
	assert.Equal(t, 0, res.Total)
	assert.NotNil(t, res.Invalid)
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"invalid_citations":[]`)
}

func TestExport(t *testing.T) {
	cites := []Citation{
		{ID: 1, Author: "Smith", Title: "A", Year: "2020", Page: 4},
		{ID: 2, Author: "Smith", Title: "B", Year: "2020"},
	}

	bib, err := Export(cites, "BibTeX")
	require.NoError(t, err)
	assert.Contains(t, bib, "@article{smith2020,")
	assert.Contains(t, bib, "@article{smith2020a,")

	ris, err := Export(cites[:1], "ris")
	require.NoError(t, err)
	assert.Equal(t, "TY  - JOUR\nAU  - Smith\nTI  - A\nPY  - 2020\nSP  - 4\nER  -", ris)

	js, err := Export(cites, "json")
	require.NoError(t, err)
	var back []Citation
	require.NoError(t, json.Unmarshal([]byte(js), &back))
	assert.Equal(t, cites, back)

	y, err := Export(cites, "yaml")
	require.NoError(t, err)
	assert.True(t, strings.Contains(y, "author: Smith"))

	empty, err := Export(nil, "json")
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)

	_, err = Export(cites, "endnote")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestBibliography(t *testing.T) {
	got := Bibliography([]Citation{
		{FullCitation: "Smith, J. (2020). On X."},
		{Author: "Doe", Year: "2018", Title: "Y", Page: 3},
	})
	assert.Equal(t, "Smith, J. (2020). On X.\nDoe (2018). Y, p. 3", got)
}

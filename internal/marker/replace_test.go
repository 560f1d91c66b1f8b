package marker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func numberedDoc(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "L" + string(rune('a'+i))
	}
	return strings.Join(lines, "\n")
}

func TestReplaceAll_OrderIndependent(t *testing.T) {
	doc := numberedDoc(14)
	m1 := Marker{StartLine: 2, EndLine: 4}
	m2 := Marker{StartLine: 10, EndLine: 12}

	forward := ReplaceAll(doc, []Replacement{{m1, "A"}, {m2, "B"}})
	reverse := ReplaceAll(doc, []Replacement{{m2, "B"}, {m1, "A"}})

	assert.Equal(t, forward, reverse)
	assert.Less(t, strings.Index(forward, "A"), strings.Index(forward, "B"))
	assert.Equal(t, "La\nLb\nA\nLf\nLg\nLh\nLi\nLj\nB\nLn", forward)
}

func TestReplaceAll_Empty(t *testing.T) {
	doc := "unchanged\ntext"
	assert.Equal(t, doc, ReplaceAll(doc, nil))
}

func TestReplaceAll_MultilineReplacement(t *testing.T) {
	doc := "head\n<!-- ACADWRITE: expand -->\n- x\n<!-- END ACADWRITE -->\ntail"
	markers := Parse(doc)
	out := ReplaceAll(doc, []Replacement{{markers[0], "para one\n\npara two"}})
	assert.Equal(t, "head\npara one\n\npara two\ntail", out)
}

func TestReplaceAll_SkipsOutOfRangeAndOverlap(t *testing.T) {
	doc := numberedDoc(6)
	out := ReplaceAll(doc, []Replacement{
		{Marker{StartLine: 1, EndLine: 3}, "X"},
		{Marker{StartLine: 2, EndLine: 4}, "Y"},
		{Marker{StartLine: 5, EndLine: 9}, "Z"},
	})
	assert.Equal(t, "La\nLb\nY\nLf", out)
}

package chunker

import (
	"reflect"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   \n ", nil},
		{"no terminal punctuation", "  just a fragment  ", []string{"just a fragment"}},
		{"abbreviation protected", "Dr. Smith wrote it. It was good.", []string{"Dr. Smith wrote it.", "It was good."}},
		{"mixed terminators", "Is it? Yes! Done.", []string{"Is it?", "Yes!", "Done."}},
		{"lowercase continuation", "See the value of 3.5 in e.g. this case. Next one.", []string{"See the value of 3.5 in e.g. this case.", "Next one."}},
		{"initials", "J. R. Tolkien wrote. Then he slept.", []string{"J. R. Tolkien wrote.", "Then he slept."}},
		{"dotted initials", "The U.S. Army left. Others stayed.", []string{"The U.S. Army left.", "Others stayed."}},
		{"et al", "Smith et al. Found it. Later work agreed.", []string{"Smith et al. Found it.", "Later work agreed."}},
		{"page abbreviation", "See p. 12 and Fig. Three for details. Fine.", []string{"See p. 12 and Fig. Three for details.", "Fine."}},
		{"case insensitive", "Per PROF. Jones it works. Ok.", []string{"Per PROF. Jones it works.", "Ok."}},
		{"closing quote", `He said "Stop." Then left.`, []string{`He said "Stop."`, "Then left."}},
		{"abbreviation after no-break space", "Ask\u00a0Dr. Smith today. Then go.", []string{"Ask\u00a0Dr. Smith today.", "Then go."}},
		{"newline separator", "First line.\nSecond line.", []string{"First line.", "Second line."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitSentences_Restartable(t *testing.T) {
	in := "One. Two. Three."
	first := SplitSentences(in)
	second := SplitSentences(in)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results, got %q and %q", first, second)
	}
	if len(first) != 3 {
		t.Errorf("expected 3 sentences, got %d", len(first))
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 0},
		{"abcd", 1},
		{"abcdefghi", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

package workflow

import (
	"fmt"
	"strings"
)

// FormatReport renders a counterargument report as a markdown document.
func FormatReport(r *Report) string {
	lines := []string{
		"# Counterargument Analysis",
		"",
		"## Original Claim",
		"",
		"> " + r.OriginalClaim,
		"",
		"## Inverted Claim",
		"",
		"> " + r.InvertedClaim,
		"",
		"---",
		"",
	}
	lines = appendEvidence(lines, "Supporting", r.Supporting)
	lines = append(lines, "---", "")
	lines = appendEvidence(lines, "Contradicting", r.Contradicting)

	if r.Synthesis != "" {
		lines = append(lines, "---", "", "## Synthesis", "", r.Synthesis, "")
	}
	return strings.Join(lines, "\n")
}

func appendEvidence(lines []string, side string, ev []Evidence) []string {
	lines = append(lines, fmt.Sprintf("## %s Evidence (%d sources)", side, len(ev)), "")
	if len(ev) == 0 {
		return append(lines, fmt.Sprintf("*No %s evidence found.*", strings.ToLower(side)), "")
	}
	for i, e := range ev {
		lines = append(lines,
			fmt.Sprintf("### %d. %s", i+1, e.Source.Title()), "",
			"**Key Point:** "+e.KeyPoint, "",
			"**Source:** "+e.Source.Citation, "",
		)
		if e.Source.InTextCitation != "" {
			lines = append(lines, "**Citation:** "+e.Source.InTextCitation, "")
		}
		lines = append(lines, fmt.Sprintf("**Relevance Score:** %.2f", e.Source.RelevanceScore), "")
	}
	return lines
}

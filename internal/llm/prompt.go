package llm

import (
	"fmt"
	"strings"
)

// InvertClaimPrompt asks for a 3-6 keyword query capturing the opposite
// perspective of claim.
func InvertClaimPrompt(claim string) string {
	return fmt.Sprintf(`You are helping with academic research. Given a claim, generate a search query that would find OPPOSING or CONTRADICTING evidence.

Original Claim: %s

Generate a concise search query (3-6 keywords) that captures the OPPOSITE perspective or potential counterarguments. Focus on:
- Opposite outcomes (e.g., reduces → increases)
- Challenges or limitations
- Contradictory findings

Search Query:`, claim)
}

// ClarityPrompt asks for a clearer rewrite that keeps citations intact.
func ClarityPrompt(content string) string {
	return fmt.Sprintf("Improve the clarity of the following academic text while maintaining its meaning and citations:\n\n%s\n\nReturn only the improved text, preserving all citations exactly as they appear.", content)
}

// SynthesisPrompt asks for a 2-3 sentence synthesis of both sides of a
// claim. Only the first three key points per side are listed, but the
// counts reflect every source.
func SynthesisPrompt(claim, inverted string, supporting, contradicting []string) string {
	var b strings.Builder
	b.WriteString("You are analyzing academic evidence about a claim.\n\n")
	fmt.Fprintf(&b, "Original Claim: %s\nOpposing View: %s\n\n", claim, inverted)
	fmt.Fprintf(&b, "Supporting Evidence (%d sources):\n", len(supporting))
	writeTop(&b, supporting)
	fmt.Fprintf(&b, "\nContradicting Evidence (%d sources):\n", len(contradicting))
	writeTop(&b, contradicting)
	b.WriteString(`
Based on this evidence, provide a brief (2-3 sentence) synthesis that:
1. Acknowledges the complexity of the issue
2. Notes the strength of evidence on each side
3. Suggests conditions or contexts where each view might apply

Synthesis:`)
	return b.String()
}

func writeTop(b *strings.Builder, points []string) {
	for i, p := range points {
		if i == 3 {
			break
		}
		fmt.Fprintf(b, "%d. %s\n", i+1, p)
	}
}

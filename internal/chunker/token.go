package chunker

// EstimateTokens gives a rough token count using the ~4 chars/token heuristic.
func EstimateTokens(text string) int {
	return len(text) / 4
}

package embed

// EstimateTokens returns a coarse token count for text using the
// chars-per-token heuristic. Not an exact tokenizer; display only.
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

// EstimateCost returns the approximate embedding cost in USD for texts at
// unitPrice dollars per 1M tokens. Pre-flight display only, not
// billing-accurate.
func EstimateCost(texts []string, unitPrice float64) float64 {
	var totalTokens int
	for _, t := range texts {
		totalTokens += EstimateTokens(t)
	}
	return float64(totalTokens) / 1_000_000 * unitPrice
}

package search

import "strings"

// extractSnippet returns a window of content around the earliest
// occurrence of any query term (case-insensitive), SnippetContextChars on
// each side plus the term length, with ellipsis markers when the window
// does not touch a document boundary. When no term occurs, the first
// SnippetFallbackLen characters are returned instead.
func extractSnippet(content, query string) string {
	contentLower := strings.ToLower(content)
	terms := strings.Fields(strings.ToLower(query))

	best := len(content)
	for _, term := range terms {
		if pos := strings.Index(contentLower, term); pos >= 0 && pos < best {
			best = pos
		}
	}

	if best == len(content) {
		return contentPrefix(content)
	}

	start := best - SnippetContextChars
	if start < 0 {
		start = 0
	}
	end := best + SnippetContextChars + len(query)
	if end > len(content) {
		end = len(content)
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}
	return snippet
}

// contentPrefix returns the fixed-length leading snippet used when there
// is no term to anchor on (semantic and concept modes, or no match).
func contentPrefix(content string) string {
	if len(content) > SnippetFallbackLen {
		return content[:SnippetFallbackLen] + "..."
	}
	return content
}

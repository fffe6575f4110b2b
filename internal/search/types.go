// Package search implements the retrieval engine: keyword (BM25),
// semantic (embedding cosine), hybrid (lexical candidates re-ranked
// semantically), concept (weighted mixes of named concept vectors), and
// debias (orthogonal-projection removal) modes. Every mode returns ranked
// results plus execution diagnostics and never partially fails.
package search

import "time"

const (
	// HybridCandidatePool is the fixed keyword candidate pool size for
	// hybrid mode, independent of the caller's limit.
	HybridCandidatePool = 100

	// SnippetContextChars is the window taken on each side of the first
	// matched query term.
	SnippetContextChars = 150

	// SnippetFallbackLen is the prefix length used when no query term
	// occurs in the content.
	SnippetFallbackLen = 300

	// DefaultLimit is the result count when the caller passes limit <= 0.
	DefaultLimit = 20
)

// Weights are the hybrid re-ranking parameters. Tuning choices, not
// correctness requirements; the defaults are the validated constants.
type Weights struct {
	// Lexical scales the normalized BM25 contribution.
	Lexical float64
	// Semantic scales the cosine similarity contribution.
	Semantic float64
	// BM25Divisor normalizes raw BM25 scores before weighting.
	BM25Divisor float64
}

// DefaultWeights returns the standard 0.3 lexical / 0.7 semantic blend.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.3, Semantic: 0.7, BM25Divisor: 10}
}

// Result is one ranked document summary.
type Result struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	FilePath   string    `json:"filepath"`
	WordCount  int       `json:"word_count"`
	Snippet    string    `json:"snippet"`
	Score      float64   `json:"score"`
	ModifiedAt time.Time `json:"modified_at"`

	// Hybrid mode exposes both signals alongside the combined score.
	BM25Score     float64 `json:"bm25_score,omitempty"`
	SemanticScore float64 `json:"semantic_score,omitempty"`
}

// ExecutionDetails reports how a query was executed.
type ExecutionDetails struct {
	Mode             string   `json:"mode"`
	ProcessingTimeMS float64  `json:"processing_time_ms"`
	KeywordTimeMS    float64  `json:"keyword_time_ms,omitempty"`
	EmbeddingTimeMS  float64  `json:"embedding_time_ms,omitempty"`
	Operations       []string `json:"operations"`
	TotalCandidates  int      `json:"total_candidates"`
	Returned         int      `json:"returned"`

	// Diagnostic explains structured empty results (missing concepts,
	// zero candidates). Never set on populated results.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Response is the result of one query: ranked results plus diagnostics.
type Response struct {
	Results          []Result         `json:"results"`
	ExecutionDetails ExecutionDetails `json:"execution_details"`
}

// ConceptSummary describes a stored concept without its vector.
type ConceptSummary struct {
	Name             string  `json:"name"`
	SourceText       string  `json:"source_text"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
}

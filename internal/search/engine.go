package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/internal/vectormath"
)

// Engine composes corpus store reads with vector math to answer queries.
// Engines are stateless between queries and safe for concurrent use.
type Engine struct {
	store    *store.Store
	embedder embed.Embedder
	ranker   Ranker
	weights  Weights
	logger   *slog.Logger
}

// NewEngine creates a retrieval engine with default hybrid weights.
func NewEngine(s *store.Store, e embed.Embedder) *Engine {
	return NewEngineWithWeights(s, e, DefaultWeights())
}

// NewEngineWithWeights creates a retrieval engine with custom hybrid
// weights.
func NewEngineWithWeights(s *store.Store, e embed.Embedder, w Weights) *Engine {
	return &Engine{
		store:    s,
		embedder: e,
		ranker:   NewLinearScanRanker(s),
		weights:  w,
		logger:   slog.Default().With(slog.String("component", "search")),
	}
}

// Keyword runs BM25 full-text matching against the title+content index.
func (e *Engine) Keyword(ctx context.Context, query string, limit int) (*Response, error) {
	start := time.Now()
	limit = normalizeLimit(limit)

	matches, err := e.store.FTSSearch(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	results, err := e.collectResults(ctx, toScored(matches), func(doc *store.Document) string {
		return extractSnippet(doc.Content, query)
	})
	if err != nil {
		return nil, err
	}

	return &Response{
		Results: results,
		ExecutionDetails: ExecutionDetails{
			Mode:             "keyword",
			ProcessingTimeMS: msSince(start),
			Operations:       []string{"fts5_bm25_search"},
			TotalCandidates:  len(matches),
			Returned:         len(results),
		},
	}, nil
}

// Semantic embeds the query and ranks the full corpus by cosine
// similarity.
func (e *Engine) Semantic(ctx context.Context, query string, limit int) (*Response, error) {
	start := time.Now()
	limit = normalizeLimit(limit)

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	embedDone := time.Now()

	resp, err := e.rankByVector(ctx, vector, limit, "semantic", []string{"embed_query"})
	if err != nil {
		return nil, err
	}
	resp.ExecutionDetails.EmbeddingTimeMS = msBetween(start, embedDone)
	resp.ExecutionDetails.ProcessingTimeMS = msSince(start)
	return resp, nil
}

// Hybrid takes up to HybridCandidatePool keyword candidates and re-ranks
// them by a weighted blend of normalized BM25 and cosine similarity.
// With zero keyword candidates the query embedding is never generated.
func (e *Engine) Hybrid(ctx context.Context, query string, limit int) (*Response, error) {
	start := time.Now()
	limit = normalizeLimit(limit)

	candidates, err := e.store.FTSSearch(ctx, query, HybridCandidatePool)
	if err != nil {
		return nil, err
	}
	keywordDone := time.Now()

	if len(candidates) == 0 {
		return &Response{
			Results: []Result{},
			ExecutionDetails: ExecutionDetails{
				Mode:             "hybrid",
				ProcessingTimeMS: msSince(start),
				KeywordTimeMS:    msBetween(start, keywordDone),
				Operations:       []string{"fts5_bm25_search(0)"},
				TotalCandidates:  0,
				Returned:         0,
				Diagnostic:       "no keyword candidates",
			},
		}, nil
	}

	queryVector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	embedDone := time.Now()

	type hybridScore struct {
		docID    string
		combined float64
		bm25     float64
		semantic float64
	}

	reranked := make([]hybridScore, 0, len(candidates))
	for _, c := range candidates {
		docVector, err := e.store.GetEmbedding(ctx, c.DocID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		semantic := vectormath.Cosine(queryVector, docVector)
		combined := e.weights.Lexical*(c.Score/e.weights.BM25Divisor) + e.weights.Semantic*semantic
		reranked = append(reranked, hybridScore{
			docID:    c.DocID,
			combined: combined,
			bm25:     c.Score,
			semantic: semantic,
		})
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].combined > reranked[j].combined
	})
	if len(reranked) > limit {
		reranked = reranked[:limit]
	}

	scored := make([]ScoredDoc, len(reranked))
	subScores := make(map[string]hybridScore, len(reranked))
	for i, r := range reranked {
		scored[i] = ScoredDoc{DocID: r.docID, Score: r.combined}
		subScores[r.docID] = r
	}

	results, err := e.collectResults(ctx, scored, func(doc *store.Document) string {
		return extractSnippet(doc.Content, query)
	})
	if err != nil {
		return nil, err
	}
	for i := range results {
		sub := subScores[results[i].ID]
		results[i].BM25Score = sub.bm25
		results[i].SemanticScore = sub.semantic
	}

	return &Response{
		Results: results,
		ExecutionDetails: ExecutionDetails{
			Mode:             "hybrid",
			ProcessingTimeMS: msSince(start),
			KeywordTimeMS:    msBetween(start, keywordDone),
			EmbeddingTimeMS:  msBetween(keywordDone, embedDone),
			Operations: []string{
				fmt.Sprintf("fts5_bm25_search(%d)", len(candidates)),
				"embed_query",
				fmt.Sprintf("semantic_rerank(%d)", len(scored)),
			},
			TotalCandidates: len(candidates),
			Returned:        len(results),
		},
	}, nil
}

// Concept ranks the corpus against a weighted mix of stored concept
// vectors. Names with no stored vector are silently skipped; if none
// resolve the result is an explicitly diagnosed empty set.
func (e *Engine) Concept(ctx context.Context, mix map[string]float64, limit int) (*Response, error) {
	start := time.Now()
	limit = normalizeLimit(limit)

	resolved := make(map[string]vectormath.WeightedVector)
	for name, weight := range mix {
		concept, err := e.store.GetConcept(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		resolved[name] = vectormath.WeightedVector{Vector: concept.Vector, Weight: weight}
	}

	if len(resolved) == 0 {
		return &Response{
			Results: []Result{},
			ExecutionDetails: ExecutionDetails{
				Mode:             "concept",
				ProcessingTimeMS: msSince(start),
				Operations:       []string{"no_valid_concepts"},
				Diagnostic:       "no valid concepts found",
			},
		}, nil
	}

	mixed := vectormath.Mix(resolved)

	ops := []string{
		fmt.Sprintf("load_concepts(%d)", len(resolved)),
		fmt.Sprintf("mix_vectors(%s)", formatMix(mix)),
	}
	resp, err := e.rankByVector(ctx, mixed, limit, "concept", ops)
	if err != nil {
		return nil, err
	}
	resp.ExecutionDetails.ProcessingTimeMS = msSince(start)
	return resp, nil
}

// Debias ranks the corpus against main's vector with remove's direction
// projected out. Either concept missing yields a diagnosed empty result,
// never an error.
func (e *Engine) Debias(ctx context.Context, mainName, removeName string, limit int) (*Response, error) {
	start := time.Now()
	limit = normalizeLimit(limit)

	missing := []string{}
	mainConcept, err := e.store.GetConcept(ctx, mainName)
	if errors.Is(err, store.ErrNotFound) {
		missing = append(missing, mainName)
	} else if err != nil {
		return nil, err
	}
	removeConcept, err := e.store.GetConcept(ctx, removeName)
	if errors.Is(err, store.ErrNotFound) {
		missing = append(missing, removeName)
	} else if err != nil {
		return nil, err
	}

	if len(missing) > 0 {
		return &Response{
			Results: []Result{},
			ExecutionDetails: ExecutionDetails{
				Mode:             "debias",
				ProcessingTimeMS: msSince(start),
				Operations:       []string{"load_concepts"},
				Diagnostic:       fmt.Sprintf("concept not found: %s", strings.Join(missing, ", ")),
			},
		}, nil
	}

	debiased := vectormath.Debias(mainConcept.Vector, removeConcept.Vector)

	ops := []string{
		fmt.Sprintf("load_concept(%s)", mainName),
		fmt.Sprintf("load_concept(%s)", removeName),
		fmt.Sprintf("debias(%s - %s)", mainName, removeName),
	}
	resp, err := e.rankByVector(ctx, debiased, limit, "debias", ops)
	if err != nil {
		return nil, err
	}
	resp.ExecutionDetails.ProcessingTimeMS = msSince(start)
	return resp, nil
}

// StoreConcept embeds text and writes (or overwrites) the named concept.
// The only mode that mutates store state.
func (e *Engine) StoreConcept(ctx context.Context, name, text string) (*ConceptSummary, error) {
	start := time.Now()

	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveConcept(ctx, &store.Concept{
		Name:       name,
		Vector:     vector,
		SourceText: text,
	}); err != nil {
		return nil, err
	}

	summary := &ConceptSummary{
		Name:             name,
		SourceText:       text,
		ProcessingTimeMS: msSince(start),
	}
	if len(summary.SourceText) > 200 {
		summary.SourceText = summary.SourceText[:200] + "..."
	}
	return summary, nil
}

// rankByVector runs the shared "rank everything by similarity" tail used
// by semantic, concept, and debias modes. Snippets are content prefixes:
// there may be no literal term overlap to highlight.
func (e *Engine) rankByVector(ctx context.Context, vector []float32, limit int, mode string, ops []string) (*Response, error) {
	scored, total, err := e.ranker.Rank(ctx, vector, limit)
	if err != nil {
		return nil, err
	}

	results, err := e.collectResults(ctx, scored, func(doc *store.Document) string {
		return contentPrefix(doc.Content)
	})
	if err != nil {
		return nil, err
	}

	return &Response{
		Results: results,
		ExecutionDetails: ExecutionDetails{
			Mode:            mode,
			Operations:      append(ops, fmt.Sprintf("cosine_similarity(%d)", total)),
			TotalCandidates: total,
			Returned:        len(results),
		},
	}, nil
}

// collectResults fetches document summaries for scored ids. Documents
// deleted between scoring and fetch are skipped: a query racing a sync
// run returns what still exists.
func (e *Engine) collectResults(ctx context.Context, scored []ScoredDoc, snippet func(*store.Document) string) ([]Result, error) {
	results := make([]Result, 0, len(scored))
	for _, s := range scored {
		doc, err := e.store.GetDocument(ctx, s.DocID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		results = append(results, Result{
			ID:         doc.ID,
			Title:      doc.Title,
			FilePath:   doc.FilePath,
			WordCount:  doc.WordCount,
			Snippet:    snippet(doc),
			Score:      s.Score,
			ModifiedAt: doc.ModifiedAt,
		})
	}
	return results, nil
}

func toScored(matches []store.FTSResult) []ScoredDoc {
	scored := make([]ScoredDoc, len(matches))
	for i, m := range matches {
		scored[i] = ScoredDoc{DocID: m.DocID, Score: m.Score}
	}
	return scored
}

// formatMix renders a concept mix in name order for the operations trace.
func formatMix(mix map[string]float64) string {
	names := make([]string, 0, len(mix))
	for name := range mix {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s:%g", name, mix[name])
	}
	return strings.Join(parts, ", ")
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func msBetween(a, b time.Time) float64 {
	return float64(b.Sub(a).Microseconds()) / 1000.0
}

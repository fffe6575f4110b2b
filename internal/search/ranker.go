package search

import (
	"context"
	"sort"

	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/internal/vectormath"
)

// ScoredDoc is a document id with a similarity score.
type ScoredDoc struct {
	DocID string
	Score float64
}

// Ranker orders the corpus by similarity to a query vector. The linear
// scan below is the intended implementation at this design's scale; the
// interface isolates mode logic from the scan so an index-backed
// implementation can slot in for larger corpora.
type Ranker interface {
	// Rank returns the top limit documents by similarity to vector,
	// plus the total number of candidates considered.
	Rank(ctx context.Context, vector []float32, limit int) ([]ScoredDoc, int, error)
}

// LinearScanRanker scores every stored embedding on each call. O(corpus)
// per query, nothing cached between queries.
type LinearScanRanker struct {
	store *store.Store
}

var _ Ranker = (*LinearScanRanker)(nil)

// NewLinearScanRanker creates a ranker over the store's embeddings.
func NewLinearScanRanker(s *store.Store) *LinearScanRanker {
	return &LinearScanRanker{store: s}
}

// Rank computes cosine similarity against the full embedding set.
// Candidates are visited in document-id order and sorted with a stable
// sort, so equal scores keep a deterministic id-ordered tie-break.
func (r *LinearScanRanker) Rank(ctx context.Context, vector []float32, limit int) ([]ScoredDoc, int, error) {
	embeddings, err := r.store.AllEmbeddings(ctx)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(embeddings))
	for id := range embeddings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	scored := make([]ScoredDoc, 0, len(ids))
	for _, id := range ids {
		scored = append(scored, ScoredDoc{
			DocID: id,
			Score: vectormath.Cosine(vector, embeddings[id]),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	total := len(scored)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, total, nil
}

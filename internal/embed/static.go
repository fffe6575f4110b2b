package embed

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// StaticDimensions is the embedding dimension for the static embedder.
const StaticDimensions = 256

// Weights for vector generation
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// tokenRegex matches alphanumeric sequences.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// StaticEmbedder generates embeddings using token and trigram hashing.
// Deterministic, fast, no network: suitable for tests and offline runs.
// Semantic quality is reduced but lexically related texts stay close.
type StaticEmbedder struct{}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a new static embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed generates an embedding for a single text.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(truncate(text))
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}

	vector := make([]float32, StaticDimensions)

	tokens := tokenRegex.FindAllString(strings.ToLower(trimmed), -1)
	for _, token := range tokens {
		vector[hashToIndex(token)] += tokenWeight
		for _, ngram := range ngrams(token) {
			vector[hashToIndex(ngram)] += ngramWeight
		}
	}

	return normalizeStatic(vector), nil
}

// EmbedBatch generates embeddings for multiple texts sequentially.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string, onProgress ProgressFunc) ([][]float32, error) {
	results := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vector, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results = append(results, vector)
		if onProgress != nil {
			onProgress(i+1, len(texts))
		}
	}
	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int { return StaticDimensions }

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string { return "static-hash-256" }

// hashToIndex maps a token to a vector index via FNV-1a.
func hashToIndex(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(StaticDimensions))
}

// ngrams returns the character trigrams of a token.
func ngrams(token string) []string {
	if len(token) < ngramSize {
		return nil
	}
	grams := make([]string, 0, len(token)-ngramSize+1)
	for i := 0; i+ngramSize <= len(token); i++ {
		grams = append(grams, token[i:i+ngramSize])
	}
	return grams
}

// normalizeStatic scales the vector to unit length in place.
func normalizeStatic(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return v
	}

	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
	return v
}

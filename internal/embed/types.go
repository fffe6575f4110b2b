// Package embed provides text embedding for documents and queries.
// The OpenAI-compatible provider is the production backend; the static
// hash embedder serves tests and offline operation.
package embed

import (
	"context"
	"errors"
	"time"
)

// Common embedding constants
const (
	// MaxEmbedChars is the character budget per text sent to the provider.
	// Inputs are truncated, never rejected.
	MaxEmbedChars = 32000

	// DefaultBatchSize is the number of texts per batch request.
	DefaultBatchSize = 100

	// DefaultDimensions is the embedding dimension for text-embedding-3-small.
	DefaultDimensions = 1536

	// RateLimitCooldown is how long to wait before the single retry after
	// the provider signals rate limiting.
	RateLimitCooldown = 60 * time.Second

	// CharsPerToken is the coarse chars-to-tokens heuristic divisor.
	CharsPerToken = 4

	// DefaultUnitPrice is the embedding price per 1M tokens in USD
	// (text-embedding-3-small).
	DefaultUnitPrice = 0.02
)

var (
	// ErrNoAPIKey indicates no provider credential is configured.
	// Fatal: blocks every embedding-dependent operation.
	ErrNoAPIKey = errors.New("embedding provider API key not configured")

	// ErrRateLimited indicates the provider rejected a request for rate
	// limiting. Recovered locally with exactly one retry after
	// RateLimitCooldown; a second failure propagates.
	ErrRateLimited = errors.New("embedding provider rate limited")
)

// ProgressFunc reports cumulative batch progress after each chunk.
type ProgressFunc func(done, total int)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, chunked by the
	// provider's batch size. onProgress may be nil.
	EmbedBatch(ctx context.Context, texts []string, onProgress ProgressFunc) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string
}

// truncate caps text at MaxEmbedChars.
func truncate(text string) string {
	if len(text) > MaxEmbedChars {
		return text[:MaxEmbedChars]
	}
	return text
}

package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// OpenAIConfig configures the OpenAI-compatible embedding provider.
type OpenAIConfig struct {
	// APIKey is the provider credential. Empty blocks construction.
	APIKey string

	// BaseURL overrides the API host for OpenAI-compatible services.
	// Empty uses the default OpenAI endpoint.
	BaseURL string

	// Model is the embedding model identifier.
	Model string

	// Dimensions is the embedding dimension requested from the model.
	Dimensions int

	// BatchSize is the number of texts per batch request.
	BatchSize int

	// RequestsPerSecond throttles provider calls client-side.
	// Zero disables throttling.
	RequestsPerSecond float64
}

// OpenAIEmbedder generates embeddings through an OpenAI-compatible API.
type OpenAIEmbedder struct {
	embedder  embeddings.Embedder
	model     string
	dims      int
	batchSize int
	limiter   *rate.Limiter
	retry     RetryPolicy
	logger    *slog.Logger
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates the production embedding provider.
// Returns ErrNoAPIKey if no credential is configured.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &OpenAIEmbedder{
		embedder:  embedder,
		model:     cfg.Model,
		dims:      dims,
		batchSize: batchSize,
		limiter:   limiter,
		retry:     DefaultRetryPolicy(),
		logger:    slog.Default().With(slog.String("component", "openai-embedder")),
	}, nil
}

// Embed generates an embedding for a single text, truncated to the
// provider character budget.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedChunk(ctx, []string{truncate(text)})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("provider returned no embedding")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for texts in chunks of the configured
// batch size, reporting cumulative progress after each chunk.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string, onProgress ProgressFunc) ([][]float32, error) {
	total := len(texts)
	results := make([][]float32, 0, total)

	for start := 0; start < total; start += e.batchSize {
		end := start + e.batchSize
		if end > total {
			end = total
		}

		chunk := make([]string, 0, end-start)
		for _, t := range texts[start:end] {
			chunk = append(chunk, truncate(t))
		}

		vectors, err := e.embedChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		results = append(results, vectors...)

		if onProgress != nil {
			onProgress(end, total)
		}
	}

	return results, nil
}

// embedChunk performs one provider call under the rate limiter and the
// rate-limit retry policy.
func (e *OpenAIEmbedder) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	err := e.retry.Do(ctx, func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}

		result, err := e.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			e.logger.Warn("embedding request failed",
				slog.Int("texts", len(texts)),
				slog.String("error", err.Error()))
			return classify(err)
		}

		vectors = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	return vectors, nil
}

// classify maps provider transport errors onto the package taxonomy so
// retry decisions never depend on message matching at the call site.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("embedding request failed: %w", err)
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string { return e.model }

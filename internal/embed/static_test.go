package embed

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "machine learning safety research")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "machine learning safety research")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestStaticEmbedder_Dimensions(t *testing.T) {
	e := NewStaticEmbedder()
	v, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Len(t, v, StaticDimensions)
	assert.Equal(t, StaticDimensions, e.Dimensions())
}

func TestStaticEmbedder_UnitLength(t *testing.T) {
	e := NewStaticEmbedder()
	v, err := e.Embed(context.Background(), "some document content with several words")
	require.NoError(t, err)

	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestStaticEmbedder_EmptyText(t *testing.T) {
	e := NewStaticEmbedder()
	v, err := e.Embed(context.Background(), "   \n\t  ")
	require.NoError(t, err)

	assert.Equal(t, make([]float32, StaticDimensions), v)
}

func TestStaticEmbedder_SimilarTextsCloser(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	ml1, err := e.Embed(ctx, "machine learning models and neural networks")
	require.NoError(t, err)
	ml2, err := e.Embed(ctx, "training machine learning models")
	require.NoError(t, err)
	cooking, err := e.Embed(ctx, "pasta recipes with tomato sauce")
	require.NoError(t, err)

	related := dotProduct(ml1, ml2)
	unrelated := dotProduct(ml1, cooking)
	assert.Greater(t, related, unrelated)
}

func TestStaticEmbedder_BatchProgress(t *testing.T) {
	e := NewStaticEmbedder()

	var reported []int
	vectors, err := e.EmbedBatch(context.Background(),
		[]string{"one", "two", "three"},
		func(done, total int) {
			assert.Equal(t, 3, total)
			reported = append(reported, done)
		})
	require.NoError(t, err)

	assert.Len(t, vectors, 3)
	assert.Equal(t, []int{1, 2, 3}, reported)
}

func TestStaticEmbedder_TruncatesLongInput(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	long := strings.Repeat("alpha beta gamma ", 4000)
	require.Greater(t, len(long), MaxEmbedChars)

	full, err := e.Embed(ctx, long)
	require.NoError(t, err)
	truncated, err := e.Embed(ctx, long[:MaxEmbedChars])
	require.NoError(t, err)

	assert.Equal(t, truncated, full)
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 0, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}

func TestEstimateCost(t *testing.T) {
	texts := []string{
		strings.Repeat("a", 4_000_000), // 1M tokens
		strings.Repeat("b", 2_000_000), // 500k tokens
	}
	assert.InDelta(t, 0.03, EstimateCost(texts, DefaultUnitPrice), 1e-9)
	assert.Zero(t, EstimateCost(nil, DefaultUnitPrice))
}

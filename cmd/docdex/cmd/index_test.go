package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/indexer"
)

func TestIndexCmd_AddsAndSkips(t *testing.T) {
	env := newTestEnv(t)
	env.writeDoc(t, "ml.md", "# Machine Learning\nneural networks and deep learning")
	env.writeDoc(t, "pasta.md", "# Pasta Recipes\ncarbonara and pesto")

	out, err := runCLI(t, env, "index", "--format", "json")
	require.NoError(t, err)

	var summary indexer.SyncSummary
	decodeJSON(t, out, &summary)
	assert.Equal(t, 2, summary.Added)
	assert.Equal(t, 0, summary.Unchanged)

	// Second run: the hash short-circuit skips everything.
	out, err = runCLI(t, env, "index", "--format", "json")
	require.NoError(t, err)
	decodeJSON(t, out, &summary)
	assert.Equal(t, 0, summary.Added)
	assert.Equal(t, 2, summary.Unchanged)
}

func TestIndexCmd_CollectsFileErrors(t *testing.T) {
	env := newTestEnv(t)
	env.writeDoc(t, "good.md", "# Good\ncontent")
	env.writeDoc(t, "empty.md", "   \n  ")

	out, err := runCLI(t, env, "index", "--format", "json")
	require.NoError(t, err, "one bad file never fails the run")

	var summary indexer.SyncSummary
	decodeJSON(t, out, &summary)
	assert.Equal(t, 1, summary.Added)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Error, "no content extracted")
}

func TestIndexCmd_DryRun(t *testing.T) {
	env := newTestEnv(t)
	env.writeDoc(t, "a.md", "# Alpha\nfour words of body")

	out, err := runCLI(t, env, "index", "--dry-run", "--format", "json")
	require.NoError(t, err)

	var estimate struct {
		PendingFiles    int     `json:"pending_files"`
		EstimatedTokens int     `json:"estimated_tokens"`
		EstimatedCost   float64 `json:"estimated_cost"`
	}
	decodeJSON(t, out, &estimate)
	assert.Equal(t, 1, estimate.PendingFiles)
	assert.Positive(t, estimate.EstimatedTokens)

	// Dry run writes nothing: a real run still adds the file.
	out, err = runCLI(t, env, "index", "--format", "json")
	require.NoError(t, err)
	var summary indexer.SyncSummary
	decodeJSON(t, out, &summary)
	assert.Equal(t, 1, summary.Added)
}

func TestCleanCmd_RemovesDeletedFiles(t *testing.T) {
	env := newTestEnv(t)
	env.writeDoc(t, "keep.md", "# Keep\nstays on disk")
	gone := env.writeDoc(t, "gone.md", "# Gone\nwill be deleted")

	_, err := runCLI(t, env, "index", "--format", "json")
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))

	out, err := runCLI(t, env, "clean", "--format", "json")
	require.NoError(t, err)

	var result struct {
		Removed int `json:"removed"`
	}
	decodeJSON(t, out, &result)
	assert.Equal(t, 1, result.Removed)
}

func TestStatusCmd(t *testing.T) {
	env := newTestEnv(t)
	env.writeDoc(t, "a.md", "# Alpha\nbody")

	_, err := runCLI(t, env, "index", "--format", "json")
	require.NoError(t, err)

	out, err := runCLI(t, env, "status", "--format", "json")
	require.NoError(t, err)

	var status struct {
		Documents  int `json:"documents"`
		Embeddings int `json:"embeddings"`
	}
	decodeJSON(t, out, &status)
	assert.Equal(t, 1, status.Documents)
	assert.Equal(t, 1, status.Embeddings)
}

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/search"
)

func TestParseConceptMix(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]float64
		wantErr bool
	}{
		{
			name: "bare name defaults to weight one",
			args: []string{"ai"},
			want: map[string]float64{"ai": 1},
		},
		{
			name: "explicit weights",
			args: []string{"ai:1", "hype:-0.5"},
			want: map[string]float64{"ai": 1, "hype": -0.5},
		},
		{
			name: "mixed bare and weighted",
			args: []string{"ai", "food:0.25"},
			want: map[string]float64{"ai": 1, "food": 0.25},
		},
		{
			name:    "empty name",
			args:    []string{":0.5"},
			wantErr: true,
		},
		{
			name:    "unparseable weight",
			args:    []string{"ai:heavy"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseConceptMix(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchCmd_KeywordRanking(t *testing.T) {
	env := newTestEnv(t)
	env.writeDoc(t, "ml.md", "# Machine Learning\nmachine learning and neural networks for machine learning research")
	env.writeDoc(t, "pasta.md", "# Pasta Recipes\ncarbonara, pesto, and other pasta dishes")

	_, err := runCLI(t, env, "index", "--format", "json")
	require.NoError(t, err)

	out, err := runCLI(t, env, "search", "--mode", "keyword", "--format", "json", "machine", "learning")
	require.NoError(t, err)

	var resp search.Response
	decodeJSON(t, out, &resp)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "Machine Learning", resp.Results[0].Title)
	assert.Equal(t, "keyword", resp.ExecutionDetails.Mode)
}

func TestSearchCmd_HybridOffline(t *testing.T) {
	env := newTestEnv(t)
	env.writeDoc(t, "ml.md", "# Machine Learning\nneural networks")
	_, err := runCLI(t, env, "index", "--format", "json")
	require.NoError(t, err)

	out, err := runCLI(t, env, "search", "--mode", "hybrid", "--format", "json", "neural networks")
	require.NoError(t, err)

	var resp search.Response
	decodeJSON(t, out, &resp)
	assert.Equal(t, "hybrid", resp.ExecutionDetails.Mode)
	require.NotEmpty(t, resp.Results)
	assert.NotZero(t, resp.Results[0].SemanticScore)
}

func TestSearchCmd_ConceptRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.writeDoc(t, "ai.md", "# AI\nartificial intelligence and machine learning systems")
	_, err := runCLI(t, env, "index", "--format", "json")
	require.NoError(t, err)

	_, err = runCLI(t, env, "concept", "store", "ai", "artificial intelligence and machine learning")
	require.NoError(t, err)

	out, err := runCLI(t, env, "search", "--mode", "concept", "--format", "json", "ai")
	require.NoError(t, err)

	var resp search.Response
	decodeJSON(t, out, &resp)
	assert.Equal(t, "concept", resp.ExecutionDetails.Mode)
	assert.NotEmpty(t, resp.Results)
}

func TestSearchCmd_DebiasMissingConceptIsDiagnosedNotError(t *testing.T) {
	env := newTestEnv(t)

	out, err := runCLI(t, env, "search", "--mode", "debias", "--format", "json", "tech", "food")
	require.NoError(t, err)

	var resp search.Response
	decodeJSON(t, out, &resp)
	assert.Empty(t, resp.Results)
	assert.Contains(t, resp.ExecutionDetails.Diagnostic, "concept not found")
}

func TestSearchCmd_DebiasArgCount(t *testing.T) {
	env := newTestEnv(t)
	_, err := runCLI(t, env, "search", "--mode", "debias", "only-one")
	assert.ErrorContains(t, err, "exactly two concept names")
}

func TestSearchCmd_UnknownMode(t *testing.T) {
	env := newTestEnv(t)
	_, err := runCLI(t, env, "search", "--mode", "psychic", "anything")
	assert.ErrorContains(t, err, "unknown mode")
}

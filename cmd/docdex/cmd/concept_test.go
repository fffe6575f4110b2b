package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConceptCmd_StoreListDelete(t *testing.T) {
	env := newTestEnv(t)

	_, err := runCLI(t, env, "concept", "store", "ai", "artificial", "intelligence", "research")
	require.NoError(t, err)
	_, err = runCLI(t, env, "concept", "store", "food", "cooking and recipes")
	require.NoError(t, err)

	out, err := runCLI(t, env, "concept", "list", "--format", "json")
	require.NoError(t, err)

	var concepts []struct {
		Name       string `json:"name"`
		SourceText string `json:"source_text"`
		Dimensions int    `json:"dimensions"`
	}
	decodeJSON(t, out, &concepts)
	require.Len(t, concepts, 2)
	assert.Equal(t, "ai", concepts[0].Name, "listed in name order")
	assert.Equal(t, "artificial intelligence research", concepts[0].SourceText, "multi-word text is joined")
	assert.Positive(t, concepts[0].Dimensions)

	_, err = runCLI(t, env, "concept", "delete", "ai")
	require.NoError(t, err)

	out, err = runCLI(t, env, "concept", "list", "--format", "json")
	require.NoError(t, err)
	concepts = nil
	decodeJSON(t, out, &concepts)
	require.Len(t, concepts, 1)
	assert.Equal(t, "food", concepts[0].Name)
}

func TestConceptCmd_StoreRequiresNameAndText(t *testing.T) {
	env := newTestEnv(t)
	_, err := runCLI(t, env, "concept", "store", "ai")
	assert.Error(t, err)
}

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func saveDoc(t *testing.T, s *Store, id, path, title, content string) {
	t.Helper()
	require.NoError(t, s.SaveDocument(context.Background(), &Document{
		ID:        id,
		FilePath:  path,
		Title:     title,
		Content:   content,
		WordCount: len(content) / 5,
		FileHash:  "hash-" + id,
	}))
}

func TestSaveAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveDoc(t, s, "doc-1", "/docs/a.md", "Alpha", "alpha document content")

	doc, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "/docs/a.md", doc.FilePath)
	assert.Equal(t, "Alpha", doc.Title)
	assert.False(t, doc.CreatedAt.IsZero())
	assert.False(t, doc.ModifiedAt.IsZero())

	byPath, err := s.GetDocumentByPath(ctx, "/docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", byPath.ID)
}

func TestGetDocument_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDocument(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveDocument_UpdatePreservesID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveDoc(t, s, "doc-1", "/docs/a.md", "Old title", "old content here")
	saveDoc(t, s, "doc-1", "/docs/a.md", "New title", "new content here")

	doc, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "New title", doc.Title)

	count, err := s.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Full-text entry followed the rewrite: the old title no longer matches.
	results, err := s.FTSSearch(ctx, "old", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.FTSSearch(ctx, "new", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1", results[0].DocID)
}

func TestDeleteDocument_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveDoc(t, s, "doc-1", "/docs/a.md", "Alpha", "searchable alpha content")
	require.NoError(t, s.SaveEmbedding(ctx, "doc-1", []float32{1, 2, 3}))

	require.NoError(t, s.DeleteDocument(ctx, "doc-1"))

	_, err := s.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetEmbedding(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	results, err := s.FTSSearch(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveDoc(t, s, "doc-1", "/docs/a.md", "Alpha", "content")
	vector := []float32{0.25, -1.5, 3.75, 0}
	require.NoError(t, s.SaveEmbedding(ctx, "doc-1", vector))

	got, err := s.GetEmbedding(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, vector, got)
}

func TestAllEmbeddings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveDoc(t, s, "doc-1", "/docs/a.md", "A", "a")
	saveDoc(t, s, "doc-2", "/docs/b.md", "B", "b")
	require.NoError(t, s.SaveEmbedding(ctx, "doc-1", []float32{1, 0}))
	require.NoError(t, s.SaveEmbedding(ctx, "doc-2", []float32{0, 1}))

	all, err := s.AllEmbeddings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, []float32{1, 0}, all["doc-1"])
	assert.Equal(t, []float32{0, 1}, all["doc-2"])
}

func TestFTSSearch_RanksAndNegatesScores(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveDoc(t, s, "doc-a", "/docs/ml.md", "Machine learning safety",
		"machine learning safety research machine learning alignment")
	saveDoc(t, s, "doc-b", "/docs/pasta.md", "Cooking",
		"cooking recipes for pasta and sauces")

	results, err := s.FTSSearch(ctx, "machine learning", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "doc-a", results[0].DocID)
	for _, r := range results {
		assert.NotEqual(t, "doc-b", r.DocID, "pasta document must not match")
		assert.Positive(t, r.Score, "scores are negated bm25(), higher = better")
	}
}

func TestFTSSearch_PorterStemming(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveDoc(t, s, "doc-1", "/docs/a.md", "Running", "the runner was running quickly")

	results, err := s.FTSSearch(ctx, "run", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results, "porter stemmer matches inflected forms")
}

func TestFTSSearch_EmptyAndInvalidQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveDoc(t, s, "doc-1", "/docs/a.md", "A", "content words")

	results, err := s.FTSSearch(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	// FTS5 operator soup parses as a syntax error; treated as no results.
	results, err = s.FTSSearch(ctx, `"unclosed AND NOT (`, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestConceptCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveConcept(ctx, &Concept{
		Name:       "ai",
		Vector:     []float32{1, 0, 0},
		SourceText: "artificial intelligence research",
	}))
	require.NoError(t, s.SaveConcept(ctx, &Concept{
		Name:       "hype",
		Vector:     []float32{0, 1, 0},
		SourceText: "marketing buzzwords",
	}))

	concept, err := s.GetConcept(ctx, "ai")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, concept.Vector)
	assert.Equal(t, "artificial intelligence research", concept.SourceText)
	assert.False(t, concept.CreatedAt.IsZero())

	// Overwrite semantics: same name replaces.
	require.NoError(t, s.SaveConcept(ctx, &Concept{
		Name:       "ai",
		Vector:     []float32{0, 0, 1},
		SourceText: "updated",
	}))
	concept, err = s.GetConcept(ctx, "ai")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, concept.Vector)

	concepts, err := s.ListConcepts(ctx)
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	assert.Equal(t, "ai", concepts[0].Name, "ordered by name")
	assert.Equal(t, "hype", concepts[1].Name)

	require.NoError(t, s.DeleteConcept(ctx, "ai"))
	_, err = s.GetConcept(ctx, "ai")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncStatus_SingletonOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetSyncStatus(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpdateSyncStatus(ctx, 10))
	require.NoError(t, s.UpdateSyncStatus(ctx, 25))

	status, err := s.GetSyncStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, status.FilesProcessed)
	assert.False(t, status.LastSync.IsZero())
}

func TestListDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveDoc(t, s, "doc-1", "/docs/a.md", "Alpha", "alpha content")
	saveDoc(t, s, "doc-2", "/docs/b.md", "Beta", "beta content")

	docs, err := s.ListDocuments(ctx, 10, 0, "")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = s.ListDocuments(ctx, 10, 0, "alpha")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID)
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saveDoc(t, s, "doc-1", "/docs/a.md", "A", "a")
	require.NoError(t, s.SaveEmbedding(ctx, "doc-1", []float32{1}))
	require.NoError(t, s.SaveConcept(ctx, &Concept{Name: "c", Vector: []float32{1}, SourceText: "t"}))
	require.NoError(t, s.UpdateSyncStatus(ctx, 1))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, 1, stats.EmbeddingCount)
	assert.Equal(t, 1, stats.ConceptCount)
	assert.False(t, stats.LastSync.IsZero())
}

func TestNew_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "corpus.db")

	s, err := New(path)
	require.NoError(t, err)
	saveDoc(t, s, "doc-1", "/docs/a.md", "A", "persisted content")
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	doc, err := reopened.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "persisted content", doc.Content)
}

func TestVectorCodecRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{},
		{0},
		{1.5, -2.25, 3.125},
		{-0.000001, 1e30, -1e-30},
	}
	for _, v := range vectors {
		decoded, err := decodeVector(encodeVector(v))
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}

	_, err := decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

// Package store is the persistence layer for the document corpus:
// document records, their embeddings, named concept vectors, the FTS5
// full-text index, and the singleton sync status. The store is the single
// writer for all persisted entities.
package store

import (
	"errors"
	"time"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Document is a persisted document record. ID is stable across content
// updates; FilePath is unique across the corpus.
type Document struct {
	ID         string
	FilePath   string
	Title      string
	Content    string
	WordCount  int
	FileHash   string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// DocumentRef is the id/path pair used by deletion reconciliation.
type DocumentRef struct {
	ID       string
	FilePath string
}

// Concept is a named, reusable concept vector derived from source text.
type Concept struct {
	Name       string
	Vector     []float32
	SourceText string
	CreatedAt  time.Time
}

// SyncStatus is the singleton record of the last successful sync run.
type SyncStatus struct {
	LastSync       time.Time
	FilesProcessed int
}

// FTSResult is one full-text match. Score is the negated SQLite bm25()
// value, so higher means more relevant.
type FTSResult struct {
	DocID string
	Score float64
}

// Stats summarizes corpus state for status displays.
type Stats struct {
	DocumentCount  int
	EmbeddingCount int
	ConceptCount   int
	LastSync       time.Time
	DatabaseSizeMB float64
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Store persists documents, embeddings, concept vectors, the full-text
// index, and sync status in a single SQLite database.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// New opens (or creates) the store at path. An empty path opens an
// in-memory database for testing.
func New(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: serializes writers and keeps the in-memory
	// database from evaporating between pooled connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL keeps concurrent readers (queries) unblocked during sync writes.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the corpus tables and the FTS5 virtual table.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		filepath    TEXT UNIQUE NOT NULL,
		title       TEXT NOT NULL,
		content     TEXT NOT NULL,
		word_count  INTEGER NOT NULL DEFAULT 0,
		file_hash   TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		modified_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		document_id TEXT PRIMARY KEY,
		embedding   BLOB NOT NULL,
		FOREIGN KEY(document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS concept_vectors (
		name        TEXT PRIMARY KEY,
		embedding   BLOB NOT NULL,
		source_text TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_status (
		id              INTEGER PRIMARY KEY CHECK (id = 1),
		last_sync       TIMESTAMP,
		files_processed INTEGER NOT NULL DEFAULT 0
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
		document_id UNINDEXED,
		title,
		content,
		tokenize='porter unicode61'
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveDocument inserts or replaces a document row and its full-text entry
// in one transaction. The FTS entry is deleted then reinserted (FTS5
// virtual tables do not support REPLACE) and is never left partial.
func (s *Store) SaveDocument(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	created := doc.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents
			(id, filepath, title, content, word_count, file_hash, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.FilePath, doc.Title, doc.Content, doc.WordCount, doc.FileHash, created, now)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents_fts WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to clear full-text entry for %s: %w", doc.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents_fts (document_id, title, content) VALUES (?, ?, ?)`,
		doc.ID, doc.Title, doc.Content); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}

	return tx.Commit()
}

// GetDocument returns the document by id, or ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	return s.queryDocument(ctx, `SELECT id, filepath, title, content, word_count, file_hash, created_at, modified_at
		FROM documents WHERE id = ?`, id)
}

// GetDocumentByPath returns the document by absolute filepath, or ErrNotFound.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	return s.queryDocument(ctx, `SELECT id, filepath, title, content, word_count, file_hash, created_at, modified_at
		FROM documents WHERE filepath = ?`, path)
}

func (s *Store) queryDocument(ctx context.Context, query string, arg any) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc Document
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&doc.ID, &doc.FilePath, &doc.Title, &doc.Content,
		&doc.WordCount, &doc.FileHash, &doc.CreatedAt, &doc.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns documents ordered by modification time descending.
// A non-empty search narrows the list through the full-text index.
func (s *Store) ListDocuments(ctx context.Context, limit, offset int, search string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, filepath, title, content, word_count, file_hash, created_at, modified_at
		FROM documents ORDER BY modified_at DESC LIMIT ? OFFSET ?`
	args := []any{limit, offset}

	if search != "" {
		query = `SELECT d.id, d.filepath, d.title, d.content, d.word_count, d.file_hash, d.created_at, d.modified_at
			FROM documents d
			JOIN documents_fts fts ON d.id = fts.document_id
			WHERE documents_fts MATCH ?
			ORDER BY d.modified_at DESC LIMIT ? OFFSET ?`
		args = []any{search, limit, offset}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isFTSSyntaxError(err) {
			return []*Document{}, nil
		}
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.FilePath, &doc.Title, &doc.Content,
			&doc.WordCount, &doc.FileHash, &doc.CreatedAt, &doc.ModifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// ListDocumentRefs returns the id/path pair of every stored document.
func (s *Store) ListDocumentRefs(ctx context.Context) ([]DocumentRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, filepath FROM documents ORDER BY filepath`)
	if err != nil {
		return nil, fmt.Errorf("failed to list document refs: %w", err)
	}
	defer rows.Close()

	var refs []DocumentRef
	for rows.Next() {
		var ref DocumentRef
		if err := rows.Scan(&ref.ID, &ref.FilePath); err != nil {
			return nil, fmt.Errorf("failed to scan document ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// DeleteDocument removes a document, its embedding, and its full-text
// entry in one transaction.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete full-text entry for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete embedding for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	return tx.Commit()
}

// DocumentCount returns the number of stored documents.
func (s *Store) DocumentCount(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM documents`)
}

// SaveEmbedding inserts or replaces the embedding for a document.
func (s *Store) SaveEmbedding(ctx context.Context, docID string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (document_id, embedding) VALUES (?, ?)`,
		docID, encodeVector(vector))
	if err != nil {
		return fmt.Errorf("failed to save embedding for %s: %w", docID, err)
	}
	return nil
}

// GetEmbedding returns the embedding for a document, or ErrNotFound.
func (s *Store) GetEmbedding(ctx context.Context, docID string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding FROM embeddings WHERE document_id = ?`, docID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query embedding: %w", err)
	}
	return decodeVector(blob)
}

// AllEmbeddings returns every stored embedding keyed by document id.
// Callers own the map for the duration of one query only; nothing is
// cached between calls.
func (s *Store) AllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT document_id, embedding FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	embeddings := make(map[string][]float32)
	for rows.Next() {
		var docID string
		var blob []byte
		if err := rows.Scan(&docID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		vector, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("corrupt embedding for %s: %w", docID, err)
		}
		embeddings[docID] = vector
	}
	return embeddings, rows.Err()
}

// EmbeddingCount returns the number of stored embeddings.
func (s *Store) EmbeddingCount(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM embeddings`)
}

// SaveConcept inserts or replaces a named concept vector. Storing an
// existing name overwrites it.
func (s *Store) SaveConcept(ctx context.Context, concept *Concept) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := concept.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO concept_vectors (name, embedding, source_text, created_at)
		VALUES (?, ?, ?, ?)`,
		concept.Name, encodeVector(concept.Vector), concept.SourceText, created)
	if err != nil {
		return fmt.Errorf("failed to save concept %s: %w", concept.Name, err)
	}
	return nil
}

// GetConcept returns a concept by name, or ErrNotFound.
func (s *Store) GetConcept(ctx context.Context, name string) (*Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var concept Concept
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT name, embedding, source_text, created_at FROM concept_vectors WHERE name = ?`,
		name).Scan(&concept.Name, &blob, &concept.SourceText, &concept.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query concept: %w", err)
	}

	concept.Vector, err = decodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("corrupt concept vector %s: %w", name, err)
	}
	return &concept, nil
}

// ListConcepts returns all concepts ordered by name.
func (s *Store) ListConcepts(ctx context.Context) ([]*Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, embedding, source_text, created_at FROM concept_vectors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list concepts: %w", err)
	}
	defer rows.Close()

	var concepts []*Concept
	for rows.Next() {
		var concept Concept
		var blob []byte
		if err := rows.Scan(&concept.Name, &blob, &concept.SourceText, &concept.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan concept: %w", err)
		}
		concept.Vector, err = decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("corrupt concept vector %s: %w", concept.Name, err)
		}
		concepts = append(concepts, &concept)
	}
	return concepts, rows.Err()
}

// DeleteConcept removes a concept by name. Concepts are independent of
// documents; nothing cascades.
func (s *Store) DeleteConcept(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM concept_vectors WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete concept %s: %w", name, err)
	}
	return nil
}

// ConceptCount returns the number of stored concepts.
func (s *Store) ConceptCount(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM concept_vectors`)
}

// FTSSearch runs a full-text match over title+content and returns results
// best-first. SQLite bm25() scores are negative where lower is better;
// they are negated here so higher means more relevant. Queries FTS5
// cannot parse return an empty result, not an error.
func (s *Store) FTSSearch(ctx context.Context, query string, limit int) ([]FTSResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if strings.TrimSpace(query) == "" {
		return []FTSResult{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, bm25(documents_fts) AS score
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY score
		LIMIT ?`, query, limit)
	if err != nil {
		if isFTSSyntaxError(err) {
			return []FTSResult{}, nil
		}
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	defer rows.Close()

	var results []FTSResult
	for rows.Next() {
		var r FTSResult
		if err := rows.Scan(&r.DocID, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		r.Score = -r.Score
		results = append(results, r)
	}
	return results, rows.Err()
}

// UpdateSyncStatus overwrites the singleton sync status record.
func (s *Store) UpdateSyncStatus(ctx context.Context, filesProcessed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sync_status (id, last_sync, files_processed) VALUES (1, ?, ?)`,
		time.Now().UTC(), filesProcessed)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}

// GetSyncStatus returns the last sync record, or ErrNotFound if no sync
// has completed yet.
func (s *Store) GetSyncStatus(ctx context.Context) (*SyncStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var status SyncStatus
	err := s.db.QueryRowContext(ctx,
		`SELECT last_sync, files_processed FROM sync_status WHERE id = 1`).
		Scan(&status.LastSync, &status.FilesProcessed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync status: %w", err)
	}
	return &status, nil
}

// GetStats returns corpus statistics for status displays.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var err error
	if stats.DocumentCount, err = s.DocumentCount(ctx); err != nil {
		return nil, err
	}
	if stats.EmbeddingCount, err = s.EmbeddingCount(ctx); err != nil {
		return nil, err
	}
	if stats.ConceptCount, err = s.ConceptCount(ctx); err != nil {
		return nil, err
	}

	status, err := s.GetSyncStatus(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if status != nil {
		stats.LastSync = status.LastSync
	}

	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			stats.DatabaseSizeMB = float64(info.Size()) / (1024 * 1024)
		}
	}
	return stats, nil
}

// Close closes the database. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

func (s *Store) count(ctx context.Context, query string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return n, nil
}

// isFTSSyntaxError reports whether err came from FTS5 query parsing.
func isFTSSyntaxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5:") || strings.Contains(msg, "syntax error")
}

// Package indexer keeps the persisted corpus in sync with a folder of
// documents on disk. Change detection is hash-based: unchanged files are
// skipped without extraction or embedding, which is the dominant cost
// saving of the pipeline.
package indexer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/extract"
	"github.com/docdex/docdex/internal/store"
)

const (
	// MaxIndexChars caps the content sent to the embedder per document.
	MaxIndexChars = 8000

	// TitleMaxLen caps derived titles.
	TitleMaxLen = 200
)

// junkDirs are directory names excluded from discovery.
var junkDirs = map[string]struct{}{
	"node_modules": {},
	"__pycache__":  {},
}

// Outcome is the terminal state of processing one candidate file.
type Outcome string

const (
	OutcomeAdded     Outcome = "added"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeError     Outcome = "error"
)

// FileResult is the outcome of processing a single file.
type FileResult struct {
	Status   Outcome
	FilePath string
	DocID    string
	Err      error
}

// SyncError records one failed file in a sync summary.
type SyncError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// SyncSummary aggregates a full sync run. A failure in one file never
// aborts the run; it lands in Errors instead.
type SyncSummary struct {
	Total     int         `json:"total"`
	Added     int         `json:"added"`
	Updated   int         `json:"updated"`
	Unchanged int         `json:"unchanged"`
	Errors    []SyncError `json:"errors"`
	Processed int         `json:"processed"`
}

// ProgressFunc fires after every file regardless of outcome.
type ProgressFunc func(current, total int, filepath string)

// Indexer discovers, extracts, embeds, and persists documents.
type Indexer struct {
	store      *store.Store
	embedder   embed.Embedder
	extractors *extract.Registry
	lockPath   string
	logger     *slog.Logger
}

// Options configures an Indexer.
type Options struct {
	// LockPath is the flock file guarding sync runs against the same
	// database. Empty disables locking.
	LockPath string
}

// New creates an Indexer over the given store and embedder.
func New(s *store.Store, e embed.Embedder, r *extract.Registry, opts Options) *Indexer {
	return &Indexer{
		store:      s,
		embedder:   e,
		extractors: r,
		lockPath:   opts.LockPath,
		logger:     slog.Default().With(slog.String("component", "indexer")),
	}
}

// FindDocuments enumerates supported files under folder, excluding hidden
// path segments and junk directories, sorted lexicographically by
// absolute path so repeated runs visit files in the same order.
// A missing folder yields an empty list, not an error.
func (ix *Indexer) FindDocuments(folder string) ([]string, error) {
	absRoot, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve folder: %w", err)
	}

	if _, err := os.Stat(absRoot); os.IsNotExist(err) {
		return []string{}, nil
	}

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			ix.logger.Warn("skipping unreadable path",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if _, junk := junkDirs[name]; junk {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !ix.extractors.Supported(filepath.Ext(name)) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", absRoot, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// ProcessFile runs the per-file state machine: hash, compare, extract,
// title, embed, persist. force bypasses the hash short-circuit.
func (ix *Indexer) ProcessFile(ctx context.Context, path string, force bool) FileResult {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return FileResult{Status: OutcomeError, FilePath: path, Err: err}
	}

	hash, err := hashFile(absPath)
	if err != nil {
		return FileResult{Status: OutcomeError, FilePath: absPath, Err: err}
	}

	existing, err := ix.store.GetDocumentByPath(ctx, absPath)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return FileResult{Status: OutcomeError, FilePath: absPath, Err: err}
	}

	// The critical cost-avoidance path: no extraction, no embedding call.
	if existing != nil && existing.FileHash == hash && !force {
		return FileResult{Status: OutcomeUnchanged, FilePath: absPath, DocID: existing.ID}
	}

	content, err := ix.extractors.Extract(ctx, absPath)
	if err != nil {
		return FileResult{Status: OutcomeError, FilePath: absPath, Err: err}
	}
	if strings.TrimSpace(content) == "" {
		return FileResult{Status: OutcomeError, FilePath: absPath, Err: fmt.Errorf("no content extracted")}
	}

	embedInput := content
	if len(embedInput) > MaxIndexChars {
		embedInput = embedInput[:MaxIndexChars]
	}
	vector, err := ix.embedder.Embed(ctx, embedInput)
	if err != nil {
		return FileResult{Status: OutcomeError, FilePath: absPath, Err: fmt.Errorf("embedding failed: %w", err)}
	}

	doc := &store.Document{
		ID:        uuid.NewString(),
		FilePath:  absPath,
		Title:     deriveTitle(absPath, content),
		Content:   content,
		WordCount: len(strings.Fields(content)),
		FileHash:  hash,
	}
	status := OutcomeAdded
	if existing != nil {
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
		status = OutcomeUpdated
	}

	if err := ix.store.SaveDocument(ctx, doc); err != nil {
		return FileResult{Status: OutcomeError, FilePath: absPath, Err: err}
	}
	if err := ix.store.SaveEmbedding(ctx, doc.ID, vector); err != nil {
		return FileResult{Status: OutcomeError, FilePath: absPath, Err: err}
	}

	return FileResult{Status: status, FilePath: absPath, DocID: doc.ID}
}

// SyncFolder processes every discovered file sequentially and returns a
// complete summary even when individual files fail. onProgress may be
// nil. Concurrent sync runs against the same database are serialized via
// the configured lock file.
func (ix *Indexer) SyncFolder(ctx context.Context, folder string, force bool, onProgress ProgressFunc) (*SyncSummary, error) {
	if ix.lockPath != "" {
		lock := flock.New(ix.lockPath)
		if err := lock.Lock(); err != nil {
			return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
		}
		defer func() { _ = lock.Unlock() }()
	}

	paths, err := ix.FindDocuments(folder)
	if err != nil {
		return nil, err
	}

	summary := &SyncSummary{Total: len(paths), Errors: []SyncError{}}

	for i, path := range paths {
		result := ix.ProcessFile(ctx, path, force)
		summary.Processed = i + 1

		switch result.Status {
		case OutcomeAdded:
			summary.Added++
		case OutcomeUpdated:
			summary.Updated++
		case OutcomeUnchanged:
			summary.Unchanged++
		case OutcomeError:
			ix.logger.Warn("file failed",
				slog.String("file", result.FilePath),
				slog.String("error", result.Err.Error()))
			summary.Errors = append(summary.Errors, SyncError{
				File:  result.FilePath,
				Error: result.Err.Error(),
			})
		}

		if onProgress != nil {
			onProgress(i+1, len(paths), path)
		}
	}

	if err := ix.store.UpdateSyncStatus(ctx, summary.Processed); err != nil {
		return nil, fmt.Errorf("failed to record sync status: %w", err)
	}

	ix.logger.Info("sync complete",
		slog.Int("total", summary.Total),
		slog.Int("added", summary.Added),
		slog.Int("updated", summary.Updated),
		slog.Int("unchanged", summary.Unchanged),
		slog.Int("errors", len(summary.Errors)))

	return summary, nil
}

// PendingTexts extracts the embed input for every file a sync run would
// send to the provider: changed or new files, or all files when force is
// set. Nothing is written; used for pre-flight cost estimates.
func (ix *Indexer) PendingTexts(ctx context.Context, folder string, force bool) ([]string, error) {
	paths, err := ix.FindDocuments(folder)
	if err != nil {
		return nil, err
	}

	var texts []string
	for _, path := range paths {
		hash, err := hashFile(path)
		if err != nil {
			continue
		}

		existing, err := ix.store.GetDocumentByPath(ctx, path)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if existing != nil && existing.FileHash == hash && !force {
			continue
		}

		content, err := ix.extractors.Extract(ctx, path)
		if err != nil || strings.TrimSpace(content) == "" {
			continue
		}
		if len(content) > MaxIndexChars {
			content = content[:MaxIndexChars]
		}
		texts = append(texts, content)
	}
	return texts, nil
}

// RemoveDeletedDocuments deletes every stored document whose file no
// longer exists on disk, cascading to its embedding and full-text entry.
// Returns the number removed. Invoked explicitly; not part of sync.
func (ix *Indexer) RemoveDeletedDocuments(ctx context.Context) (int, error) {
	refs, err := ix.store.ListDocumentRefs(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, ref := range refs {
		if _, err := os.Stat(ref.FilePath); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to stat %s: %w", ref.FilePath, err)
		}

		if err := ix.store.DeleteDocument(ctx, ref.ID); err != nil {
			return removed, err
		}
		removed++
		ix.logger.Info("removed deleted document",
			slog.String("id", ref.ID),
			slog.String("file", ref.FilePath))
	}

	return removed, nil
}

// hashFile computes the MD5 digest of a file's raw bytes. Change
// detection only, not a security boundary.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// deriveTitle returns the first non-empty line of content with any
// leading markdown heading marker stripped, capped at TitleMaxLen.
// Entirely blank content falls back to the filename stem.
func deriveTitle(path, content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			line = strings.TrimSpace(strings.TrimLeft(line, "#"))
			if line == "" {
				continue
			}
		}
		if len(line) > TitleMaxLen {
			return line[:TitleMaxLen]
		}
		return line
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// Package extract converts documents on disk to plain text, dispatched by
// file extension. Formats whose backend is unavailable degrade to a
// visible placeholder string instead of failing the indexing run.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor converts a single file to plain text.
type Extractor interface {
	// Extract returns the text content of the file at path.
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Registry maps lower-cased file extensions (with dot) to extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a registry with the default format set:
// .txt and .md read raw, .docx parses the OOXML archive, .pdf delegates
// to the pdftotext command.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.Register(".txt", ExtractorFunc(extractPlain))
	r.Register(".md", ExtractorFunc(extractPlain))
	r.Register(".docx", ExtractorFunc(extractDOCX))
	r.Register(".pdf", NewPDFExtractor())
	return r
}

// Register adds or replaces the extractor for an extension.
func (r *Registry) Register(ext string, e Extractor) {
	r.extractors[strings.ToLower(ext)] = e
}

// Supported reports whether the extension has a registered extractor.
func (r *Registry) Supported(ext string) bool {
	_, ok := r.extractors[strings.ToLower(ext)]
	return ok
}

// Extensions returns the registered extensions in no particular order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	return exts
}

// Extract dispatches to the extractor registered for the file's extension.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.extractors[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}
	return e.Extract(ctx, path)
}

// extractPlain reads the file as UTF-8 text.
func extractPlain(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

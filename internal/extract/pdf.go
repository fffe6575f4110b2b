package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// PDFPlaceholder is returned when no PDF backend is available. It is a
// visible marker in indexed content, not an error: one missing optional
// tool must not fail a whole sync run.
const PDFPlaceholder = "[PDF extraction requires the pdftotext tool]"

// CommandRunner executes an external command and returns its stdout.
// Split out for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

// PDFExtractor extracts text from PDF files by delegating to the
// pdftotext command (poppler-utils).
type PDFExtractor struct {
	runner CommandRunner
	binary string
}

var _ Extractor = (*PDFExtractor)(nil)

// NewPDFExtractor creates a PDF extractor using the system pdftotext.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{runner: execRunner{}, binary: "pdftotext"}
}

// NewPDFExtractorWithRunner creates a PDF extractor with a custom runner.
func NewPDFExtractorWithRunner(runner CommandRunner) *PDFExtractor {
	return &PDFExtractor{runner: runner, binary: "pdftotext"}
}

// Extract runs `pdftotext <path> -` and returns its stdout. A missing
// binary yields PDFPlaceholder; other failures are real errors.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	if _, err := exec.LookPath(e.binary); err != nil {
		return PDFPlaceholder, nil
	}

	out, err := e.runner.Run(ctx, e.binary, path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed for %s: %w", path, err)
	}
	return string(out), nil
}

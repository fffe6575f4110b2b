package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
)

// docx paragraphs live in word/document.xml inside the OOXML zip archive.
const docxDocumentPath = "word/document.xml"

// docxDocument mirrors the subset of the WordprocessingML schema needed
// to pull paragraph text.
type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

// extractDOCX extracts paragraph text from a .docx file, one line per
// paragraph.
func extractDOCX(_ context.Context, path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive %s: %w", path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != docxDocumentPath {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s in %s: %w", docxDocumentPath, path, err)
		}
		defer rc.Close()

		var doc docxDocument
		if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
			return "", fmt.Errorf("failed to parse %s in %s: %w", docxDocumentPath, path, err)
		}

		var b strings.Builder
		for i, p := range doc.Body.Paragraphs {
			if i > 0 {
				b.WriteByte('\n')
			}
			for _, run := range p.Runs {
				b.WriteString(run.Text)
			}
		}
		return b.String(), nil
	}

	return "", fmt.Errorf("no %s entry in %s", docxDocumentPath, path)
}

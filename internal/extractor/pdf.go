// Package extractor turns input files into plain statement text. PDF
// files are read through their embedded text layer; plain .txt files
// pass through unchanged. Scanned/image PDFs have no usable text layer
// and are rejected by the readability gate.
package extractor

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"bank-transfer-reconciler/pkg/errors"
	"bank-transfer-reconciler/pkg/logger"

	"github.com/ledongthuc/pdf"
)

// Extracted is one file's extraction output. Hash is the sha256 of the
// raw file bytes and feeds same-file exclusion in matching.
type Extracted struct {
	FileID string
	Hash   string
	Text   string
	Pages  int
}

const (
	// minReadableChars is the readability gate: a text layer shorter
	// than this almost certainly means a scanned document.
	minReadableChars = 200
	minLetterRatio   = 0.25
)

// ReadInput extracts text from a statement file on disk, dispatching on
// extension.
func ReadInput(path string) (*Extracted, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileNotFound, path, err)
	}

	sum := sha256.Sum256(raw)
	out := &Extracted{
		FileID: filepath.Base(path),
		Hash:   hex.EncodeToString(sum[:]),
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, pages, err := extractPDFText(raw, path)
		if err != nil {
			return nil, err
		}
		out.Text = text
		out.Pages = pages
	default:
		out.Text = string(raw)
	}

	if !Readable(out.Text) {
		return nil, errors.ExtractError(errors.CodeGarbageText, path, nil)
	}
	return out, nil
}

// extractPDFText walks the document's text layer page by page.
func extractPDFText(raw []byte, path string) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", 0, errors.ExtractError(errors.CodeNoTextLayer, path, err)
	}

	log := logger.GetGlobalLogger().WithComponent("extractor")
	var b strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single broken page does not sink the document.
			log.WithFields(logger.Fields{"path": path, "page": i}).
				Warn("skipping unreadable page")
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	return b.String(), pages, nil
}

// Readable reports whether extracted text is plausibly a statement's
// text layer rather than scanner noise.
func Readable(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minReadableChars {
		return false
	}
	letters := 0
	for _, r := range trimmed {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			letters++
		}
	}
	return float64(letters)/float64(len(trimmed)) >= minLetterRatio
}

// Package loader extracts plain text from the documents accepted for
// indexing: PDF files and UTF-8 text or Markdown files.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for file extensions the loader cannot read.
var ErrUnsupportedFormat = errors.New("loader: unsupported document format")

// Supported lists the accepted file extensions.
var Supported = []string{".pdf", ".txt", ".md"}

// Load returns the text content of the document at path. PDF pages are
// each introduced by a "--- Page N ---" marker line (1-based).
func Load(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".txt", ".md":
		return loadText(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// IsSupported reports whether Load can read path.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range Supported {
		if ext == s {
			return true
		}
	}
	return false
}

func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loader: read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("loader: %s is not valid UTF-8", path)
	}
	return string(data), nil
}

func loadPDF(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loader: read %s: %w", path, err)
	}
	return ExtractPDF(data)
}

// ExtractPDF returns the text of an in-memory PDF document. Pages that fail
// to decode contribute only their marker.
func ExtractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("loader: parse pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		fmt.Fprintf(&b, "\n--- Page %d ---\n", i)

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

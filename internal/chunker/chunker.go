// Package chunker splits extracted document text into overlapping,
// fixed-width windows ready for embedding.
package chunker

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSize is the window width in characters.
	DefaultSize = 1000

	// DefaultOverlap is the number of characters shared by consecutive windows.
	DefaultOverlap = 100

	// MinViableLength is the trimmed length a window must exceed to be kept.
	// Shorter windows are page-marker debris or trailing whitespace.
	MinViableLength = 50
)

// ErrInvalidStride is returned when size and overlap would not advance the
// window (size - overlap <= 0) or are themselves invalid.
var ErrInvalidStride = errors.New("chunker: invalid stride")

// Chunk is a contiguous, trimmed slice of a source document.
type Chunk struct {
	// ID is "<basename>_chunk_<ordinal>", unique within a collection.
	ID string

	// Text is the trimmed window content.
	Text string

	// SourcePath is the path of the document the chunk was cut from.
	SourcePath string

	// Ordinal is the position of the chunk among the kept chunks of its
	// document, starting at zero.
	Ordinal int

	// Length is the number of characters in Text.
	Length int
}

// ID builds the identifier of the chunk with the given ordinal in sourcePath.
func ID(sourcePath string, ordinal int) string {
	return fmt.Sprintf("%s_chunk_%d", filepath.Base(sourcePath), ordinal)
}

// Split cuts text into windows of size characters advancing by
// size-overlap characters, starting at offset zero and continuing while the
// window start lies inside the text. Windows are trimmed and dropped when
// their trimmed length is at most [MinViableLength].
//
// Offsets count runes, so multi-byte characters are never split.
func Split(text, sourcePath string, size, overlap int) ([]Chunk, error) {
	if size <= 0 || overlap < 0 || size-overlap <= 0 {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidStride, size, overlap)
	}
	stride := size - overlap

	runes := []rune(text)
	var chunks []Chunk
	for start := 0; start < len(runes); start += stride {
		end := min(start+size, len(runes))

		window := strings.TrimSpace(string(runes[start:end]))
		n := utf8.RuneCountInString(window)
		if n <= MinViableLength {
			continue
		}

		ordinal := len(chunks)
		chunks = append(chunks, Chunk{
			ID:         ID(sourcePath, ordinal),
			Text:       window,
			SourcePath: sourcePath,
			Ordinal:    ordinal,
			Length:     n,
		})
	}

	return chunks, nil
}

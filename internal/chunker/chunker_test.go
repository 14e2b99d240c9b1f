package chunker

import (
	"errors"
	"strings"
	"testing"
)

// denseText returns n characters with no whitespace so no window is trimmed.
func denseText(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	var b strings.Builder
	for i := range n {
		b.WriteByte(alphabet[i%len(alphabet)])
	}
	return b.String()
}

func TestSplit_InvalidStride(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Split("some text", "doc.pdf", tt.size, tt.overlap)
			if !errors.Is(err, ErrInvalidStride) {
				t.Fatalf("err = %v, want ErrInvalidStride", err)
			}
		})
	}
}

func TestSplit_CoversEveryPosition(t *testing.T) {
	t.Parallel()

	const size, overlap = 500, 100
	text := denseText(2345)

	chunks, err := Split(text, "/data/budget.pdf", size, overlap)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	covered := make([]bool, len(text))
	for i, c := range chunks {
		start := i * (size - overlap)
		end := min(start+size, len(text))
		if c.Text != text[start:end] {
			t.Fatalf("chunk %d does not match window [%d,%d)", i, start, end)
		}
		for p := start; p < end; p++ {
			covered[p] = true
		}
	}
	for p, ok := range covered {
		if !ok {
			t.Fatalf("position %d not covered by any chunk", p)
		}
	}
}

func TestSplit_DiscardsShortWindows(t *testing.T) {
	t.Parallel()

	// Windows start at 0 and 900; the second holds only 40 characters.
	chunks, err := Split(denseText(940), "doc.txt", 1000, 100)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}

	// A window of exactly MinViableLength characters is dropped too.
	chunks, err = Split(denseText(MinViableLength), "doc.txt", 1000, 100)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks for a %d-char text, want 0", len(chunks), MinViableLength)
	}

	for _, c := range chunks {
		if c.Length <= MinViableLength {
			t.Errorf("chunk %s has length %d", c.ID, c.Length)
		}
	}
}

func TestSplit_WhitespaceWindowDropped(t *testing.T) {
	t.Parallel()

	text := denseText(120) + strings.Repeat(" ", 200) + denseText(120)
	chunks, err := Split(text, "doc.txt", 150, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	// Windows: [0,150) kept, [150,300) blank, [300,440) kept.
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	for i, c := range chunks {
		if c.Ordinal != i {
			t.Errorf("chunk %d has ordinal %d; ordinals must be consecutive", i, c.Ordinal)
		}
		if strings.TrimSpace(c.Text) != c.Text {
			t.Errorf("chunk %d is not trimmed", i)
		}
	}
}

func TestSplit_IDsAndMetadata(t *testing.T) {
	t.Parallel()

	chunks, err := Split(denseText(1500), "/var/docs/loi_de_finances.pdf", 1000, 100)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	want := []string{"loi_de_finances.pdf_chunk_0", "loi_de_finances.pdf_chunk_1"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, c := range chunks {
		if c.ID != want[i] {
			t.Errorf("chunk %d id = %q, want %q", i, c.ID, want[i])
		}
		if c.SourcePath != "/var/docs/loi_de_finances.pdf" {
			t.Errorf("chunk %d source = %q", i, c.SourcePath)
		}
	}
	if chunks[1].Length != 600 {
		t.Errorf("tail chunk length = %d, want 600", chunks[1].Length)
	}
}

func TestSplit_MultibyteRunes(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("é", 130)
	chunks, err := Split(text, "doc.txt", 100, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Length != 100 {
		t.Errorf("length = %d runes, want 100", chunks[0].Length)
	}
	if !strings.HasPrefix(text, chunks[0].Text) {
		t.Error("chunk is not a prefix of the text; rune boundary broken")
	}
}

func TestSplit_EmptyText(t *testing.T) {
	t.Parallel()

	chunks, err := Split("", "doc.txt", 1000, 100)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("got %d chunks for empty text", len(chunks))
	}
}

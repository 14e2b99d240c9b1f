package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Text(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	want := "Les recettes fiscales s'élèvent à 1 234,5 milliards de FCFA."
	if err := os.WriteFile(path, []byte(want), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("Load = %q, want %q", got, want)
	}
}

func TestLoad_InvalidUTF8(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0xfd}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
}

func TestLoad_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := Load("budget.docx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.pdf")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExtractPDF_Garbage(t *testing.T) {
	t.Parallel()

	if _, err := ExtractPDF([]byte("not a pdf")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestIsSupported(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"a.pdf":  true,
		"a.PDF":  true,
		"a.txt":  true,
		"a.md":   true,
		"a.docx": false,
		"a":      false,
	}
	for path, want := range tests {
		if got := IsSupported(path); got != want {
			t.Errorf("IsSupported(%q) = %v, want %v", path, got, want)
		}
	}
}

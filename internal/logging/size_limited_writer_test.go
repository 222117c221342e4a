package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSizeLimitedWriterTruncatesAtCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := newSizeLimitedWriter(path, 1)
	if err != nil {
		t.Fatalf("newSizeLimitedWriter: %v", err)
	}
	defer func() { _ = w.Close() }()
	w.cap = 64

	chunk := bytes.Repeat([]byte("x"), 40)
	if _, err := w.Write(chunk); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := w.Write(chunk); err != nil {
		t.Fatalf("second write: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 40 {
		t.Fatalf("file size = %d, want 40 after truncation", info.Size())
	}
}

package localfs

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	body := "<Law><LawBody><LawTitle>労働基準法</LawTitle></LawBody></Law>"
	if err := storage.Save(context.Background(), "322AC0000000049.xml", strings.NewReader(body)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	f, err := storage.Open(context.Background(), "322AC0000000049.xml")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != body {
		t.Fatalf("round trip mismatch: %q", raw)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	storage, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := storage.Save(context.Background(), "law.xml", strings.NewReader("body")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "law.xml" {
		t.Fatalf("expected only the final file, got %v", entries)
	}
}

func TestOpenMissingKeyFails(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := storage.Open(context.Background(), "missing.xml"); err == nil {
		t.Fatal("expected error for missing key")
	}
}

package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"ContributionScorer/internal/domain"
)

func TestDirectorySource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("b.txt", "second")
	write("a.txt", "first")
	write("export.html", "<html></html>")
	if err := os.Mkdir(filepath.Join(dir, "sub.txt"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	src := NewDirectorySource(dir, "*")
	got, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 files, got %+v", got)
	}
	if got[0].Name != "a.txt" || got[0].Format != "text" || got[2].Format != "html" {
		t.Fatalf("unexpected listing: %+v", got)
	}

	rc, err := src.Open(context.Background(), domain.TranscriptFile{Name: "a.txt"})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "first" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestDirectorySourceMissingDir(t *testing.T) {
	t.Parallel()

	got, err := NewDirectorySource(filepath.Join(t.TempDir(), "nope"), "*.txt").List(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty listing, got %v %v", got, err)
	}
}

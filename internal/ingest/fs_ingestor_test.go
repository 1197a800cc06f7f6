package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joseph-ayodele/document-extractor/internal/common"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestIngestDirectoryFiltersAndDeduplicates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.png"), "scan-1")
	writeFile(t, filepath.Join(root, "nested", "b.JPG"), "scan-2")
	writeFile(t, filepath.Join(root, "nested", "copy-of-a.png"), "scan-1")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignore me")
	writeFile(t, filepath.Join(root, ".cache", "c.png"), "hidden")

	ing := NewFSIngestor(nil)
	results, stats, err := ing.IngestDirectory(context.Background(), root, true)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stats.Matched != 3 || stats.Succeeded != 3 || stats.Deduplicated != 1 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	dups := 0
	for _, r := range results {
		if len(r.HashHex) != 64 {
			t.Fatalf("hash = %q", r.HashHex)
		}
		if r.Deduplicated {
			dups++
		}
	}
	if dups != 1 {
		t.Fatalf("results = %+v", results)
	}
}

func TestIngestPathReportsClaimedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	writeFile(t, path, "scan-1")

	ing := NewFSIngestor(nil)
	r, err := ing.IngestPath(context.Background(), path)
	if err != nil || r.Deduplicated {
		t.Fatalf("first ingest = %+v, %v", r, err)
	}
	if again, _ := ing.IngestPath(context.Background(), path); again.Deduplicated {
		t.Fatalf("unclaimed content reported as duplicate")
	}
	if !ing.MarkSeen(r.HashHex) || ing.MarkSeen(r.HashHex) {
		t.Fatalf("MarkSeen should claim a hash exactly once")
	}
	if again, _ := ing.IngestPath(context.Background(), path); !again.Deduplicated {
		t.Fatalf("claimed content not reported as duplicate")
	}
	ing.Forget(r.HashHex)
	if !ing.MarkSeen(r.HashHex) {
		t.Fatalf("forgotten hash should be claimable again")
	}
}

func TestIngestPathRejectsUnsupportedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "doc.pdf"), "%PDF")

	ing := NewFSIngestor(nil)
	if _, err := ing.IngestPath(context.Background(), filepath.Join(root, "doc.pdf")); !common.IsInputError(err) {
		t.Fatalf("pdf: err = %v", err)
	}
	if _, err := ing.IngestPath(context.Background(), filepath.Join(root, "missing.png")); !common.IsInputError(err) {
		t.Fatalf("missing: err = %v", err)
	}
}

func TestWatcherInitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.png"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatalf("no watcher event")
			return ""
		}
	}
	if got := next(); filepath.Base(got) != "existing.png" {
		t.Fatalf("initial scan emitted %q", got)
	}

	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "new.jpeg"), "y")
	for {
		if got := next(); filepath.Base(got) == "new.jpeg" {
			break
		}
	}
}

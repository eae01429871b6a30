package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

func TestWatcherImportsNewFile(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}

	w := New([]string{dir}, []string{".json"}, true, rec.record, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "new.json"), `{"content_text":"q"}`); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "skip.txt"), "not a question"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(600 * time.Millisecond)

	paths := rec.snapshot()
	if len(paths) < 1 {
		t.Fatalf("expected at least one import callback, got %d", len(paths))
	}
	for _, p := range paths {
		if strings.HasSuffix(p, "skip.txt") {
			t.Error("non-matching extension should not be imported")
		}
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}

	w := New([]string{dir}, []string{".json"}, true, rec.record, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	nested := filepath.Join(dir, "batch-2025", "week1")
	if err := mkdirAll(nested); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "deep.json"), `{"content_text":"q"}`); err != nil {
		t.Fatal(err)
	}

	time.Sleep(800 * time.Millisecond)

	found := false
	for _, p := range rec.snapshot() {
		if strings.HasSuffix(p, "deep.json") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected deep.json to be imported, got %v", rec.snapshot())
	}
}

func TestWatcherSyncExisting(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "a.json"), `{"content_text":"q"}`); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "ignore.xyz"), "x"); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := New([]string{dir}, []string{".json"}, true, rec.record, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExisting()

	paths := rec.snapshot()
	if len(paths) != 1 || !strings.HasSuffix(paths[0], "a.json") {
		t.Errorf("expected one synced file a.json, got %v", paths)
	}
}

func TestWatcherCreatesMissingRoot(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "inbox", "questions")

	w := New([]string{root}, []string{".json"}, true, nil, zap.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
	if dirs := w.Directories(); len(dirs) != 1 {
		t.Errorf("Directories() = %v", dirs)
	}
}

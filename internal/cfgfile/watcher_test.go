package cfgfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func nextChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		if !ok {
			t.Fatal("watcher channel closed")
		}
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

// TestWatcherSeparatesOwnWrites tests own writes from external edits
func TestWatcherSeparatesOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configuration.cfg")
	w := NewWatcher(path)
	p := New(Target{Path: path})
	p.OnCommit(w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if _, err := p.Apply(tickerUpdate("ABC")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	own := nextChange(t, ch)
	if own.External {
		t.Errorf("expected own write, got %+v", own)
	}
	if own.Snapshot == nil {
		t.Fatal("expected parsed snapshot")
	}
	if v, _ := own.Snapshot.Get("base", "ticker"); v != "ABC" {
		t.Errorf("snapshot ticker = %q", v)
	}

	if err := os.WriteFile(path, []byte("[base]\nticker : EXT\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	ext := nextChange(t, ch)
	if !ext.External {
		t.Errorf("expected external change, got %+v", ext)
	}

	cancel()
	for range ch {
	}
}

// TestWatcherMissingDirectory tests that watching fails without a directory
func TestWatcherMissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing", "configuration.cfg"))
	if _, err := w.Watch(context.Background()); err == nil {
		t.Error("expected error")
	}
}

// TestFailedRenameDropsMark tests that a write that never lands does not
// hide the next external edit
func TestFailedRenameDropsMark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configuration.cfg")
	// a non-empty directory at the target path makes the rename fail
	if err := os.MkdirAll(filepath.Join(path, "occupied"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	w := NewWatcher(path)
	p := New(Target{Path: path})
	p.OnCommit(w)

	if _, err := p.persist([]byte("[base]\nticker : ABC\n"), false); err == nil {
		t.Fatal("persist() should fail when the rename fails")
	}
	if w.consumeOwnWrite() {
		t.Error("failed rename left an own-write mark behind")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary file left behind: %v", entries)
	}
}

package cfgfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Change is emitted when the settings file is created, written, removed or
// renamed over.
type Change struct {
	Path     string
	Op       string
	External bool
	Snapshot *Document // nil when the file could not be read
}

// Watcher watches the settings file for edits. It watches the parent
// directory because an atomic rename replaces the file's inode, which would
// silently end a watch on the file itself.
type Watcher struct {
	path string

	mu      sync.Mutex
	pending int
}

// NewWatcher creates a Watcher for path.
func NewWatcher(path string) *Watcher {
	return &Watcher{path: filepath.Clean(path)}
}

// MarkOwnWrite records that the next create event on the file is ours.
// The watcher is passed to Patcher.OnCommit.
func (w *Watcher) MarkOwnWrite(string) {
	w.mu.Lock()
	w.pending++
	w.mu.Unlock()
}

// UnmarkOwnWrite drops a mark whose rename failed.
func (w *Watcher) UnmarkOwnWrite(string) {
	w.mu.Lock()
	if w.pending > 0 {
		w.pending--
	}
	w.mu.Unlock()
}

func (w *Watcher) consumeOwnWrite() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == 0 {
		return false
	}
	w.pending--
	return true
}

// Watch starts watching and returns a channel of changes. The channel is
// closed when ctx is done or the underlying watcher fails.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	out := make(chan Change)

	go func() {
		defer close(out)
		defer fw.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}

				change := Change{
					Path:     w.path,
					Op:       event.Op.String(),
					External: !(event.Has(fsnotify.Create) && w.consumeOwnWrite()),
				}
				if data, err := os.ReadFile(w.path); err == nil {
					change.Snapshot = Parse(data)
				}

				select {
				case out <- change:
				case <-ctx.Done():
					return
				}

			case _, ok := <-fw.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, nil
}

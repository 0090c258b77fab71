// Package inbox watches a drop directory for new book files.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/librarian/internal/logger"
)

// DefaultSettle is how long a file must stay unchanged before it is
// reported, so half-copied files are not picked up.
const DefaultSettle = 2 * time.Second

// Watcher reports files that appear in a directory once they have
// stopped changing.
type Watcher struct {
	dir    string
	settle time.Duration
	accept func(path string) bool

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a watcher for dir. accept filters candidate files (for
// example by extension); nil accepts every regular, non-hidden file.
func New(dir string, settle time.Duration, accept func(path string) bool) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if accept == nil {
		accept = func(string) bool { return true }
	}
	return &Watcher{dir: dir, settle: settle, accept: accept}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Pending lists the acceptable files already in the directory, sorted.
func (w *Watcher) Pending() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) {
			continue
		}
		p := filepath.Join(w.dir, e.Name())
		if w.accept(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Watch starts watching and returns a channel of settled file paths.
// The channel is closed when ctx ends or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, errors.New("watcher is closed")
	}
	if w.watcher != nil {
		return nil, errors.New("watcher already running")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.watcher = fw

	out := make(chan string)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer w.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(w.settle/4, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if p, ok := w.handleEvent(ev); ok {
				pending[p] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("inbox watcher: %v", err)

		case now := <-ticker.C:
			for _, p := range settled(pending, now, w.settle) {
				delete(pending, p)
				if info, err := os.Stat(p); err != nil || info.IsDir() {
					continue
				}
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// settled returns the pending paths untouched for at least settle,
// oldest first.
func settled(pending map[string]time.Time, now time.Time, settle time.Duration) []string {
	var ready []string
	for p, t := range pending {
		if now.Sub(t) >= settle {
			ready = append(ready, p)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		return pending[ready[i]].Before(pending[ready[j]])
	})
	return ready
}

// handleEvent returns the file an event makes a candidate, if any.
// Creates and writes of visible, acceptable regular files count;
// removals, renames away and attribute changes do not.
func (w *Watcher) handleEvent(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if isHidden(filepath.Base(ev.Name)) {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	if !w.accept(ev.Name) {
		return "", false
	}
	return ev.Name, true
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

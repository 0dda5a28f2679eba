// Package watch turns a directory into a drop folder for change requests.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Extensions are the request file types picked up from the folder.
var Extensions = []string{".req", ".md", ".txt"}

const (
	DoneSuffix   = ".done"
	FailedSuffix = ".failed"
)

// DefaultSettle is how long a file must stay quiet before it is handled.
const DefaultSettle = 300 * time.Millisecond

// Handler applies one request file.
type Handler func(ctx context.Context, path string) error

// Result reports a handled request file and where it was moved.
type Result struct {
	Path  string
	Moved string
	Err   error
}

// Watcher feeds request files dropped into a directory to a Handler, one at
// a time.
type Watcher struct {
	dir      string
	handle   Handler
	watcher  *fsnotify.Watcher
	settle   time.Duration
	OnResult func(Result)
	OnError  func(error)
}

// New watches dir. Call Close when done.
func New(dir string, h Handler) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, handle: h, watcher: fw, settle: DefaultSettle}, nil
}

// SetSettle changes the quiet period.
func (w *Watcher) SetSettle(d time.Duration) { w.settle = d }

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// IsRequest reports whether name has one of the request extensions.
func IsRequest(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Run handles created or written request files until ctx is cancelled or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	pending := map[string]time.Time{}
	tick := time.NewTicker(max(w.settle/2, 10*time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !IsRequest(event.Name) || !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError(err)
			}

		case now := <-tick.C:
			var ready []string
			for p, seen := range pending {
				if now.Sub(seen) >= w.settle {
					ready = append(ready, p)
				}
			}
			sort.Strings(ready)
			for _, p := range ready {
				delete(pending, p)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.process(ctx, p)
			}
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	res := Result{Path: path, Err: w.handle(ctx, path)}
	suffix := DoneSuffix
	if res.Err != nil {
		suffix = FailedSuffix
	}
	res.Moved = path + suffix
	if err := os.Rename(path, res.Moved); err != nil {
		res.Moved = ""
		if res.Err == nil {
			res.Err = fmt.Errorf("marking %s handled: %w", path, err)
		}
	}
	if w.OnResult != nil {
		w.OnResult(res)
	}
}

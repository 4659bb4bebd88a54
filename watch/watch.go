// Package watch reports changes to skeleton and config files so a running
// session can reload them.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is how long a file must stay quiet after a change before its
// event is delivered. A burst of writes yields one event for the last one.
const Debounce = 100 * time.Millisecond

// Watcher delivers the cleaned path of a watched file each time it is
// written, created or replaced.
type Watcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool

	Events chan string
	Errors chan error

	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// New watches the given files. Their directories are watched so that
// editors replacing a file by rename are still seen.
func New(files ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		watcher: fw,
		files:   make(map[string]bool, len(files)),
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("resolving %s: %w", f, err)
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	go w.run()
	return w, nil
}

// Close stops the watcher and closes Events and Errors. Safe to call twice.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	pending := make(map[string]*time.Timer)
	quiet := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
		close(w.Events)
		close(w.Errors)
		close(w.done)
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !w.files[name] {
				continue
			}
			if t, ok := pending[name]; ok {
				t.Reset(Debounce)
				continue
			}
			pending[name] = time.AfterFunc(Debounce, func() {
				select {
				case quiet <- name:
				case <-w.closeCh:
				}
			})
		case name := <-quiet:
			delete(pending, name)
			select {
			case w.Events <- name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			case <-w.closeCh:
				return
			default:
				slog.Warn("dropping watcher error", "error", err)
			}
		case <-w.closeCh:
			return
		}
	}
}

// Run calls handle for every event until ctx is cancelled or the watcher
// is closed. Handler errors and watcher errors are logged, not returned.
func (w *Watcher) Run(ctx context.Context, handle func(path string) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-w.Events:
			if !ok {
				return nil
			}
			if err := handle(path); err != nil {
				slog.Error("reload failed", "path", path, "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

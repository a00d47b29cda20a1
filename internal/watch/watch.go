// Package watch provides a debounced filesystem watcher over the
// owned workspace's hierarchical directory tree, coalescing bursts of
// local document edits into a single triggered sync. This is ambient
// scheduling plumbing around the core — the core itself always
// performs whatever sync it is asked to run; debouncing just decides
// how often to ask.
package watch

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Trigger is called once per debounced burst of changes. It receives
// the set of changed paths observed since the previous trigger.
type Trigger func(changedPaths []string)

// Watcher wraps fsnotify over a directory tree, queuing change
// timestamps per path and firing Trigger only once quiet has elapsed
// since the most recent event in a burst.
type Watcher struct {
	root    string
	quiet   time.Duration
	trigger Trigger
	logger  *log.Logger

	fsWatcher   *fsnotify.Watcher
	changeQueue map[string]time.Time
	done        chan struct{}
}

// New builds a Watcher rooted at root. quiet is the debounce window;
// zero disables debouncing (queued events fire on the next 250ms
// poll, all together in one trigger). If logger
// is nil, a default stderr logger is used.
func New(root string, quiet time.Duration, trigger Trigger, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[watch] ", log.LstdFlags)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:        root,
		quiet:       quiet,
		trigger:     trigger,
		logger:      logger,
		fsWatcher:   fsWatcher,
		changeQueue: map[string]time.Time{},
		done:        make(chan struct{}),
	}

	if err := w.addTree(root); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// addTree registers every directory under root with fsnotify.
// fsnotify does not watch subtrees recursively on its own.
func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

// Run processes fsnotify events until Close is called, firing trigger
// whenever quiet has elapsed since the last event in the current
// burst. Run blocks; call it from its own goroutine.
func (w *Watcher) Run() {
	ticker := time.NewTicker(pollInterval(w.quiet))
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.changeQueue[event.Name] = time.Now()
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				_ = w.fsWatcher.Add(event.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watch error: %v", err)
		case <-ticker.C:
			w.flushIfQuiet()
		}
	}
}

// pollInterval bounds how often Run checks the debounce queue. A zero
// quiet window still polls at a reasonable fixed rate so immediate
// (non-debounced) mode doesn't busy-loop.
func pollInterval(quiet time.Duration) time.Duration {
	if quiet <= 0 {
		return 250 * time.Millisecond
	}
	if quiet < time.Second {
		return quiet
	}
	return time.Second
}

func (w *Watcher) flushIfQuiet() {
	if len(w.changeQueue) == 0 {
		return
	}
	now := time.Now()
	for _, lastSeen := range w.changeQueue {
		if now.Sub(lastSeen) < w.quiet {
			return
		}
	}
	ready := make([]string, 0, len(w.changeQueue))
	for path := range w.changeQueue {
		ready = append(ready, path)
	}
	w.changeQueue = map[string]time.Time{}
	w.logger.Printf("debounced burst of %d change(s), triggering sync", len(ready))
	w.trigger(ready)
}

// Close stops Run and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsWatcher.Close()
}

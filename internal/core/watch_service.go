package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/skillsync-dev/skillsync/internal/logger"
)

// watchDebounceDelay is the quiet period after the last filesystem event
// before a resync fires. A multi-file install emits a burst of events; only
// the trailing edge triggers one resync.
const watchDebounceDelay = 500 * time.Millisecond

// WatchService watches a skills root directory and invokes a callback after
// a debounced quiet period. The handle is owned by the registry and must be
// closed on shutdown; a pending debounce timer is cleared by Close.
type WatchService struct {
	watcher  *fsnotify.Watcher
	done     chan struct{}
	mu       sync.Mutex
	debounce *time.Timer
	closed   bool
}

// NewWatchService starts watching dir and returns the handle.
func NewWatchService(dir string, onChange func()) (*WatchService, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &WatchService{
		watcher: watcher,
		done:    make(chan struct{}),
	}

	go w.loop(onChange)
	return w, nil
}

func (w *WatchService) loop(onChange func()) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: each event restarts the timer, so only the
			// trailing quiet period fires the callback.
			w.mu.Lock()
			if w.closed {
				w.mu.Unlock()
				return
			}
			if w.debounce != nil {
				w.debounce.Stop()
			}
			w.debounce = time.AfterFunc(watchDebounceDelay, onChange)
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("filesystem watch error: %v", err)

		case <-w.done:
			return
		}
	}
}

// Close stops the watch and clears any pending debounce timer. An in-flight
// callback runs to completion.
func (w *WatchService) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
	w.mu.Unlock()

	close(w.done)
	_ = w.watcher.Close()
}

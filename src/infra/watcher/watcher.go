// Package watcher re-triggers an export when the Rekordbox database file
// changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 5 * time.Second

// Watcher monitors the database file and invokes a callback after writes
// settle. Rekordbox touches the wal/journal siblings on every commit, so
// those count as changes too.
type Watcher struct {
	watcher       *fsnotify.Watcher
	dbPath        string
	onChange      func()
	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	running       bool
	stopChan      chan struct{}
}

// New creates a new database watcher.
func New(onChange func()) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  watcher,
		onChange: onChange,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching the directory holding the database file.
func (w *Watcher) Start(ctx context.Context, dbPath string) error {
	w.dbPath = dbPath
	slog.Info("Starting database watcher", "path", dbPath)

	if err := w.watcher.Add(filepath.Dir(dbPath)); err != nil {
		return err
	}

	w.running = true
	go w.watchLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	if !w.running {
		return
	}

	slog.Info("Stopping database watcher")
	w.running = false
	close(w.stopChan)

	w.debounceMutex.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMutex.Unlock()

	w.watcher.Close()
}

// watchLoop processes file system events
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Database watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent debounces write/create events on the database and its
// sidecar files.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if !strings.HasPrefix(filepath.Base(event.Name), filepath.Base(w.dbPath)) {
		return
	}

	slog.Debug("Database change detected", "file", event.Name)

	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(debounce, w.onChange)
}

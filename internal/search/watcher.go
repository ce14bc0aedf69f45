package search

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the session directory and reports changed session ids so
// the search index can be refreshed without rescanning everything. Events
// are debounced because editors and the store itself produce bursts of
// writes for a single logical change.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	onChange func(changed, removed []string)

	debounceTime time.Duration
	mu           sync.Mutex
	pending      map[string]bool // session id -> removed
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewWatcher creates a watcher over the given session directory.
func NewWatcher(dir string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		dir:          dir,
		watcher:      watcher,
		debounceTime: 500 * time.Millisecond,
		pending:      make(map[string]bool),
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// OnChange sets the callback invoked with changed and removed session ids.
func (w *Watcher) OnChange(callback func(changed, removed []string)) {
	w.onChange = callback
}

// Start begins watching. The session directory must exist.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()

	return nil
}

// Stop stops the watcher and waits for its goroutines to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	w.wg.Wait()
	return w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !strings.HasSuffix(name, ".json") {
		return
	}
	id := strings.TrimSuffix(name, ".json")

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
		w.mu.Lock()
		w.pending[id] = false
		w.mu.Unlock()
	} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.mu.Lock()
		w.pending[id] = true
		w.mu.Unlock()
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}

	var changed, removed []string
	for id, gone := range w.pending {
		if gone {
			removed = append(removed, id)
		} else {
			changed = append(changed, id)
		}
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(changed, removed)
	}
}

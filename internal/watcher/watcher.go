// Package watcher turns raw fsnotify events into debounced batches of site
// change events. Rapid editor saves coalesce into one batch, so each batch
// triggers exactly one classify and rebuild cycle downstream.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/quarry/internal/logging"
)

// Kind is the change type carried by an Event.
type Kind int

const (
	Added Kind = iota
	Modified
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "modified"
	}
}

// Event is one debounced file change.
type Event struct {
	Path string
	Kind Kind
}

// Filter reports whether a path is interesting. A path rejected by any
// installed filter never reaches the debouncer.
type Filter func(path string) bool

// Handler consumes one debounced batch.
type Handler func(events []Event) error

// Watcher watches a directory tree and delivers debounced change batches.
type Watcher struct {
	fs        *fsnotify.Watcher
	debouncer *debouncer
	log       *logging.Logger

	mu       sync.RWMutex
	filters  []Filter
	handlers []Handler
}

// New creates a Watcher with the given debounce window.
func New(delay time.Duration, log *logging.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}
	return &Watcher{
		fs:  fs,
		log: log.WithComponent("watcher"),
		debouncer: &debouncer{
			delay:  delay,
			events: make(chan Event, 100),
			output: make(chan []Event, 10),
		},
	}, nil
}

// AddFilter installs a path filter.
func (w *Watcher) AddFilter(f Filter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.filters = append(w.filters, f)
}

// AddHandler installs a batch handler.
func (w *Watcher) AddHandler(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// AddRecursive watches root and every directory below it. Directories created
// later are picked up by the watch loop as their create events arrive.
func (w *Watcher) AddRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fs.Add(path)
		}
		return nil
	})
}

// Start launches the watch goroutines. They exit when ctx is canceled.
func (w *Watcher) Start(ctx context.Context) {
	go w.debouncer.run(ctx)
	go w.dispatch(ctx)
	go w.watchLoop(ctx)
}

// Stop closes the underlying fs watcher.
func (w *Watcher) Stop() error {
	w.debouncer.stop()
	return w.fs.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn(err, "watch error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.mu.RLock()
	filters := w.filters
	w.mu.RUnlock()
	for _, f := range filters {
		if !f(event.Name) {
			return
		}
	}

	var kind Kind
	switch {
	case event.Op.Has(fsnotify.Create):
		kind = Added
		// New directories need their own watch to keep the tree covered.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fs.Add(event.Name); err != nil {
				w.log.Warn(err, "watching new directory", "path", event.Name)
			}
		}
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		kind = Removed
	default:
		kind = Modified
	}

	select {
	case w.debouncer.events <- Event{Path: event.Name, Kind: kind}:
	default:
		w.log.Warn(nil, "event buffer full, dropping change", "path", event.Name)
	}
}

func (w *Watcher) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-w.debouncer.output:
			w.mu.RLock()
			handlers := w.handlers
			w.mu.RUnlock()
			for _, h := range handlers {
				if err := h(batch); err != nil {
					// A failed rebuild must not kill the watch loop; the next
					// change gets a fresh attempt.
					w.log.Error(err, "change handler failed")
				}
			}
		}
	}
}

// debouncer coalesces events arriving within delay of each other into one
// batch, deduplicated by path with the latest kind winning.
type debouncer struct {
	delay  time.Duration
	events chan Event
	output chan []Event

	mu      sync.Mutex
	timer   *time.Timer
	pending []Event
}

func (d *debouncer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.add(event)
		}
	}
}

func (d *debouncer) add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, event)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return
	}

	seen := make(map[string]int, len(d.pending))
	batch := make([]Event, 0, len(d.pending))
	for _, event := range d.pending {
		if i, ok := seen[event.Path]; ok {
			batch[i] = event
			continue
		}
		seen[event.Path] = len(batch)
		batch = append(batch, event)
	}

	select {
	case d.output <- batch:
	default:
	}
	d.pending = d.pending[:0]
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// IgnoreHidden rejects dotfiles and anything under a dot directory.
func IgnoreHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") {
			return false
		}
	}
	return true
}

// IgnoreDir rejects paths at or below dir. Used to keep the build output
// from feeding back into the watch loop.
func IgnoreDir(dir string) Filter {
	return func(path string) bool {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return true
		}
		return rel != "." && (rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)))
	}
}

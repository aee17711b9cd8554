package device

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/jamesainslie/etch/pkg/etch/logging"
)

// EventType represents the kind of hotplug event.
type EventType int

const (
	// EventAdded fires when a device node appears.
	EventAdded EventType = iota
	// EventRemoved fires when a device node disappears.
	EventRemoved
)

// Event is a single hotplug notification.
type Event struct {
	Type   EventType
	Device Device
}

// Subscriber receives hotplug events on its channel until unsubscribed.
type Subscriber struct {
	ID     string
	Events chan Event
}

// Watcher observes the platform device directory and broadcasts
// attach/detach events to subscribers.
type Watcher struct {
	fsw    *fsnotify.Watcher
	dir    string
	match  func(string) bool
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	closed bool
}

// NewWatcher creates a Watcher on the platform device directory.
func NewWatcher() (*Watcher, error) {
	dir, match, err := platformWatchTarget()
	if err != nil {
		return nil, err
	}
	return newWatcherAt(dir, match)
}

func newWatcherAt(dir string, match func(string) bool) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return &Watcher{
		fsw:   fsw,
		dir:   dir,
		match: match,
		subs:  make(map[string]*Subscriber),
	}, nil
}

// Subscribe registers a new event consumer. Returns nil after Close.
func (w *Watcher) Subscribe() *Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan Event, 16),
	}
	w.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if sub, ok := w.subs[id]; ok {
		close(sub.Events)
		delete(w.subs, id)
	}
}

// SubscriberCount returns the number of active subscribers.
func (w *Watcher) SubscriberCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subs)
}

// Run drains filesystem events until the context is cancelled or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	log := logging.Get("device")
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event, log)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, log *logging.Logger) {
	name := filepath.Base(event.Name)
	if !w.match(name) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		log.Info("device attached", "path", event.Name)
		w.notify(Event{Type: EventAdded, Device: w.resolve(event.Name, name)})

	case event.Op&fsnotify.Remove != 0:
		log.Info("device detached", "path", event.Name)
		w.notify(Event{Type: EventRemoved, Device: Device{Path: event.Name, Name: name}})
	}
}

// resolve fills in device details from a fresh listing when possible. The
// node may vanish before enumeration catches up, so a bare path is fine.
func (w *Watcher) resolve(path, name string) Device {
	if d, err := Find(path); err == nil {
		return d
	}
	return Device{Path: path, Name: name}
}

// notify delivers an event to every subscriber without blocking. Slow
// consumers lose events rather than stalling the watch loop.
func (w *Watcher) notify(ev Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return
	}

	for _, sub := range w.subs {
		select {
		case sub.Events <- ev:
		default:
		}
	}
}

// Close stops the watcher and closes all subscriber channels.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	for _, sub := range w.subs {
		close(sub.Events)
	}
	w.subs = make(map[string]*Subscriber)
	return w.fsw.Close()
}

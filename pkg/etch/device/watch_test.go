package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func matchAll(string) bool { return true }

func startWatcher(t *testing.T, match func(string) bool) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()

	w, err := newWatcherAt(dir, match)
	if err != nil {
		t.Fatalf("newWatcherAt() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w, dir
}

func waitEvent(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events:
		if !ok {
			t.Fatal("subscriber channel closed")
		}
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestWatcherAddRemove(t *testing.T) {
	w, dir := startWatcher(t, matchAll)

	sub := w.Subscribe()
	if sub == nil {
		t.Fatal("Subscribe() returned nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	node := filepath.Join(dir, "sdz")
	if err := os.WriteFile(node, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, sub)
	if ev.Type != EventAdded {
		t.Errorf("Type = %v, want EventAdded", ev.Type)
	}
	if ev.Device.Path != node {
		t.Errorf("Device.Path = %q, want %q", ev.Device.Path, node)
	}

	if err := os.Remove(node); err != nil {
		t.Fatal(err)
	}

	ev = waitEvent(t, sub)
	if ev.Type != EventRemoved {
		t.Errorf("Type = %v, want EventRemoved", ev.Type)
	}
	if ev.Device.Name != "sdz" {
		t.Errorf("Device.Name = %q, want sdz", ev.Device.Name)
	}
}

func TestWatcherNameFilter(t *testing.T) {
	match := func(name string) bool { return name == "wanted" }
	w, dir := startWatcher(t, match)

	sub := w.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(dir, "ignored"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "wanted"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, sub)
	if ev.Device.Name != "wanted" {
		t.Errorf("Device.Name = %q, want %q", ev.Device.Name, "wanted")
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	w, _ := startWatcher(t, matchAll)

	sub := w.Subscribe()
	if w.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", w.SubscriberCount())
	}

	w.Unsubscribe(sub.ID)
	if w.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", w.SubscriberCount())
	}

	if _, ok := <-sub.Events; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
}

func TestWatcherSlowSubscriberDropsEvents(t *testing.T) {
	w, _ := startWatcher(t, matchAll)

	sub := w.Subscribe()

	// Fill the buffer without draining; extra notifications must not block.
	for i := 0; i < cap(sub.Events)+8; i++ {
		w.notify(Event{Type: EventAdded, Device: Device{Name: "sdz"}})
	}

	if len(sub.Events) != cap(sub.Events) {
		t.Errorf("len(Events) = %d, want full buffer %d", len(sub.Events), cap(sub.Events))
	}
}

func TestWatcherClose(t *testing.T) {
	w, _ := startWatcher(t, matchAll)

	sub := w.Subscribe()

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, ok := <-sub.Events; ok {
		t.Error("channel should be closed after Close")
	}
	if w.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", w.SubscriberCount())
	}
	if got := w.Subscribe(); got != nil {
		t.Error("Subscribe() after Close should return nil")
	}

	// Close twice is fine.
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

package writer

import (
	"sync"
	"time"
)

// DefaultFlushLogSize is the default number of flush events retained.
const DefaultFlushLogSize = 128

// FlushTrigger identifies what forced a flush.
type FlushTrigger int

const (
	// TriggerBytes means the byte threshold was crossed.
	TriggerBytes FlushTrigger = iota

	// TriggerTime means the time threshold elapsed first.
	TriggerTime

	// TriggerFinal is the unconditional sync at end of image.
	TriggerFinal
)

func (t FlushTrigger) String() string {
	switch t {
	case TriggerBytes:
		return "bytes"
	case TriggerTime:
		return "time"
	case TriggerFinal:
		return "final"
	default:
		return "unknown"
	}
}

// FlushEvent records one forced flush.
type FlushEvent struct {
	// At is when the sync was issued.
	At time.Time

	// Bytes is the dirty byte count accumulated since the previous flush.
	Bytes int64

	// Duration is how long the sync took.
	Duration time.Duration

	// Trigger is what forced the flush.
	Trigger FlushTrigger

	// Total is the running byte total at flush time.
	Total int64
}

// FlushLog holds recent flush events in a ring buffer for the progress UI
// and the final summary. When full, the oldest event is overwritten.
type FlushLog struct {
	events  []FlushEvent
	maxSize int
	start   int // Index of oldest event
	count   int // Number of events in buffer
	mu      sync.RWMutex
}

// NewFlushLog creates a flush log with the given maximum size.
func NewFlushLog(maxSize int) *FlushLog {
	if maxSize <= 0 {
		maxSize = DefaultFlushLogSize
	}
	return &FlushLog{
		events:  make([]FlushEvent, maxSize),
		maxSize: maxSize,
	}
}

// Add records a flush event, overwriting the oldest when full.
func (l *FlushLog) Add(event FlushEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := (l.start + l.count) % l.maxSize
	l.events[idx] = event

	if l.count < l.maxSize {
		l.count++
	} else {
		l.start = (l.start + 1) % l.maxSize
	}
}

// Events returns all retained events, oldest first.
// The returned slice is a copy and safe to modify.
func (l *FlushLog) Events() []FlushEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]FlushEvent, l.count)
	for i := 0; i < l.count; i++ {
		idx := (l.start + i) % l.maxSize
		result[i] = l.events[idx]
	}
	return result
}

// Last returns the most recent n events, newest last.
// If n is greater than the number of events, all events are returned.
func (l *FlushLog) Last(n int) []FlushEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > l.count {
		n = l.count
	}

	result := make([]FlushEvent, n)
	startOffset := l.count - n
	for i := 0; i < n; i++ {
		idx := (l.start + startOffset + i) % l.maxSize
		result[i] = l.events[idx]
	}
	return result
}

// Len returns the number of events currently retained.
func (l *FlushLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

package writer

import (
	"testing"
	"time"
)

func eventWithTotal(total int64) FlushEvent {
	return FlushEvent{
		At:      time.Now(),
		Bytes:   total,
		Trigger: TriggerBytes,
		Total:   total,
	}
}

func TestFlushLogOrder(t *testing.T) {
	log := NewFlushLog(10)

	for i := int64(1); i <= 3; i++ {
		log.Add(eventWithTotal(i))
	}

	events := log.Events()
	if len(events) != 3 {
		t.Fatalf("len(Events()) = %d, want 3", len(events))
	}
	for i, ev := range events {
		if ev.Total != int64(i+1) {
			t.Errorf("Events()[%d].Total = %d, want %d", i, ev.Total, i+1)
		}
	}
}

func TestFlushLogWraparound(t *testing.T) {
	log := NewFlushLog(4)

	for i := int64(1); i <= 10; i++ {
		log.Add(eventWithTotal(i))
	}

	if log.Len() != 4 {
		t.Errorf("Len() = %d, want 4", log.Len())
	}

	events := log.Events()
	want := []int64{7, 8, 9, 10}
	for i, ev := range events {
		if ev.Total != want[i] {
			t.Errorf("Events()[%d].Total = %d, want %d", i, ev.Total, want[i])
		}
	}
}

func TestFlushLogLast(t *testing.T) {
	log := NewFlushLog(10)

	for i := int64(1); i <= 6; i++ {
		log.Add(eventWithTotal(i))
	}

	last := log.Last(3)
	want := []int64{4, 5, 6}
	for i, ev := range last {
		if ev.Total != want[i] {
			t.Errorf("Last(3)[%d].Total = %d, want %d", i, ev.Total, want[i])
		}
	}

	all := log.Last(100)
	if len(all) != 6 {
		t.Errorf("Last(100) returned %d events, want 6", len(all))
	}
}

func TestFlushLogDefaultSize(t *testing.T) {
	log := NewFlushLog(0)

	for i := int64(0); i < DefaultFlushLogSize+5; i++ {
		log.Add(eventWithTotal(i))
	}

	if log.Len() != DefaultFlushLogSize {
		t.Errorf("Len() = %d, want %d", log.Len(), DefaultFlushLogSize)
	}
}

func TestFlushLogEventsIsCopy(t *testing.T) {
	log := NewFlushLog(4)
	log.Add(eventWithTotal(1))

	events := log.Events()
	events[0].Total = 999

	if log.Events()[0].Total != 1 {
		t.Error("mutating the returned slice changed the log")
	}
}

package reconciler

import "github.com/mcdev12/courtside/internal/live/event"

// timeline is a fixed-capacity ring of recent stream events kept for
// display. Oldest entries are overwritten; no resizing.
type timeline struct {
	entries  []event.Event
	capacity int
	index    int
	size     int
}

func newTimeline(capacity int) *timeline {
	if capacity <= 0 {
		capacity = defaultTimelineCapacity
	}
	return &timeline{
		entries:  make([]event.Event, capacity),
		capacity: capacity,
	}
}

const defaultTimelineCapacity = 50

func (t *timeline) append(ev event.Event) {
	t.entries[t.index] = ev
	t.index = (t.index + 1) % t.capacity
	if t.size < t.capacity {
		t.size++
	}
}

// recent returns up to n events, newest first.
func (t *timeline) recent(n int) []event.Event {
	if n <= 0 || t.size == 0 {
		return nil
	}
	if n > t.size {
		n = t.size
	}
	out := make([]event.Event, 0, n)
	for i := 1; i <= n; i++ {
		pos := (t.index - i + t.capacity) % t.capacity
		out = append(out, t.entries[pos])
	}
	return out
}

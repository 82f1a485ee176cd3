package engine

import (
	"sync"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventNavigation is a completed navigation to URL.
	EventNavigation EventType = iota + 1
	// EventControl is a control request (Action, Payload) from the page.
	EventControl
	// EventDevtools is a devtools panel request; Action is one of
	// DevtoolsOpen or DevtoolsFixFont.
	EventDevtools
)

// String returns a log-friendly name for the event type.
func (t EventType) String() string {
	switch t {
	case EventNavigation:
		return "navigation"
	case EventControl:
		return "control"
	case EventDevtools:
		return "devtools"
	default:
		return "unknown"
	}
}

// Event is a unit of work for the Run loop.
type Event struct {
	Type    EventType
	URL     string
	Action  string
	Payload string

	// Trace correlates log lines for one event. Enqueue fills it in when empty.
	Trace string
}

// NavigationEvent returns an event for a completed navigation.
func NavigationEvent(url string) Event {
	return Event{Type: EventNavigation, URL: url}
}

// ControlEvent returns an event for a control request.
func ControlEvent(action, payload string) Event {
	return Event{Type: EventControl, Action: action, Payload: payload}
}

// DevtoolsEvent returns an event for a devtools panel request.
func DevtoolsEvent(action string) Event {
	return Event{Type: EventDevtools, Action: action}
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so host callbacks never block on a busy engine.
// A buffered signal channel lets the Run loop wait on the queue and its
// context at the same time.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking; the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Drained reports whether the queue is closed and empty.
func (q *eventQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

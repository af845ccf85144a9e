package mqtt

import (
	"sync"
	"time"

	"github.com/sweeney/curtain-controller/internal/logic"
)

// FakePublisher records published events for test assertions.
// Safe for concurrent use.
type FakePublisher struct {
	mu sync.Mutex

	// PublishError, if set, will be returned by PublishEvent.
	PublishError error

	// Connected controls the return value of IsConnected.
	Connected bool

	events       []Event
	systemEvents []SystemEvent
	closed       bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishEvent records the transition event.
func (f *FakePublisher) PublishEvent(event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.events = append(f.events, event)
	return nil
}

// PublishSystem records the lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	f.systemEvents = append(f.systemEvents, event)
	f.mu.Unlock()
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Events returns a copy of the recorded transition events.
func (f *FakePublisher) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...)
}

// SystemEvents returns a copy of the recorded lifecycle events.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// FakeCommander returns scripted commands from a queue.
// Safe for concurrent use.
type FakeCommander struct {
	mu     sync.Mutex
	queue  []logic.Op
	errs   []error
	closed bool
}

// NewFakeCommander creates an empty FakeCommander.
func NewFakeCommander() *FakeCommander {
	return &FakeCommander{}
}

// Queue appends commands to be returned by subsequent TryReceive calls.
func (f *FakeCommander) Queue(ops ...logic.Op) {
	f.mu.Lock()
	f.queue = append(f.queue, ops...)
	f.mu.Unlock()
}

// QueueError appends a decode error to be returned by TryReceive.
func (f *FakeCommander) QueueError(err error) {
	f.mu.Lock()
	f.errs = append(f.errs, err)
	f.mu.Unlock()
}

// TryReceive pops the next queued command or error without waiting.
func (f *FakeCommander) TryReceive(timeout time.Duration) (logic.Op, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return logic.OpNone, false, err
	}
	if len(f.queue) == 0 {
		return logic.OpNone, false, nil
	}
	op := f.queue[0]
	f.queue = f.queue[1:]
	return op, true, nil
}

// Close marks the commander as closed.
func (f *FakeCommander) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/curtain-controller/internal/logic"
)

// FakeMatrix is a test double that returns scripted keypad scans.
// Safe for concurrent use so it can back a running controller in tests.
type FakeMatrix struct {
	mu sync.Mutex

	// Scans contains scripted matrix samples. Each call to Scan consumes
	// the next one; when exhausted, the last scan repeats.
	Scans []logic.Scan

	// ScanError, if set, will be returned by Scan.
	ScanError error

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeMatrix creates a FakeMatrix with the given scripted scans.
func NewFakeMatrix(scans []logic.Scan) *FakeMatrix {
	return &FakeMatrix{Scans: scans}
}

// Scan returns the next scripted sample.
func (f *FakeMatrix) Scan() (logic.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ScanError != nil {
		return logic.Scan{}, f.ScanError
	}
	if len(f.Scans) == 0 {
		return logic.Scan{}, errors.New("no scans configured")
	}
	scan := f.Scans[f.index]
	if f.index < len(f.Scans)-1 {
		f.index++
	}
	return scan, nil
}

// Close marks the matrix as closed.
func (f *FakeMatrix) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeActuator records curtain move commands for test assertions.
type FakeActuator struct {
	mu sync.Mutex

	// MoveError, if set, will be returned by Move.
	MoveError error

	moves  []logic.Position
	idled  bool
	closed bool
}

// NewFakeActuator creates a FakeActuator.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{}
}

// Move records the commanded position.
func (f *FakeActuator) Move(p logic.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MoveError != nil {
		return f.MoveError
	}
	f.moves = append(f.moves, p)
	return nil
}

// Idle records that the motor was stopped.
func (f *FakeActuator) Idle() error {
	f.mu.Lock()
	f.idled = true
	f.mu.Unlock()
	return nil
}

// Close marks the actuator as closed.
func (f *FakeActuator) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Moves returns a copy of the recorded move commands.
func (f *FakeActuator) Moves() []logic.Position {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logic.Position(nil), f.moves...)
}

// Idled reports whether Idle was called.
func (f *FakeActuator) Idled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idled
}

// FakeBuzzer records buzzer commands for test assertions.
type FakeBuzzer struct {
	mu sync.Mutex

	// SetError, if set, will be returned by Set.
	SetError error

	sets   []bool
	closed bool
}

// NewFakeBuzzer creates a FakeBuzzer.
func NewFakeBuzzer() *FakeBuzzer {
	return &FakeBuzzer{}
}

// Set records the commanded buzzer state.
func (f *FakeBuzzer) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.sets = append(f.sets, on)
	return nil
}

// Close marks the buzzer as closed.
func (f *FakeBuzzer) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Sets returns a copy of the recorded buzzer commands.
func (f *FakeBuzzer) Sets() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.sets...)
}

// On reports the last commanded state, or false if never commanded.
func (f *FakeBuzzer) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sets) == 0 {
		return false
	}
	return f.sets[len(f.sets)-1]
}

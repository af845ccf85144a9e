package dht

import (
	"errors"
	"sync"

	"github.com/sweeney/curtain-controller/internal/logic"
)

// FakeSensor is a test double that returns scripted samples.
// Safe for concurrent use.
type FakeSensor struct {
	mu sync.Mutex

	// Samples contains scripted samples. Each call to Poll consumes the
	// next one; when exhausted, the last sample repeats.
	Samples []logic.RawSample

	// PollError, if set, will be returned by Poll.
	PollError error

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// GoodSample builds a raw sample whose checksum matches.
func GoodSample(temp, hum float64) logic.RawSample {
	return logic.RawSample{TemperatureC: temp, HumidityPct: hum, Checksum: 0x5a, Sum: 0x5a}
}

// NewFakeSensor creates a FakeSensor with the given scripted samples.
func NewFakeSensor(samples []logic.RawSample) *FakeSensor {
	return &FakeSensor{Samples: samples}
}

// Poll returns the next scripted sample.
func (f *FakeSensor) Poll() (logic.RawSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PollError != nil {
		return logic.RawSample{}, f.PollError
	}
	if len(f.Samples) == 0 {
		return logic.RawSample{}, errors.New("no samples configured")
	}
	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// SetError sets the error returned by subsequent polls.
func (f *FakeSensor) SetError(err error) {
	f.mu.Lock()
	f.PollError = err
	f.mu.Unlock()
}

// Close marks the sensor as closed.
func (f *FakeSensor) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

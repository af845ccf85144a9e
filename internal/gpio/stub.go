//go:build !linux

package gpio

import (
	"errors"
	"time"

	"github.com/sweeney/curtain-controller/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealMatrix is not available on non-Linux platforms.
type RealMatrix struct{}

// NewRealMatrix returns an error on non-Linux platforms.
func NewRealMatrix(rowPins, colPins [4]int) (*RealMatrix, error) {
	return nil, errUnsupported
}

func (m *RealMatrix) Scan() (logic.Scan, error) { return logic.Scan{}, errUnsupported }
func (m *RealMatrix) Close() error              { return nil }

// RealActuator is not available on non-Linux platforms.
type RealActuator struct{}

// NewRealActuator returns an error on non-Linux platforms.
func NewRealActuator(pinOpen, pinClose int, travel time.Duration) (*RealActuator, error) {
	return nil, errUnsupported
}

func (a *RealActuator) Move(p logic.Position) error { return errUnsupported }
func (a *RealActuator) Idle() error                 { return nil }
func (a *RealActuator) Close() error                { return nil }

// RealBuzzer is not available on non-Linux platforms.
type RealBuzzer struct{}

// NewRealBuzzer returns an error on non-Linux platforms.
func NewRealBuzzer(pin int) (*RealBuzzer, error) {
	return nil, errUnsupported
}

func (b *RealBuzzer) Set(on bool) error { return errUnsupported }
func (b *RealBuzzer) Close() error      { return nil }

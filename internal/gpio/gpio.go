// Package gpio provides the keypad matrix, curtain actuator and buzzer
// drivers with hardware abstraction. The real implementations use the Linux
// GPIO character device; the fakes allow testing without hardware.
package gpio

import "github.com/sweeney/curtain-controller/internal/logic"

// Matrix scans the 4x4 keypad.
type Matrix interface {
	// Scan strobes the rows and returns one raw sample of all 16
	// intersections. true = contact closed.
	Scan() (logic.Scan, error)

	// Close releases GPIO resources.
	Close() error
}

// Actuator drives the curtain motor. Commands are fire-and-forget,
// idempotent, and safe to call redundantly.
type Actuator interface {
	// Move drives the curtain toward the given position.
	Move(p logic.Position) error

	// Idle stops the motor and leaves both direction lines released.
	Idle() error

	// Close idles the motor and releases GPIO resources.
	Close() error
}

// Buzzer switches the audible alarm line.
type Buzzer interface {
	Set(on bool) error
	Close() error
}

// Default pin assignments (BCM numbering).
var (
	DefaultRowPins = [4]int{5, 6, 13, 19}
	DefaultColPins = [4]int{12, 16, 20, 21}
)

const (
	DefaultPinMotorOpen  = 22
	DefaultPinMotorClose = 23
	DefaultPinBuzzer     = 18
)

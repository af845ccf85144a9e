// Package logic contains pure business logic for the curtain controller.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Key is one symbol of the 4x4 keypad alphabet.
type Key string

// Mode is the curtain control mode.
type Mode string

const (
	ModeManual Mode = "MANUAL"
	ModeAuto   Mode = "AUTO"
)

// Position is the curtain position.
type Position string

const (
	PositionOpen   Position = "OPEN"
	PositionClosed Position = "CLOSED"
)

// CurtainState is the authoritative curtain mode and position.
type CurtainState struct {
	Mode     Mode
	Position Position
}

// AlarmState is the wake alarm configuration and ring status.
type AlarmState struct {
	Hour    int  `json:"hour"`
	Minute  int  `json:"minute"`
	Armed   bool `json:"armed"`
	Ringing bool `json:"ringing"`
}

// SensorReading is one validated temperature/humidity sample.
// Immutable once constructed; superseded, never mutated, by each new poll.
type SensorReading struct {
	TemperatureC float64
	HumidityPct  float64
	At           time.Time
	Valid        bool
}

// RawSample is one decoded transducer sample as delivered by the sensor
// driver. Checksum is the byte the sensor transmitted; Sum is the checksum
// the driver computed over the data bytes it received.
type RawSample struct {
	TemperatureC float64
	HumidityPct  float64
	Checksum     uint8
	Sum          uint8
}

// KeyEvent is one debounced key press. Emitted exactly once per physical
// press-and-release cycle.
type KeyEvent struct {
	Key       Key
	PressedAt time.Time
}

// Scan is one raw sample of the 4x4 key matrix. true = contact closed.
type Scan [4][4]bool

// FaultSource identifies which collaborator a fault was observed on.
type FaultSource string

const (
	FaultSensor     FaultSource = "SENSOR"
	FaultKeypad     FaultSource = "KEYPAD"
	FaultRemoteLink FaultSource = "REMOTE_LINK"
)

// Op is a logical operation decoded from a key press or a remote command.
type Op int

const (
	OpNone Op = iota
	OpModeAuto
	OpModeManual
	OpOpen
	OpClose
	OpAlarmArm
	OpAlarmClear
	OpHourInc
	OpMinuteInc
)

// keyOps maps the bound keypad symbols to operations. Digits 0 and 3-9 are
// reserved and decode to OpNone.
var keyOps = map[Key]Op{
	"A": OpModeAuto,
	"B": OpModeManual,
	"C": OpOpen,
	"D": OpClose,
	"*": OpAlarmClear,
	"#": OpAlarmArm,
	"1": OpHourInc,
	"2": OpMinuteInc,
}

// OpForKey returns the operation bound to a key, or OpNone for reserved keys.
func OpForKey(k Key) Op {
	return keyOps[k]
}

// String returns the wire/log name of an operation.
func (o Op) String() string {
	switch o {
	case OpModeAuto:
		return "auto"
	case OpModeManual:
		return "manual"
	case OpOpen:
		return "open"
	case OpClose:
		return "close"
	case OpAlarmArm:
		return "alarm_arm"
	case OpAlarmClear:
		return "alarm_clear"
	case OpHourInc:
		return "hour_inc"
	case OpMinuteInc:
		return "minute_inc"
	}
	return "none"
}

// EventCounts tracks activity totals since startup.
type EventCounts struct {
	KeyPresses       int
	RemoteCommands   int
	ReadingsAccepted int
	ReadingsRejected int
	CurtainMoves     int
	AlarmRings       int
}

// Package mqtt provides the wireless remote link and event telemetry with
// abstraction for testing. Commands arrive on a subscribed topic and are
// handed to the controller through a bounded queue with a short-timeout
// receive; state transitions and lifecycle events are published as JSON.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/curtain-controller/internal/logic"
)

// Topics.
const (
	TopicEvents  = "home/curtain/events"
	TopicSystem  = "home/curtain/system"
	TopicCommand = "home/curtain/command"
)

// Publisher publishes telemetry to the broker.
type Publisher interface {
	// PublishEvent sends a state-transition event.
	// Returns error if publishing fails (must not crash the process).
	PublishEvent(event Event) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Commander receives remote commands.
type Commander interface {
	// TryReceive waits up to timeout for one decoded command. The second
	// return is false when no command arrived. An error means a frame was
	// received but could not be decoded.
	TryReceive(timeout time.Duration) (logic.Op, bool, error)

	// Close stops receiving.
	Close() error
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is one state-transition telemetry event.
type Event struct {
	Timestamp time.Time
	Type      string // e.g. "CURTAIN_OPEN", "MODE_MANUAL", "ALARM_RING", "FAULT"
	Mode      string
	Position  string
	Detail    string
}

// SystemEvent is a lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload is the event message structure.
type Payload struct {
	Curtain CurtainPayload `json:"curtain"`
}

// CurtainPayload contains the event details.
type CurtainPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Mode      string `json:"mode,omitempty"`
	Position  string `json:"position,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// FormatPayload creates the JSON payload for a transition event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Curtain: CurtainPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Type,
			Mode:      event.Mode,
			Position:  event.Position,
			Detail:    event.Detail,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the message structure for simple system events without a
// full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// commandOps maps command-topic tokens to operations. The alphabet mirrors
// the keypad bindings.
var commandOps = map[string]logic.Op{
	"auto":        logic.OpModeAuto,
	"manual":      logic.OpModeManual,
	"open":        logic.OpOpen,
	"close":       logic.OpClose,
	"alarm_arm":   logic.OpAlarmArm,
	"alarm_clear": logic.OpAlarmClear,
	"hour_inc":    logic.OpHourInc,
	"minute_inc":  logic.OpMinuteInc,
}

// ParseCommand decodes one command frame. Frames are plain lowercase tokens.
func ParseCommand(payload []byte) (logic.Op, error) {
	token := strings.ToLower(strings.TrimSpace(string(payload)))
	op, ok := commandOps[token]
	if !ok {
		return logic.OpNone, fmt.Errorf("unknown command %q", token)
	}
	return op, nil
}

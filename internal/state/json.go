package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Mode          string      `json:"mode"`
	Position      string      `json:"position"`
	Alarm         AlarmJSON   `json:"alarm"`
	Sensor        SensorJSON  `json:"sensor"`
	BuzzerOn      bool        `json:"buzzer_on"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"event_counts"`
	Faults        []FaultJSON `json:"recent_faults,omitempty"`
	Config        ConfigJSON  `json:"config"`
}

// AlarmJSON is the JSON representation of the alarm state.
type AlarmJSON struct {
	Time    string `json:"time"`
	Armed   bool   `json:"armed"`
	Ringing bool   `json:"ringing"`
}

// SensorJSON is the JSON representation of the latest reading.
type SensorJSON struct {
	TemperatureC float64 `json:"temperature_c"`
	HumidityPct  float64 `json:"humidity_pct"`
	ReadAt       string  `json:"read_at,omitempty"`
	Available    bool    `json:"available"`
}

// MQTTStatus reports broker connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	KeyPresses       int `json:"key_presses"`
	RemoteCommands   int `json:"remote_commands"`
	ReadingsAccepted int `json:"readings_accepted"`
	ReadingsRejected int `json:"readings_rejected"`
	CurtainMoves     int `json:"curtain_moves"`
	AlarmRings       int `json:"alarm_rings"`
}

// FaultJSON is the JSON representation of one recorded fault.
type FaultJSON struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	At          string `json:"at"`
	Description string `json:"description"`
}

// ConfigJSON is the JSON representation of the controller config.
type ConfigJSON struct {
	SensorPollMs    int64   `json:"sensor_poll_ms"`
	KeypadPollMs    int64   `json:"keypad_poll_ms"`
	AlarmPollMs     int64   `json:"alarm_poll_ms"`
	RemoteTimeoutMs int64   `json:"remote_timeout_ms"`
	DebounceScans   int     `json:"debounce_scans"`
	OpenTempC       float64 `json:"open_temp_c"`
	OpenHumPct      float64 `json:"open_humidity_pct"`
	SafetyTempC     float64 `json:"safety_temp_c"`
	MinuteStep      int     `json:"minute_step"`
	Broker          string  `json:"broker"`
	HTTPAddr        string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Mode:     string(snap.Curtain.Mode),
		Position: string(snap.Curtain.Position),
		Alarm: AlarmJSON{
			Time:    fmt.Sprintf("%02d:%02d", snap.Alarm.Hour, snap.Alarm.Minute),
			Armed:   snap.Alarm.Armed,
			Ringing: snap.Alarm.Ringing,
		},
		Sensor: SensorJSON{
			TemperatureC: snap.Reading.TemperatureC,
			HumidityPct:  snap.Reading.HumidityPct,
			Available:    !snap.SensorDown,
		},
		BuzzerOn:      snap.BuzzerOn,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			KeyPresses:       snap.Counts.KeyPresses,
			RemoteCommands:   snap.Counts.RemoteCommands,
			ReadingsAccepted: snap.Counts.ReadingsAccepted,
			ReadingsRejected: snap.Counts.ReadingsRejected,
			CurtainMoves:     snap.Counts.CurtainMoves,
			AlarmRings:       snap.Counts.AlarmRings,
		},
		Config: ConfigJSON{
			SensorPollMs:    snap.Config.SensorPollMs,
			KeypadPollMs:    snap.Config.KeypadPollMs,
			AlarmPollMs:     snap.Config.AlarmPollMs,
			RemoteTimeoutMs: snap.Config.RemoteTimeoutMs,
			DebounceScans:   snap.Config.DebounceScans,
			OpenTempC:       snap.Config.OpenTempC,
			OpenHumPct:      snap.Config.OpenHumPct,
			SafetyTempC:     snap.Config.SafetyTempC,
			MinuteStep:      snap.Config.MinuteStep,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}
	if !snap.Reading.At.IsZero() {
		inner.Sensor.ReadAt = snap.Reading.At.UTC().Format(time.RFC3339)
	}
	for _, f := range snap.Faults {
		inner.Faults = append(inner.Faults, FaultJSON{
			ID:          f.ID,
			Source:      string(f.Source),
			At:          f.At.UTC().Format(time.RFC3339),
			Description: f.Description,
		})
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

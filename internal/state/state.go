// Package state provides the shared system state of the curtain controller.
// The Store is the only object touched by more than one task: all reads and
// writes of the curtain, alarm, latest reading and fault ring go through its
// lock, and every policy decision is made while the lock is held so no
// reader ever observes a half-updated record.
package state

import (
	"sync"
	"time"

	"github.com/sweeney/curtain-controller/internal/logic"
)

// DefaultFaultCapacity bounds the recent-fault ring.
const DefaultFaultCapacity = 32

// CommandSource says where an operation came from, for counting and fault
// attribution.
type CommandSource int

const (
	FromKeypad CommandSource = iota
	FromRemote
)

// Config is the controller configuration, kept for display and telemetry.
type Config struct {
	SensorPollMs    int64
	KeypadPollMs    int64
	AlarmPollMs     int64
	RemoteTimeoutMs int64
	DebounceScans   int
	OpenTempC       float64
	OpenHumPct      float64
	SafetyTempC     float64
	MinuteStep      int
	Broker          string
	HTTPAddr        string
}

// Effects describes the hardware and persistence actions decided under the
// Store's lock, for the caller to execute after the lock is released. The
// targets are absolute states and every driver call is idempotent, so
// cross-task execution order reduces to last-writer-wins.
type Effects struct {
	// Move, if non-nil, is a position the actuator must be driven to.
	Move *logic.Position
	// Buzzer, if non-nil, is the new OR'd buzzer demand (alarm ringing or
	// high-temperature safety). Only set when the demand actually changes.
	Buzzer *bool
	// Curtain, if non-nil, is the curtain state after a mode or position
	// change, for telemetry.
	Curtain *logic.CurtainState
	// Alarm, if non-nil, is the alarm state after a mutation, for
	// telemetry and persistence.
	Alarm *logic.AlarmState
}

// Snapshot is a point-in-time view of the whole system state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Curtain       logic.CurtainState
	Alarm         logic.AlarmState
	Reading       logic.SensorReading
	SensorDown    bool
	BuzzerOn      bool
	Faults        []SystemFault
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Store owns the authoritative curtain, alarm, latest sensor reading and
// recent faults behind one RWMutex.
type Store struct {
	mu sync.RWMutex

	curtain *logic.CurtainEngine
	alarm   *logic.AlarmEngine
	safety  *logic.SafetyRule

	reading    logic.SensorReading
	sensorDown bool
	buzzerOn   bool
	faults     *faultRing
	counts     logic.EventCounts

	startTime     time.Time
	cfg           Config
	mqttConnected bool
}

// New creates a Store with freshly initialized engines: curtain Auto/Closed,
// alarm unarmed, safety rule quiet.
func New(startTime time.Time, cfg Config) *Store {
	return &Store{
		curtain:   logic.NewCurtainEngine(cfg.OpenTempC, cfg.OpenHumPct),
		alarm:     logic.NewAlarmEngine(cfg.MinuteStep),
		safety:    logic.NewSafetyRule(cfg.SafetyTempC),
		faults:    newFaultRing(DefaultFaultCapacity),
		startTime: startTime,
		cfg:       cfg,
	}
}

// RestoreAlarm loads a persisted alarm state. Call before tasks start.
func (s *Store) RestoreAlarm(st logic.AlarmState) {
	s.mu.Lock()
	s.alarm.Restore(st)
	s.mu.Unlock()
}

// Apply routes one decoded operation into the curtain or alarm engine.
// OpNone is a closed-alphabet no-op: counted, never an error.
func (s *Store) Apply(op logic.Op, from CommandSource, now time.Time) Effects {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch from {
	case FromKeypad:
		s.counts.KeyPresses++
	case FromRemote:
		s.counts.RemoteCommands++
	}

	var eff Effects
	switch op {
	case logic.OpModeAuto:
		if s.curtain.SetMode(logic.ModeAuto) {
			// re-evaluate immediately against the latest reading rather
			// than waiting out a sensor period
			if s.curtain.Evaluate(s.reading, s.sensorDown) {
				s.counts.CurtainMoves++
				eff.Move = positionPtr(s.curtain.State().Position)
			}
			eff.Curtain = curtainPtr(s.curtain.State())
		}
	case logic.OpModeManual:
		if s.curtain.SetMode(logic.ModeManual) {
			eff.Curtain = curtainPtr(s.curtain.State())
		}
	case logic.OpOpen:
		if s.curtain.Command(logic.PositionOpen) {
			s.counts.CurtainMoves++
			eff.Move = positionPtr(logic.PositionOpen)
			eff.Curtain = curtainPtr(s.curtain.State())
		}
	case logic.OpClose:
		if s.curtain.Command(logic.PositionClosed) {
			s.counts.CurtainMoves++
			eff.Move = positionPtr(logic.PositionClosed)
			eff.Curtain = curtainPtr(s.curtain.State())
		}
	case logic.OpAlarmArm:
		s.alarm.Arm()
		eff.Alarm = alarmPtr(s.alarm.State())
	case logic.OpAlarmClear:
		s.alarm.Clear()
		eff.Alarm = alarmPtr(s.alarm.State())
		eff.Buzzer = s.recomputeBuzzer()
	case logic.OpHourInc:
		s.alarm.IncrementHour()
		eff.Alarm = alarmPtr(s.alarm.State())
	case logic.OpMinuteInc:
		s.alarm.IncrementMinute()
		eff.Alarm = alarmPtr(s.alarm.State())
	}
	return eff
}

// ApplyReading publishes one validated reading (or its rejection) and lets
// the Auto-mode policy and the safety rule react. sensorDown carries the
// validator's persistent-unavailable escalation.
func (s *Store) ApplyReading(r logic.SensorReading, sensorDown bool) Effects {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sensorDown = sensorDown
	if r.Valid {
		s.counts.ReadingsAccepted++
		s.reading = r
	} else {
		s.counts.ReadingsRejected++
		// the prior valid reading is retained, never overwritten
	}

	var eff Effects
	s.safety.Evaluate(r)
	if s.curtain.Evaluate(r, sensorDown) {
		s.counts.CurtainMoves++
		eff.Move = positionPtr(s.curtain.State().Position)
		eff.Curtain = curtainPtr(s.curtain.State())
	}
	eff.Buzzer = s.recomputeBuzzer()
	return eff
}

// AlarmTick runs the alarm engine's periodic wall-clock comparison.
func (s *Store) AlarmTick(now time.Time) Effects {
	s.mu.Lock()
	defer s.mu.Unlock()

	var eff Effects
	if s.alarm.Tick(now) {
		s.counts.AlarmRings++
		eff.Alarm = alarmPtr(s.alarm.State())
	}
	eff.Buzzer = s.recomputeBuzzer()
	return eff
}

// recomputeBuzzer ORs the alarm and safety demands. Returns the new demand
// only when it changed, so callers never chatter the driver.
// Caller must hold s.mu.
func (s *Store) recomputeBuzzer() *bool {
	want := s.alarm.State().Ringing || s.safety.Hot()
	if want == s.buzzerOn {
		return nil
	}
	s.buzzerOn = want
	return &want
}

// RecordFault appends one fault observation to the bounded ring.
func (s *Store) RecordFault(source logic.FaultSource, at time.Time, description string) {
	s.mu.Lock()
	s.faults.push(source, at, description)
	s.mu.Unlock()
}

// SetMQTTConnected sets the remote-link connection status.
func (s *Store) SetMQTTConnected(connected bool) {
	s.mu.Lock()
	s.mqttConnected = connected
	s.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the system state. The Now field
// is set to the current time at the moment of the call.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		Curtain:       s.curtain.State(),
		Alarm:         s.alarm.State(),
		Reading:       s.reading,
		SensorDown:    s.sensorDown,
		BuzzerOn:      s.buzzerOn,
		Faults:        s.faults.recent(),
		Counts:        s.counts,
		StartTime:     s.startTime,
		MQTTConnected: s.mqttConnected,
		Config:        s.cfg,
	}
	s.mu.RUnlock()
	snap.Now = time.Now()
	return snap
}

func positionPtr(p logic.Position) *logic.Position { return &p }
func curtainPtr(c logic.CurtainState) *logic.CurtainState { return &c }
func alarmPtr(a logic.AlarmState) *logic.AlarmState { return &a }

package logic

import "time"

// DefaultMinuteStep is the minutes added per "increment minute" press.
const DefaultMinuteStep = 30

// AlarmEngine tracks the settable wake alarm. Hour/minute staging, arming
// and ringing are all keypad-driven; Tick compares against the wall clock.
type AlarmEngine struct {
	state      AlarmState
	minuteStep int
}

// NewAlarmEngine creates an unarmed engine with the given minute step.
func NewAlarmEngine(minuteStep int) *AlarmEngine {
	if minuteStep < 1 {
		minuteStep = DefaultMinuteStep
	}
	return &AlarmEngine{minuteStep: minuteStep}
}

// Restore replaces the alarm state wholesale (startup persistence load).
// A persisted ringing flag is not restored: ringing only ever starts from a
// live Tick match.
func (a *AlarmEngine) Restore(st AlarmState) {
	st.Hour = ((st.Hour % 24) + 24) % 24
	st.Minute = ((st.Minute % 60) + 60) % 60
	st.Ringing = false
	a.state = st
}

// IncrementHour advances the staged hour, wrapping modulo 24.
func (a *AlarmEngine) IncrementHour() {
	a.state.Hour = (a.state.Hour + 1) % 24
}

// IncrementMinute advances the staged minute by the step, wrapping modulo 60.
func (a *AlarmEngine) IncrementMinute() {
	a.state.Minute = (a.state.Minute + a.minuteStep) % 60
}

// Arm arms the alarm at whatever hour/minute are currently staged. It never
// starts ringing by itself.
func (a *AlarmEngine) Arm() {
	a.state.Armed = true
}

// Clear disarms and silences the alarm. Returns true if it was ringing.
func (a *AlarmEngine) Clear() bool {
	was := a.state.Ringing
	a.state.Armed = false
	a.state.Ringing = false
	return was
}

// Tick compares the wall clock against the configured trigger. Returns true
// exactly when ringing starts; once ringing, it stays ringing until Clear.
func (a *AlarmEngine) Tick(now time.Time) bool {
	if !a.state.Armed || a.state.Ringing {
		return false
	}
	if now.Hour() == a.state.Hour && now.Minute() == a.state.Minute {
		a.state.Ringing = true
		return true
	}
	return false
}

// State returns the current alarm state.
func (a *AlarmEngine) State() AlarmState {
	return a.state
}

// DefaultSafetyTempC is the high-temperature threshold above which the
// buzzer is demanded regardless of the alarm.
const DefaultSafetyTempC = 27.0

// SafetyRule is the high-temperature buzzer rule. It shares the physical
// buzzer with the alarm: the caller ORs both demands.
type SafetyRule struct {
	threshold float64
	hot       bool
}

// NewSafetyRule creates the rule with the given threshold.
func NewSafetyRule(thresholdC float64) *SafetyRule {
	return &SafetyRule{threshold: thresholdC}
}

// Evaluate consumes a reading and returns true if the hot flag flipped.
// Invalid readings leave the rule unchanged.
func (r *SafetyRule) Evaluate(reading SensorReading) bool {
	if !reading.Valid {
		return false
	}
	hot := reading.TemperatureC > r.threshold
	if hot == r.hot {
		return false
	}
	r.hot = hot
	return true
}

// Hot reports whether the rule is currently demanding the buzzer.
func (r *SafetyRule) Hot() bool {
	return r.hot
}

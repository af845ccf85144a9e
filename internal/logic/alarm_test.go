package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clockAt(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.Local)
}

func TestAlarmRoundTrip(t *testing.T) {
	a := NewAlarmEngine(DefaultMinuteStep)

	for i := 0; i < 7; i++ {
		a.IncrementHour()
	}
	a.Arm()
	st := a.State()
	require.Equal(t, 7, st.Hour)
	require.Equal(t, 0, st.Minute)
	require.True(t, st.Armed)
	require.False(t, st.Ringing, "arming must not start ringing")

	assert.False(t, a.Tick(clockAt(6, 59)))
	assert.True(t, a.Tick(clockAt(7, 0)), "ringing starts at the trigger minute")
	assert.True(t, a.State().Ringing)
	assert.False(t, a.Tick(clockAt(7, 0)), "already ringing, no second start")

	wasRinging := a.Clear()
	assert.True(t, wasRinging)
	st = a.State()
	assert.False(t, st.Armed)
	assert.False(t, st.Ringing)
}

func TestAlarmRingsOnlyWhenArmed(t *testing.T) {
	a := NewAlarmEngine(DefaultMinuteStep)
	assert.False(t, a.Tick(clockAt(0, 0)), "unarmed alarm never rings")
}

func TestAlarmRingingPersistsUntilClear(t *testing.T) {
	a := NewAlarmEngine(DefaultMinuteStep)
	a.Arm()
	require.True(t, a.Tick(clockAt(0, 0)))

	a.Tick(clockAt(0, 1))
	a.Tick(clockAt(3, 30))
	assert.True(t, a.State().Ringing)
}

func TestAlarmHourWraps(t *testing.T) {
	a := NewAlarmEngine(DefaultMinuteStep)
	for i := 0; i < 25; i++ {
		a.IncrementHour()
	}
	assert.Equal(t, 1, a.State().Hour)
}

func TestAlarmMinuteStepWraps(t *testing.T) {
	a := NewAlarmEngine(30)
	a.IncrementMinute()
	assert.Equal(t, 30, a.State().Minute)
	a.IncrementMinute()
	assert.Equal(t, 0, a.State().Minute)
}

func TestAlarmIncrementsDoNotTouchArmed(t *testing.T) {
	a := NewAlarmEngine(15)
	a.Arm()
	a.IncrementHour()
	a.IncrementMinute()
	st := a.State()
	assert.True(t, st.Armed)
	assert.False(t, st.Ringing)
}

func TestAlarmRestore(t *testing.T) {
	a := NewAlarmEngine(DefaultMinuteStep)
	a.Restore(AlarmState{Hour: 26, Minute: 75, Armed: true, Ringing: true})

	st := a.State()
	assert.Equal(t, 2, st.Hour)
	assert.Equal(t, 15, st.Minute)
	assert.True(t, st.Armed)
	assert.False(t, st.Ringing, "ringing is never restored from disk")
}

func TestSafetyRule(t *testing.T) {
	r := NewSafetyRule(DefaultSafetyTempC)

	assert.False(t, r.Hot())
	assert.True(t, r.Evaluate(reading(28.0, 50)), "crossing above flips hot")
	assert.True(t, r.Hot())
	assert.False(t, r.Evaluate(reading(29.0, 50)), "still hot, no flip")
	assert.True(t, r.Evaluate(reading(26.0, 50)), "dropping below flips back")
	assert.False(t, r.Hot())
}

func TestSafetyRuleThresholdIsStrict(t *testing.T) {
	r := NewSafetyRule(27.0)
	assert.False(t, r.Evaluate(reading(27.0, 50)))
	assert.False(t, r.Hot())
}

func TestSafetyRuleIgnoresInvalidReadings(t *testing.T) {
	r := NewSafetyRule(27.0)
	require.True(t, r.Evaluate(reading(30, 50)))

	invalid := SensorReading{TemperatureC: 10, Valid: false}
	assert.False(t, r.Evaluate(invalid))
	assert.True(t, r.Hot(), "invalid reading must not silence the safety rule")
}

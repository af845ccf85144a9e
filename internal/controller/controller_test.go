package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweeney/curtain-controller/internal/dht"
	"github.com/sweeney/curtain-controller/internal/gpio"
	"github.com/sweeney/curtain-controller/internal/logic"
	"github.com/sweeney/curtain-controller/internal/mqtt"
	"github.com/sweeney/curtain-controller/internal/state"
)

type rig struct {
	ctrl     *Controller
	sensor   *dht.FakeSensor
	keypad   *gpio.FakeMatrix
	actuator *gpio.FakeActuator
	buzzer   *gpio.FakeBuzzer
	pub      *mqtt.FakePublisher
	cmds     *mqtt.FakeCommander
	store    *state.Store
	now      time.Time
}

func newRig(t *testing.T, samples []logic.RawSample, scans []logic.Scan) *rig {
	t.Helper()
	r := &rig{
		sensor:   dht.NewFakeSensor(samples),
		keypad:   gpio.NewFakeMatrix(scans),
		actuator: gpio.NewFakeActuator(),
		buzzer:   gpio.NewFakeBuzzer(),
		pub:      mqtt.NewFakePublisher(),
		cmds:     mqtt.NewFakeCommander(),
		now:      time.Date(2026, 3, 2, 12, 0, 0, 0, time.Local),
	}
	r.store = state.New(r.now, state.Config{
		OpenTempC:   logic.DefaultOpenTempC,
		OpenHumPct:  logic.DefaultOpenHumPct,
		SafetyTempC: logic.DefaultSafetyTempC,
		MinuteStep:  logic.DefaultMinuteStep,
	})
	r.ctrl = New(Config{DebounceScans: 2}, Deps{
		Store:     r.store,
		Sensor:    r.sensor,
		Keypad:    r.keypad,
		Actuator:  r.actuator,
		Buzzer:    r.buzzer,
		Publisher: r.pub,
		Commander: r.cmds,
		Now:       func() time.Time { return r.now },
	})
	return r
}

func pressScans(key logic.Key) []logic.Scan {
	var down, idle logic.Scan
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			if logic.Layout[row][col] == key {
				down[row][col] = true
			}
		}
	}
	return []logic.Scan{down, down, idle, idle}
}

func concat(scans ...[]logic.Scan) []logic.Scan {
	var out []logic.Scan
	for _, s := range scans {
		out = append(out, s...)
	}
	return out
}

func TestSensorDrivesCurtain(t *testing.T) {
	r := newRig(t, []logic.RawSample{dht.GoodSample(25, 60)}, []logic.Scan{{}})

	r.ctrl.sensorTick()
	require.Equal(t, []logic.Position{logic.PositionOpen}, r.actuator.Moves())

	// unchanged conditions: no duplicate actuator command
	r.ctrl.sensorTick()
	r.ctrl.sensorTick()
	assert.Len(t, r.actuator.Moves(), 1)

	events := r.pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "CURTAIN_OPEN", events[0].Type)
}

func TestKeypadManualFlow(t *testing.T) {
	scans := concat(pressScans("B"), pressScans("C"), pressScans("D"))
	r := newRig(t, []logic.RawSample{dht.GoodSample(25, 60)}, scans)

	for range scans {
		r.ctrl.keypadTick()
	}

	assert.Equal(t, []logic.Position{logic.PositionOpen, logic.PositionClosed}, r.actuator.Moves())
	snap := r.store.Snapshot()
	assert.Equal(t, logic.ModeManual, snap.Curtain.Mode)
	assert.Equal(t, 3, snap.Counts.KeyPresses)

	// manual mode freezes against sensor updates
	r.ctrl.sensorTick()
	assert.Len(t, r.actuator.Moves(), 2)
}

func TestKeypadReservedKeyIsNoOp(t *testing.T) {
	scans := pressScans("7")
	r := newRig(t, []logic.RawSample{dht.GoodSample(25, 60)}, scans)

	for range scans {
		r.ctrl.keypadTick()
	}

	assert.Empty(t, r.actuator.Moves())
	snap := r.store.Snapshot()
	assert.Equal(t, 1, snap.Counts.KeyPresses, "reserved key still counts as a press")
	assert.Empty(t, snap.Faults, "reserved key is a no-op, not a fault")
}

func TestKeypadScanErrorRecordsFault(t *testing.T) {
	r := newRig(t, []logic.RawSample{dht.GoodSample(25, 60)}, []logic.Scan{{}})
	r.keypad.ScanError = errors.New("line stuck")

	r.ctrl.keypadTick()

	faults := r.store.Snapshot().Faults
	require.Len(t, faults, 1)
	assert.Equal(t, logic.FaultKeypad, faults[0].Source)
}

func TestRemoteCommandFlow(t *testing.T) {
	r := newRig(t, []logic.RawSample{dht.GoodSample(25, 60)}, []logic.Scan{{}})
	r.cmds.Queue(logic.OpModeManual, logic.OpOpen)

	r.ctrl.remoteTick()
	r.ctrl.remoteTick()
	r.ctrl.remoteTick() // empty queue: nothing happens

	assert.Equal(t, []logic.Position{logic.PositionOpen}, r.actuator.Moves())
	assert.Equal(t, 2, r.store.Snapshot().Counts.RemoteCommands)
}

func TestRemoteMalformedFrameRecordsFault(t *testing.T) {
	r := newRig(t, []logic.RawSample{dht.GoodSample(25, 60)}, []logic.Scan{{}})
	r.cmds.QueueError(errors.New(`unknown command "explode"`))

	r.ctrl.remoteTick()

	faults := r.store.Snapshot().Faults
	require.Len(t, faults, 1)
	assert.Equal(t, logic.FaultRemoteLink, faults[0].Source)
	assert.Empty(t, r.actuator.Moves())
}

func TestSensorEscalationFreezesThenRecovers(t *testing.T) {
	r := newRig(t, []logic.RawSample{dht.GoodSample(25, 60), dht.GoodSample(10, 30)}, []logic.Scan{{}})

	r.ctrl.sensorTick()
	require.Equal(t, []logic.Position{logic.PositionOpen}, r.actuator.Moves())

	// three consecutive poll failures escalate to sensor-unavailable
	r.sensor.SetError(errors.New("read timeout"))
	for i := 0; i < 3; i++ {
		r.ctrl.sensorTick()
	}
	snap := r.store.Snapshot()
	assert.True(t, snap.SensorDown)
	assert.Len(t, snap.Faults, 3)
	assert.Len(t, r.actuator.Moves(), 1, "frozen: no motion while unavailable")

	// recovery: the next valid reading clears the escalation and the
	// policy resumes evaluating
	r.sensor.SetError(nil)
	r.ctrl.sensorTick()
	snap = r.store.Snapshot()
	assert.False(t, snap.SensorDown)
	assert.Equal(t, []logic.Position{logic.PositionOpen, logic.PositionClosed}, r.actuator.Moves())
}

func TestTwoStrikesDoNotEscalate(t *testing.T) {
	r := newRig(t, []logic.RawSample{dht.GoodSample(25, 60)}, []logic.Scan{{}})
	r.sensor.SetError(errors.New("read timeout"))

	r.ctrl.sensorTick()
	r.ctrl.sensorTick()
	assert.False(t, r.store.Snapshot().SensorDown)

	r.sensor.SetError(nil)
	r.ctrl.sensorTick()
	assert.Equal(t, []logic.Position{logic.PositionOpen}, r.actuator.Moves())
}

func TestSafetyRuleDrivesBuzzer(t *testing.T) {
	r := newRig(t, []logic.RawSample{dht.GoodSample(28, 50), dht.GoodSample(26, 50)}, []logic.Scan{{}})

	r.ctrl.sensorTick()
	assert.Equal(t, []bool{true}, r.buzzer.Sets(), "above threshold with alarm unarmed")

	r.ctrl.sensorTick()
	assert.Equal(t, []bool{true, false}, r.buzzer.Sets())
}

func TestAlarmRoundTripWithBuzzerOR(t *testing.T) {
	// arm the alarm at its initial 00:00 staging, ring at midnight while
	// the temperature is also above the safety threshold
	scans := concat(pressScans("#"), pressScans("*"))
	r := newRig(t, []logic.RawSample{dht.GoodSample(28, 50), dht.GoodSample(26, 50)}, scans)

	r.ctrl.keypadTick() // "#" down
	r.ctrl.keypadTick() // "#" debounced: armed
	require.True(t, r.store.Snapshot().Alarm.Armed)

	r.now = time.Date(2026, 3, 3, 0, 0, 0, 0, time.Local)
	r.ctrl.alarmTick()
	snap := r.store.Snapshot()
	assert.True(t, snap.Alarm.Ringing)
	assert.Equal(t, []bool{true}, r.buzzer.Sets())

	// safety rule trips too: demand already on, no re-command
	r.ctrl.sensorTick()
	assert.Equal(t, []bool{true}, r.buzzer.Sets())

	// temperature drops but the alarm still rings: buzzer stays on
	r.ctrl.sensorTick()
	assert.Equal(t, []bool{true}, r.buzzer.Sets())

	// clear ("*"): release scans for "#" first, then press "*"
	r.ctrl.keypadTick()
	r.ctrl.keypadTick()
	r.ctrl.keypadTick()
	r.ctrl.keypadTick()
	snap = r.store.Snapshot()
	assert.False(t, snap.Alarm.Ringing)
	assert.False(t, snap.Alarm.Armed)
	assert.Equal(t, []bool{true, false}, r.buzzer.Sets())
}

func TestAlarmChangePersistenceHook(t *testing.T) {
	r := newRig(t, []logic.RawSample{dht.GoodSample(25, 60)}, []logic.Scan{{}})
	var saved []logic.AlarmState
	r.ctrl.deps.OnAlarmChange = func(st logic.AlarmState) { saved = append(saved, st) }
	r.cmds.Queue(logic.OpHourInc, logic.OpAlarmArm)

	r.ctrl.remoteTick()
	r.ctrl.remoteTick()

	require.Len(t, saved, 2)
	assert.Equal(t, 1, saved[0].Hour)
	assert.True(t, saved[1].Armed)
}

func TestRunShutdownLeavesSafeIdle(t *testing.T) {
	r := newRig(t, []logic.RawSample{dht.GoodSample(28, 60)}, []logic.Scan{{}})
	ctrl := New(Config{
		SensorPeriod:    5 * time.Millisecond,
		KeypadPeriod:    time.Millisecond,
		AlarmPeriod:     5 * time.Millisecond,
		RemoteTimeout:   time.Millisecond,
		ShutdownTimeout: time.Second,
	}, Deps{
		Store:     r.store,
		Sensor:    r.sensor,
		Keypad:    r.keypad,
		Actuator:  r.actuator,
		Buzzer:    r.buzzer,
		Publisher: r.pub,
		Commander: r.cmds,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.True(t, r.actuator.Idled(), "shutdown must idle the actuator")
	sets := r.buzzer.Sets()
	require.NotEmpty(t, sets)
	assert.False(t, sets[len(sets)-1], "shutdown must leave the buzzer off")
}

func TestHeartbeatPublishesStatus(t *testing.T) {
	r := newRig(t, []logic.RawSample{dht.GoodSample(25, 60)}, []logic.Scan{{}})
	r.ctrl.cfg.Heartbeat = 15 * time.Minute
	r.ctrl.lastHeartbeat = r.now

	r.ctrl.alarmTick()
	assert.Empty(t, r.pub.SystemEvents(), "interval not elapsed")

	r.now = r.now.Add(16 * time.Minute)
	r.ctrl.alarmTick()
	events := r.pub.SystemEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "HEARTBEAT", events[0].Event)
	assert.NotEmpty(t, events[0].RawPayload)
}

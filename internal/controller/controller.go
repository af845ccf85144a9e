// Package controller runs the four periodic monitoring tasks of the curtain
// controller and routes their outputs through the shared system state.
// Each task performs one unit of work per tick and then truly suspends; no
// task blocks on another, and no task ever terminates the process on a
// transient I/O failure.
package controller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/curtain-controller/internal/dht"
	"github.com/sweeney/curtain-controller/internal/gpio"
	"github.com/sweeney/curtain-controller/internal/logic"
	"github.com/sweeney/curtain-controller/internal/mqtt"
	"github.com/sweeney/curtain-controller/internal/state"
)

// Config holds the task periods and debounce settings.
type Config struct {
	SensorPeriod    time.Duration // default 2s
	KeypadPeriod    time.Duration // default 50ms
	AlarmPeriod     time.Duration // default 1s
	RemoteTimeout   time.Duration // default 10ms
	DebounceScans   int           // default 2
	ShutdownTimeout time.Duration // default 2s
	Heartbeat       time.Duration // default 15m, 0 disables
}

func (c *Config) applyDefaults() {
	if c.SensorPeriod <= 0 {
		c.SensorPeriod = 2 * time.Second
	}
	if c.KeypadPeriod <= 0 {
		c.KeypadPeriod = 50 * time.Millisecond
	}
	if c.AlarmPeriod <= 0 {
		c.AlarmPeriod = time.Second
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = 10 * time.Millisecond
	}
	if c.DebounceScans <= 0 {
		c.DebounceScans = 2
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 2 * time.Second
	}
}

// Deps are the controller's collaborators. Publisher, Commander, Status,
// Now and OnAlarmChange are optional.
type Deps struct {
	Store    *state.Store
	Sensor   dht.Sensor
	Keypad   gpio.Matrix
	Actuator gpio.Actuator
	Buzzer   gpio.Buzzer

	Publisher mqtt.Publisher
	Commander mqtt.Commander
	Status    mqtt.ConnectionStatus

	// Now is the clock; defaults to time.Now.
	Now func() time.Time

	// OnAlarmChange is invoked after every alarm mutation (persistence).
	OnAlarmChange func(logic.AlarmState)
}

// Controller owns the lifetime of the periodic tasks and the shared state.
type Controller struct {
	cfg  Config
	deps Deps

	decoder   *logic.Decoder
	validator *logic.Validator

	// touched only by the alarm task
	lastHeartbeat time.Time
}

// New creates a Controller. The decoder and validator start cold: all keys
// Released, no sensor strikes.
func New(cfg Config, deps Deps) *Controller {
	cfg.applyDefaults()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{
		cfg:       cfg,
		deps:      deps,
		decoder:   logic.NewDecoder(cfg.DebounceScans),
		validator: logic.NewValidator(),
	}
}

// Run starts the four tasks and blocks until ctx is cancelled. All tasks
// are signalled to exit at their next suspension point and joined with a
// bounded timeout; the actuator and buzzer are then driven to a safe idle
// state as the last action before returning.
func (c *Controller) Run(ctx context.Context) error {
	c.lastHeartbeat = c.deps.Now()

	var wg sync.WaitGroup
	tasks := []struct {
		period time.Duration
		tick   func()
	}{
		{c.cfg.SensorPeriod, c.sensorTick},
		{c.cfg.KeypadPeriod, c.keypadTick},
		{c.cfg.AlarmPeriod, c.alarmTick},
	}
	for _, task := range tasks {
		wg.Add(1)
		go func(period time.Duration, tick func()) {
			defer wg.Done()
			ticker := time.NewTicker(period)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					tick()
				}
			}
		}(task.period, task.tick)
	}

	// The remote task suspends inside the short-timeout receive itself, so
	// an incoming command is handled with low latency without a ticker.
	if c.deps.Commander != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
					c.remoteTick()
				}
			}
		}()
	}

	<-ctx.Done()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(c.cfg.ShutdownTimeout):
		log.Printf("shutdown: tasks did not stop within %v", c.cfg.ShutdownTimeout)
	}

	c.safeIdle()
	return nil
}

// safeIdle leaves the actuator stopped and the buzzer off.
func (c *Controller) safeIdle() {
	if err := c.deps.Actuator.Idle(); err != nil {
		log.Printf("shutdown: idle actuator: %v", err)
	}
	if err := c.deps.Buzzer.Set(false); err != nil {
		log.Printf("shutdown: silence buzzer: %v", err)
	}
}

// sensorTick polls the transducer once, validates the sample and lets the
// policy engines react. A failed poll counts toward the persistent
// sensor-unavailable escalation exactly like a rejected sample.
func (c *Controller) sensorTick() {
	now := c.deps.Now()

	raw, err := c.deps.Sensor.Poll()
	if err != nil {
		c.validator.RecordIOFailure()
		c.deps.Store.RecordFault(logic.FaultSensor, now, err.Error())
		log.Printf("sensor poll error: %v", err)
		eff := c.deps.Store.ApplyReading(logic.SensorReading{At: now}, c.validator.Unavailable())
		c.applyEffects(eff, now)
		return
	}

	reading, verr := c.validator.Validate(raw, now)
	if verr != nil {
		c.deps.Store.RecordFault(logic.FaultSensor, now, verr.Error())
		log.Printf("sensor sample rejected: %v", verr)
	}
	eff := c.deps.Store.ApplyReading(reading, c.validator.Unavailable())
	c.applyEffects(eff, now)
}

// keypadTick scans the matrix once and routes a decoded press.
func (c *Controller) keypadTick() {
	now := c.deps.Now()

	scan, err := c.deps.Keypad.Scan()
	if err != nil {
		c.deps.Store.RecordFault(logic.FaultKeypad, now, err.Error())
		log.Printf("keypad scan error: %v", err)
		return
	}

	ev, ok := c.decoder.Process(scan, now)
	if !ok {
		return
	}
	op := logic.OpForKey(ev.Key)
	log.Printf("key press: %s (%s)", ev.Key, op)
	eff := c.deps.Store.Apply(op, state.FromKeypad, now)
	c.applyEffects(eff, now)
}

// alarmTick runs the wall-clock comparison and refreshes link status.
func (c *Controller) alarmTick() {
	now := c.deps.Now()

	eff := c.deps.Store.AlarmTick(now)
	if eff.Alarm != nil && eff.Alarm.Ringing {
		log.Printf("alarm ringing at %02d:%02d", eff.Alarm.Hour, eff.Alarm.Minute)
	}
	c.applyEffects(eff, now)

	if c.deps.Status != nil {
		c.deps.Store.SetMQTTConnected(c.deps.Status.IsConnected())
	}
	c.maybeHeartbeat(now)
}

// remoteTick waits briefly for one remote command and routes it.
func (c *Controller) remoteTick() {
	op, ok, err := c.deps.Commander.TryReceive(c.cfg.RemoteTimeout)
	now := c.deps.Now()
	if err != nil {
		c.deps.Store.RecordFault(logic.FaultRemoteLink, now, err.Error())
		log.Printf("remote command error: %v", err)
		return
	}
	if !ok {
		return
	}
	log.Printf("remote command: %s", op)
	eff := c.deps.Store.Apply(op, state.FromRemote, now)
	c.applyEffects(eff, now)
}

// applyEffects executes the hardware and telemetry actions decided under
// the store lock. Effects carry absolute target states and every driver is
// idempotent, so interleavings across tasks settle on the last writer.
func (c *Controller) applyEffects(eff state.Effects, now time.Time) {
	if eff.Move != nil {
		if err := c.deps.Actuator.Move(*eff.Move); err != nil {
			log.Printf("actuator error: %v", err)
		} else {
			log.Printf("curtain %s", *eff.Move)
		}
	}
	if eff.Buzzer != nil {
		if err := c.deps.Buzzer.Set(*eff.Buzzer); err != nil {
			log.Printf("buzzer error: %v", err)
		}
	}
	if eff.Alarm != nil && c.deps.OnAlarmChange != nil {
		c.deps.OnAlarmChange(*eff.Alarm)
	}

	if c.deps.Publisher == nil {
		return
	}
	if eff.Curtain != nil {
		c.publish(curtainEvent(eff, now))
	}
	if eff.Alarm != nil {
		c.publish(alarmEvent(*eff.Alarm, now))
	}
}

func (c *Controller) publish(event mqtt.Event) {
	if err := c.deps.Publisher.PublishEvent(event); err != nil {
		// don't crash on publish failure
		log.Printf("publish error: %v", err)
	}
}

func curtainEvent(eff state.Effects, now time.Time) mqtt.Event {
	typ := "MODE_" + string(eff.Curtain.Mode)
	if eff.Move != nil {
		typ = "CURTAIN_" + string(*eff.Move)
	}
	return mqtt.Event{
		Timestamp: now,
		Type:      typ,
		Mode:      string(eff.Curtain.Mode),
		Position:  string(eff.Curtain.Position),
	}
}

func alarmEvent(a logic.AlarmState, now time.Time) mqtt.Event {
	typ := "ALARM_SET"
	switch {
	case a.Ringing:
		typ = "ALARM_RING"
	case a.Armed:
		typ = "ALARM_ARMED"
	}
	return mqtt.Event{
		Timestamp: now,
		Type:      typ,
		Detail:    fmt.Sprintf("%02d:%02d armed=%v ringing=%v", a.Hour, a.Minute, a.Armed, a.Ringing),
	}
}

// maybeHeartbeat publishes a full status snapshot on the heartbeat interval.
func (c *Controller) maybeHeartbeat(now time.Time) {
	if c.cfg.Heartbeat <= 0 || c.deps.Publisher == nil {
		return
	}
	if now.Sub(c.lastHeartbeat) < c.cfg.Heartbeat {
		return
	}
	c.lastHeartbeat = now

	snap := c.deps.Store.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  now,
		Event:      "HEARTBEAT",
		RawPayload: state.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := c.deps.Publisher.PublishSystem(event); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	} else {
		log.Printf("heartbeat: uptime=%v moves=%d presses=%d",
			snap.Uptime().Truncate(time.Second), snap.Counts.CurtainMoves, snap.Counts.KeyPresses)
	}
}

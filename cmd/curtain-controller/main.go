// Command curtain-controller drives an automated window curtain from a
// temperature/humidity sensor, a 4x4 keypad and an MQTT remote link.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/curtain-controller/internal/controller"
	"github.com/sweeney/curtain-controller/internal/dht"
	"github.com/sweeney/curtain-controller/internal/gpio"
	"github.com/sweeney/curtain-controller/internal/logic"
	"github.com/sweeney/curtain-controller/internal/mqtt"
	"github.com/sweeney/curtain-controller/internal/state"
	"github.com/sweeney/curtain-controller/internal/web"
)

type options struct {
	sensorPoll    time.Duration
	keypadPoll    time.Duration
	alarmPoll     time.Duration
	remoteTimeout time.Duration
	debounceScans int
	openTemp      float64
	openHum       float64
	safetyTemp    float64
	minuteStep    int
	heartbeat     time.Duration

	broker    string
	httpAddr  string
	alarmFile string

	pinDHT        int
	rowPins       string
	colPins       string
	pinMotorOpen  int
	pinMotorClose int
	pinBuzzer     int
	travel        time.Duration

	printState bool
}

func main() {
	var opts options
	flag.DurationVar(&opts.sensorPoll, "sensor-poll", 2*time.Second, "Sensor polling interval")
	flag.DurationVar(&opts.keypadPoll, "keypad-poll", 50*time.Millisecond, "Keypad scan interval")
	flag.DurationVar(&opts.alarmPoll, "alarm-poll", time.Second, "Alarm check interval")
	flag.DurationVar(&opts.remoteTimeout, "remote-timeout", 10*time.Millisecond, "Remote command receive timeout")
	flag.IntVar(&opts.debounceScans, "debounce-scans", 2, "Consecutive identical scans to accept a key press")
	flag.Float64Var(&opts.openTemp, "open-temp", logic.DefaultOpenTempC, "Auto mode: open above this temperature (C)")
	flag.Float64Var(&opts.openHum, "open-humidity", logic.DefaultOpenHumPct, "Auto mode: open above this humidity (%)")
	flag.Float64Var(&opts.safetyTemp, "safety-temp", logic.DefaultSafetyTempC, "Buzzer on above this temperature (C)")
	flag.IntVar(&opts.minuteStep, "minute-step", logic.DefaultMinuteStep, "Alarm minute increment step")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable remote link)")
	flag.StringVar(&opts.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.StringVar(&opts.alarmFile, "alarm-file", "/var/lib/curtain-controller/alarm.json", "Alarm persistence path (empty to disable)")
	flag.IntVar(&opts.pinDHT, "pin-dht", dht.DefaultPin, "BCM pin number for the sensor data line")
	flag.StringVar(&opts.rowPins, "pin-rows", "5,6,13,19", "BCM pin numbers for the keypad rows")
	flag.StringVar(&opts.colPins, "pin-cols", "12,16,20,21", "BCM pin numbers for the keypad columns")
	flag.IntVar(&opts.pinMotorOpen, "pin-motor-open", gpio.DefaultPinMotorOpen, "BCM pin number for the open direction line")
	flag.IntVar(&opts.pinMotorClose, "pin-motor-close", gpio.DefaultPinMotorClose, "BCM pin number for the close direction line")
	flag.IntVar(&opts.pinBuzzer, "pin-buzzer", gpio.DefaultPinBuzzer, "BCM pin number for the buzzer")
	flag.DurationVar(&opts.travel, "travel", 8*time.Second, "Motor run time per curtain move")
	flag.BoolVar(&opts.printState, "print-state", false, "Read the sensor once, print and exit")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	rows, err := parsePins(opts.rowPins)
	if err != nil {
		return fmt.Errorf("parse -pin-rows: %w", err)
	}
	cols, err := parsePins(opts.colPins)
	if err != nil {
		return fmt.Errorf("parse -pin-cols: %w", err)
	}

	// Any unavailable hardware resource is fatal here, before tasks start.
	sensor, err := dht.NewRealSensor(opts.pinDHT)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer sensor.Close()

	if opts.printState {
		return printState(sensor)
	}

	keypad, err := gpio.NewRealMatrix(rows, cols)
	if err != nil {
		return fmt.Errorf("init keypad: %w", err)
	}
	defer keypad.Close()

	actuator, err := gpio.NewRealActuator(opts.pinMotorOpen, opts.pinMotorClose, opts.travel)
	if err != nil {
		return fmt.Errorf("init actuator: %w", err)
	}
	defer actuator.Close()

	buzzer, err := gpio.NewRealBuzzer(opts.pinBuzzer)
	if err != nil {
		return fmt.Errorf("init buzzer: %w", err)
	}
	defer buzzer.Close()

	store := state.New(time.Now(), state.Config{
		SensorPollMs:    opts.sensorPoll.Milliseconds(),
		KeypadPollMs:    opts.keypadPoll.Milliseconds(),
		AlarmPollMs:     opts.alarmPoll.Milliseconds(),
		RemoteTimeoutMs: opts.remoteTimeout.Milliseconds(),
		DebounceScans:   opts.debounceScans,
		OpenTempC:       opts.openTemp,
		OpenHumPct:      opts.openHum,
		SafetyTempC:     opts.safetyTemp,
		MinuteStep:      opts.minuteStep,
		Broker:          opts.broker,
		HTTPAddr:        opts.httpAddr,
	})

	if opts.alarmFile != "" {
		if st, err := loadAlarm(opts.alarmFile); err == nil {
			store.RestoreAlarm(st)
			log.Printf("restored alarm %02d:%02d armed=%v", st.Hour, st.Minute, st.Armed)
		} else if !os.IsNotExist(err) {
			log.Printf("load alarm file: %v (starting unarmed)", err)
		}
	}

	deps := controller.Deps{
		Store:    store,
		Sensor:   sensor,
		Keypad:   keypad,
		Actuator: actuator,
		Buzzer:   buzzer,
	}
	if opts.alarmFile != "" {
		deps.OnAlarmChange = func(st logic.AlarmState) {
			if err := saveAlarm(opts.alarmFile, st); err != nil {
				log.Printf("save alarm file: %v", err)
			}
		}
	}

	var client *mqtt.Client
	if opts.broker != "" {
		client, err = mqtt.NewClient(opts.broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer client.Close()
		deps.Publisher = client
		deps.Commander = client
		deps.Status = client
		store.SetMQTTConnected(client.IsConnected())

		startup := mqtt.SystemEvent{
			Timestamp:  time.Now(),
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: state.FormatStatusEvent(store.Snapshot(), "STARTUP", ""),
		}
		if err := client.PublishSystem(startup); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, store)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	ctrl := controller.New(controller.Config{
		SensorPeriod:  opts.sensorPoll,
		KeypadPeriod:  opts.keypadPoll,
		AlarmPeriod:   opts.alarmPoll,
		RemoteTimeout: opts.remoteTimeout,
		DebounceScans: opts.debounceScans,
		Heartbeat:     opts.heartbeat,
	}, deps)

	log.Printf("started: sensor=%v keypad=%v alarm=%v broker=%s",
		opts.sensorPoll, opts.keypadPoll, opts.alarmPoll, opts.broker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	reason := make(chan string, 1)
	go func() {
		s := <-sigCh
		log.Printf("received %v, shutting down", s)
		reason <- signalName(s)
		cancel()
	}()

	if err := ctrl.Run(ctx); err != nil {
		return err
	}

	if client != nil {
		shutdown := mqtt.SystemEvent{
			Timestamp: time.Now(),
			Event:     "SHUTDOWN",
			Reason:    shutdownReason(reason),
			Retained:  true,
		}
		shutdown.RawPayload = state.FormatStatusEvent(store.Snapshot(), "SHUTDOWN", shutdown.Reason)
		if err := client.PublishSystem(shutdown); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		} else {
			log.Printf("published shutdown event")
		}
	}
	return nil
}

func printState(sensor dht.Sensor) error {
	raw, err := sensor.Poll()
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}
	ok := "OK"
	if raw.Checksum != raw.Sum {
		ok = "BAD CHECKSUM"
	}
	fmt.Printf("Temperature: %.1fC, Humidity: %.1f%% (%s)\n", raw.TemperatureC, raw.HumidityPct, ok)
	return nil
}

// parsePins parses a comma-separated list of exactly four BCM pin numbers.
func parsePins(s string) ([4]int, error) {
	var pins [4]int
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return pins, fmt.Errorf("want 4 pins, got %d", len(parts))
	}
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return pins, fmt.Errorf("pin %q: %w", part, err)
		}
		pins[i] = n
	}
	return pins, nil
}

// loadAlarm reads the persisted alarm state.
func loadAlarm(path string) (logic.AlarmState, error) {
	var st logic.AlarmState
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse %s: %w", path, err)
	}
	return st, nil
}

// saveAlarm writes the alarm state atomically (write-then-rename).
func saveAlarm(path string, st logic.AlarmState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func shutdownReason(ch <-chan string) string {
	select {
	case r := <-ch:
		return r
	default:
		return ""
	}
}

//go:build linux

package dht

import (
	"fmt"
	"time"

	"github.com/sweeney/curtain-controller/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

const (
	// host start signal: pull the line low, then release
	startLowDuration = 18 * time.Millisecond

	// a data bit is 0 if the high pulse is short, 1 if long; the split
	// point between the nominal 26-28us and 70us pulses
	bitThreshold = 50 * time.Microsecond

	// whole-transfer deadline: 2 response edges + 40 bits
	readTimeout = 100 * time.Millisecond
)

// RealSensor reads a DHT11 on a single GPIO line.
type RealSensor struct {
	chip *gpiocdev.Chip
	pin  int
}

// NewRealSensor opens the GPIO chip for the sensor data line.
func NewRealSensor(pin int) (*RealSensor, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealSensor{chip: chip, pin: pin}, nil
}

// Poll performs one full read cycle: start signal, edge capture, decode.
func (s *RealSensor) Poll() (logic.RawSample, error) {
	bits, err := s.readBits()
	if err != nil {
		return logic.RawSample{}, err
	}
	return decode(bits), nil
}

// readBits sends the start signal and captures the 40 data bits by timing
// falling edges.
func (s *RealSensor) readBits() ([]time.Duration, error) {
	// start signal: drive low, then release and let the sensor answer
	out, err := s.chip.RequestLine(s.pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request data line: %w", err)
	}
	time.Sleep(startLowDuration)
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("release data line: %w", err)
	}

	events := make(chan gpiocdev.LineEvent, 90)
	in, err := s.chip.RequestLine(s.pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			select {
			case events <- evt:
			default:
			}
		}))
	if err != nil {
		return nil, fmt.Errorf("request data line for events: %w", err)
	}
	defer in.Close()

	// The sensor answers with one response pulse, then 40 bits. Each bit is
	// a fixed 50us low followed by a short (0) or long (1) high, so the
	// rising-to-falling interval carries the bit value.
	var (
		highs    []time.Duration
		lastRise time.Duration
		haveRise bool
	)
	deadline := time.After(readTimeout)
	for len(highs) < 41 { // response pulse + 40 bits
		select {
		case evt := <-events:
			if evt.Type == gpiocdev.LineEventRisingEdge {
				lastRise = evt.Timestamp
				haveRise = true
				continue
			}
			if haveRise {
				highs = append(highs, evt.Timestamp-lastRise)
			}
		case <-deadline:
			return nil, fmt.Errorf("sensor read timeout after %d bits", len(highs))
		}
	}
	// drop the response pulse
	return highs[1:], nil
}

// decode converts 40 pulse widths into the 5-byte DHT11 frame and computes
// the checksum over the data bytes.
func decode(bits []time.Duration) logic.RawSample {
	var bytes [5]uint8
	for i, width := range bits {
		bytes[i/8] <<= 1
		if width > bitThreshold {
			bytes[i/8] |= 1
		}
	}
	return logic.RawSample{
		HumidityPct:  float64(bytes[0]) + float64(bytes[1])/10,
		TemperatureC: float64(bytes[2]) + float64(bytes[3])/10,
		Checksum:     bytes[4],
		Sum:          bytes[0] + bytes[1] + bytes[2] + bytes[3],
	}
}

// Close releases the GPIO chip.
func (s *RealSensor) Close() error {
	if s.chip != nil {
		return s.chip.Close()
	}
	return nil
}

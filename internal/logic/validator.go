package logic

import (
	"fmt"
	"time"
)

// Default acceptance bounds for the DHT-class sensor's documented range.
const (
	DefaultTempMinC  = 0.0
	DefaultTempMaxC  = 50.0
	DefaultHumMinPct = 20.0
	DefaultHumMaxPct = 90.0

	// DefaultUnavailableAfter is the number of consecutive rejected samples
	// that escalates to a persistent sensor-unavailable fault.
	DefaultUnavailableAfter = 3
)

// Validator applies checksum and plausibility acceptance to raw transducer
// samples and tracks consecutive-failure escalation.
type Validator struct {
	tempMin, tempMax float64
	humMin, humMax   float64
	unavailableAfter int

	strikes     int
	unavailable bool
}

// NewValidator creates a Validator with the sensor's documented physical
// range and the default escalation threshold.
func NewValidator() *Validator {
	return &Validator{
		tempMin:          DefaultTempMinC,
		tempMax:          DefaultTempMaxC,
		humMin:           DefaultHumMinPct,
		humMax:           DefaultHumMaxPct,
		unavailableAfter: DefaultUnavailableAfter,
	}
}

// Validate checks one raw sample. It always returns a SensorReading; a
// rejected sample yields Valid = false and a non-nil error naming the
// rejection. Acceptance clears any escalation.
func (v *Validator) Validate(raw RawSample, now time.Time) (SensorReading, error) {
	if err := v.check(raw); err != nil {
		v.strikes++
		if v.strikes >= v.unavailableAfter {
			v.unavailable = true
		}
		return SensorReading{At: now}, err
	}

	v.strikes = 0
	v.unavailable = false
	return SensorReading{
		TemperatureC: raw.TemperatureC,
		HumidityPct:  raw.HumidityPct,
		At:           now,
		Valid:        true,
	}, nil
}

func (v *Validator) check(raw RawSample) error {
	if raw.Checksum != raw.Sum {
		return fmt.Errorf("checksum mismatch: transmitted %#02x, computed %#02x", raw.Checksum, raw.Sum)
	}
	if raw.TemperatureC < v.tempMin || raw.TemperatureC > v.tempMax {
		return fmt.Errorf("temperature %.1fC outside %.0f-%.0fC", raw.TemperatureC, v.tempMin, v.tempMax)
	}
	if raw.HumidityPct < v.humMin || raw.HumidityPct > v.humMax {
		return fmt.Errorf("humidity %.1f%% outside %.0f-%.0f%%", raw.HumidityPct, v.humMin, v.humMax)
	}
	return nil
}

// RecordIOFailure counts a failed poll (driver I/O error) toward escalation.
func (v *Validator) RecordIOFailure() {
	v.strikes++
	if v.strikes >= v.unavailableAfter {
		v.unavailable = true
	}
}

// Unavailable reports whether consecutive failures have escalated to a
// persistent sensor-unavailable fault. Cleared by the next accepted sample.
func (v *Validator) Unavailable() bool {
	return v.unavailable
}

// Strikes returns the current consecutive-failure count.
func (v *Validator) Strikes() int {
	return v.strikes
}

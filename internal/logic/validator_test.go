package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goodSample(temp, hum float64) RawSample {
	return RawSample{TemperatureC: temp, HumidityPct: hum, Checksum: 0x42, Sum: 0x42}
}

func TestValidatorAccepts(t *testing.T) {
	v := NewValidator()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r, err := v.Validate(goodSample(21.5, 55.0), at)
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Equal(t, 21.5, r.TemperatureC)
	assert.Equal(t, 55.0, r.HumidityPct)
	assert.Equal(t, at, r.At)
}

func TestValidatorRejects(t *testing.T) {
	cases := []struct {
		name   string
		sample RawSample
	}{
		{"checksum mismatch", RawSample{TemperatureC: 21, HumidityPct: 50, Checksum: 0x42, Sum: 0x41}},
		{"temperature below range", goodSample(-1.0, 50)},
		{"temperature above range", goodSample(50.5, 50)},
		{"humidity below range", goodSample(21, 19.9)},
		{"humidity above range", goodSample(21, 90.1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewValidator()
			r, err := v.Validate(tc.sample, time.Now())
			assert.Error(t, err)
			assert.False(t, r.Valid)
		})
	}
}

func TestValidatorRangeBoundsInclusive(t *testing.T) {
	v := NewValidator()
	for _, s := range []RawSample{goodSample(0, 20), goodSample(50, 90)} {
		r, err := v.Validate(s, time.Now())
		assert.NoError(t, err)
		assert.True(t, r.Valid)
	}
}

func TestValidatorEscalation(t *testing.T) {
	v := NewValidator()
	bad := RawSample{TemperatureC: 99, HumidityPct: 50, Checksum: 1, Sum: 1}

	for i := 0; i < 2; i++ {
		v.Validate(bad, time.Now())
		assert.False(t, v.Unavailable(), "strike %d must not escalate", i+1)
	}
	v.Validate(bad, time.Now())
	assert.True(t, v.Unavailable(), "third consecutive strike escalates")
}

func TestValidatorIOFailuresCountTowardEscalation(t *testing.T) {
	v := NewValidator()
	v.RecordIOFailure()
	v.RecordIOFailure()
	assert.False(t, v.Unavailable())
	v.RecordIOFailure()
	assert.True(t, v.Unavailable())
}

func TestValidatorRecoveryClearsEscalation(t *testing.T) {
	v := NewValidator()
	for i := 0; i < 3; i++ {
		v.RecordIOFailure()
	}
	require.True(t, v.Unavailable())

	r, err := v.Validate(goodSample(22, 45), time.Now())
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.False(t, v.Unavailable())
	assert.Equal(t, 0, v.Strikes())
}

func TestValidatorAcceptResetsStrikes(t *testing.T) {
	v := NewValidator()
	bad := RawSample{Checksum: 1, Sum: 2, TemperatureC: 20, HumidityPct: 50}

	v.Validate(bad, time.Now())
	v.Validate(bad, time.Now())
	v.Validate(goodSample(20, 50), time.Now())
	v.Validate(bad, time.Now())
	v.Validate(bad, time.Now())

	assert.False(t, v.Unavailable(), "non-consecutive failures must not escalate")
}

package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanFor(key Key) Scan {
	var s Scan
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if Layout[r][c] == key {
				s[r][c] = true
			}
		}
	}
	return s
}

func feed(t *testing.T, d *Decoder, scans []Scan) []KeyEvent {
	t.Helper()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	var events []KeyEvent
	for i, s := range scans {
		if ev, ok := d.Process(s, base.Add(time.Duration(i)*50*time.Millisecond)); ok {
			events = append(events, ev)
		}
	}
	return events
}

func TestDecoderOneEventPerPress(t *testing.T) {
	d := NewDecoder(2)
	var idle Scan
	down := scanFor("A")

	// press held well past the window, then released
	events := feed(t, d, []Scan{idle, down, down, down, down, idle, idle, idle})

	require.Len(t, events, 1)
	assert.Equal(t, Key("A"), events[0].Key)
}

func TestDecoderBounceRejected(t *testing.T) {
	d := NewDecoder(3)
	var idle Scan
	down := scanFor("5")

	// single-scan blips never reach the window
	events := feed(t, d, []Scan{down, idle, down, idle, down, idle})
	assert.Empty(t, events)
}

func TestDecoderRepeatPressAfterRelease(t *testing.T) {
	d := NewDecoder(2)
	var idle Scan
	down := scanFor("#")

	events := feed(t, d, []Scan{
		down, down, down, // press 1
		idle, idle, // release
		down, down, // press 2
		idle, idle,
	})

	require.Len(t, events, 2)
	assert.Equal(t, Key("#"), events[0].Key)
	assert.Equal(t, Key("#"), events[1].Key)
}

func TestDecoderReleaseBounceDoesNotRepeat(t *testing.T) {
	d := NewDecoder(2)
	var idle Scan
	down := scanFor("C")

	// one idle scan mid-hold is a release bounce, not a new press
	events := feed(t, d, []Scan{down, down, idle, down, down, idle, idle})
	assert.Len(t, events, 1)
}

func TestDecoderMultiClosureIsNoOp(t *testing.T) {
	d := NewDecoder(2)
	ghost := scanFor("1")
	ghost[3][3] = true // second closure, implausible for the wiring
	down := scanFor("1")
	var idle Scan

	events := feed(t, d, []Scan{ghost, ghost, ghost, idle})
	assert.Empty(t, events, "multi-closure scans must not decode")

	// and they must not have advanced any key's debounce state
	events = feed(t, d, []Scan{down, down, idle, idle})
	require.Len(t, events, 1)
	assert.Equal(t, Key("1"), events[0].Key)
}

func TestDecoderStartsReleased(t *testing.T) {
	// a key held through a restart still needs the full window from scan 0
	d := NewDecoder(3)
	down := scanFor("D")

	_, ok := d.Process(down, time.Now())
	assert.False(t, ok)
	_, ok = d.Process(down, time.Now())
	assert.False(t, ok)
	_, ok = d.Process(down, time.Now())
	assert.True(t, ok)
}

func TestOpForKey(t *testing.T) {
	cases := []struct {
		key  Key
		want Op
	}{
		{"A", OpModeAuto},
		{"B", OpModeManual},
		{"C", OpOpen},
		{"D", OpClose},
		{"*", OpAlarmClear},
		{"#", OpAlarmArm},
		{"1", OpHourInc},
		{"2", OpMinuteInc},
		{"7", OpNone},
		{"0", OpNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, OpForKey(tc.key), "key %s", tc.key)
	}
}

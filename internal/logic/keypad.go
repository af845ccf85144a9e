package logic

import "time"

// Layout is the physical key arrangement of the 4x4 matrix, row-major.
var Layout = [4][4]Key{
	{"1", "2", "3", "A"},
	{"4", "5", "6", "B"},
	{"7", "8", "9", "C"},
	{"*", "0", "#", "D"},
}

// keyPhase is the per-key debounce phase.
type keyPhase int

const (
	phaseReleased keyPhase = iota
	phasePossiblyPressed
	phasePressed
	phasePossiblyReleased
)

// keyState tracks debounce progress for a single key.
type keyState struct {
	phase keyPhase
	// consecutive scans spent in the current possibly-* phase
	count int
}

// Decoder converts raw matrix scans into debounced KeyEvents.
// A press is reported exactly once, at the moment the key has held "down"
// for the configured number of consecutive scans; nothing further is
// reported until the key releases and re-debounces.
type Decoder struct {
	window int
	keys   [4][4]keyState
}

// NewDecoder creates a Decoder requiring window consecutive identical scans
// to accept a press or a release. All keys start Released, even if a key is
// physically held through a restart.
func NewDecoder(window int) *Decoder {
	if window < 1 {
		window = 1
	}
	return &Decoder{window: window}
}

// Process consumes one raw scan and returns the decoded press, if any.
// A scan with more than one closure is electrically implausible for the
// matrix wiring and is treated as a no-op scan, not an error.
func (d *Decoder) Process(scan Scan, now time.Time) (KeyEvent, bool) {
	if closures(scan) > 1 {
		return KeyEvent{}, false
	}

	var ev KeyEvent
	var emitted bool
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if d.step(&d.keys[r][c], scan[r][c]) {
				ev = KeyEvent{Key: Layout[r][c], PressedAt: now}
				emitted = true
			}
		}
	}
	return ev, emitted
}

// step advances one key's debounce machine. Returns true when the key
// promotes to Pressed (the single point a KeyEvent is emitted).
func (d *Decoder) step(k *keyState, down bool) bool {
	switch k.phase {
	case phaseReleased:
		if down {
			k.phase = phasePossiblyPressed
			k.count = 1
			if k.count >= d.window {
				k.phase = phasePressed
				return true
			}
		}
	case phasePossiblyPressed:
		if !down {
			// bounce: shorter than the window, reject
			k.phase = phaseReleased
			k.count = 0
			return false
		}
		k.count++
		if k.count >= d.window {
			k.phase = phasePressed
			return true
		}
	case phasePressed:
		if !down {
			k.phase = phasePossiblyReleased
			k.count = 1
			if k.count >= d.window {
				k.phase = phaseReleased
				k.count = 0
			}
		}
	case phasePossiblyReleased:
		if down {
			// release bounce: still held
			k.phase = phasePressed
			k.count = 0
			return false
		}
		k.count++
		if k.count >= d.window {
			k.phase = phaseReleased
			k.count = 0
		}
	}
	return false
}

func closures(scan Scan) int {
	n := 0
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if scan[r][c] {
				n++
			}
		}
	}
	return n
}

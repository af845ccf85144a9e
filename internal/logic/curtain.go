package logic

// Default Auto-mode thresholds. The curtain opens when both are strictly
// exceeded by the latest valid reading.
const (
	DefaultOpenTempC  = 20.0
	DefaultOpenHumPct = 40.0
)

// CurtainEngine is the two-mode curtain state machine. It owns no I/O:
// callers actuate the curtain when a method reports a position change, so
// unchanged evaluations produce no actuator chatter.
type CurtainEngine struct {
	openTemp float64
	openHum  float64
	cur      CurtainState
}

// NewCurtainEngine creates the engine in its initial state, Auto/Closed,
// with the given open thresholds.
func NewCurtainEngine(openTempC, openHumPct float64) *CurtainEngine {
	return &CurtainEngine{
		openTemp: openTempC,
		openHum:  openHumPct,
		cur:      CurtainState{Mode: ModeAuto, Position: PositionClosed},
	}
}

// SetMode switches mode unconditionally. Returns true if the mode changed.
func (e *CurtainEngine) SetMode(m Mode) bool {
	if e.cur.Mode == m {
		return false
	}
	e.cur.Mode = m
	return true
}

// Command sets the position directly. Honored only in Manual mode; in Auto
// the operator command is ignored. Returns true if the position changed.
func (e *CurtainEngine) Command(p Position) bool {
	if e.cur.Mode != ModeManual || e.cur.Position == p {
		return false
	}
	e.cur.Position = p
	return true
}

// Evaluate recomputes the position from a sensor reading. Only Auto mode
// reacts; invalid readings are never consumed, and a persistent
// sensor-unavailable fault holds the last position rather than guessing.
// Returns true if the position changed.
func (e *CurtainEngine) Evaluate(r SensorReading, sensorDown bool) bool {
	if e.cur.Mode != ModeAuto || sensorDown || !r.Valid {
		return false
	}
	target := PositionClosed
	if r.TemperatureC > e.openTemp && r.HumidityPct > e.openHum {
		target = PositionOpen
	}
	if e.cur.Position == target {
		return false
	}
	e.cur.Position = target
	return true
}

// State returns the current curtain state.
func (e *CurtainEngine) State() CurtainState {
	return e.cur
}

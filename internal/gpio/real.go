//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/curtain-controller/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

const chipName = "gpiochip0"

// RealMatrix scans a 4x4 keypad wired as 4 strobed row outputs and 4 column
// inputs with pull-downs.
type RealMatrix struct {
	chip *gpiocdev.Chip
	rows [4]*gpiocdev.Line
	cols [4]*gpiocdev.Line
}

// NewRealMatrix requests the row and column lines. Any unavailable line is a
// fatal configuration error, reported before the controller starts.
func NewRealMatrix(rowPins, colPins [4]int) (*RealMatrix, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	m := &RealMatrix{chip: chip}
	for i, pin := range rowPins {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("request row pin %d: %w", pin, err)
		}
		m.rows[i] = line
	}
	for i, pin := range colPins {
		line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("request column pin %d: %w", pin, err)
		}
		m.cols[i] = line
	}
	return m, nil
}

// Scan strobes each row high in turn and samples the columns.
func (m *RealMatrix) Scan() (logic.Scan, error) {
	var scan logic.Scan
	for r, row := range m.rows {
		if err := row.SetValue(1); err != nil {
			return scan, fmt.Errorf("strobe row %d: %w", r, err)
		}
		for c, col := range m.cols {
			v, err := col.Value()
			if err != nil {
				row.SetValue(0)
				return scan, fmt.Errorf("read column %d: %w", c, err)
			}
			scan[r][c] = v != 0
		}
		if err := row.SetValue(0); err != nil {
			return scan, fmt.Errorf("release row %d: %w", r, err)
		}
	}
	return scan, nil
}

// Close releases all requested lines and the chip.
func (m *RealMatrix) Close() error {
	var errs []error
	for _, line := range append(m.rows[:], m.cols[:]...) {
		if line != nil {
			if err := line.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if m.chip != nil {
		if err := m.chip.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealActuator drives the curtain motor through a pair of direction lines.
// Moving runs the motor for a fixed travel duration, then stops; the motor
// controller tolerates redundant commands, so Move is idempotent.
type RealActuator struct {
	chip      *gpiocdev.Chip
	openLine  *gpiocdev.Line
	closeLine *gpiocdev.Line
	travel    time.Duration

	mu   sync.Mutex
	stop *time.Timer
}

// NewRealActuator requests the motor direction lines. travel is how long the
// motor runs per move before stopping.
func NewRealActuator(pinOpen, pinClose int, travel time.Duration) (*RealActuator, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	openLine, err := chip.RequestLine(pinOpen, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request motor open pin %d: %w", pinOpen, err)
	}
	closeLine, err := chip.RequestLine(pinClose, gpiocdev.AsOutput(0))
	if err != nil {
		openLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request motor close pin %d: %w", pinClose, err)
	}
	return &RealActuator{
		chip:      chip,
		openLine:  openLine,
		closeLine: closeLine,
		travel:    travel,
	}, nil
}

// Move energizes the direction line for the travel duration.
func (a *RealActuator) Move(p logic.Position) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stop != nil {
		a.stop.Stop()
	}

	drive, release := a.openLine, a.closeLine
	if p == logic.PositionClosed {
		drive, release = a.closeLine, a.openLine
	}
	if err := release.SetValue(0); err != nil {
		return fmt.Errorf("release direction line: %w", err)
	}
	if err := drive.SetValue(1); err != nil {
		return fmt.Errorf("drive direction line: %w", err)
	}

	a.stop = time.AfterFunc(a.travel, func() {
		a.Idle()
	})
	return nil
}

// Idle stops the motor.
func (a *RealActuator) Idle() error {
	var errs []error
	if err := a.openLine.SetValue(0); err != nil {
		errs = append(errs, err)
	}
	if err := a.closeLine.SetValue(0); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("idle motor: %v", errs)
	}
	return nil
}

// Close idles the motor and releases GPIO resources.
func (a *RealActuator) Close() error {
	a.mu.Lock()
	if a.stop != nil {
		a.stop.Stop()
	}
	a.mu.Unlock()

	var errs []error
	if err := a.Idle(); err != nil {
		errs = append(errs, err)
	}
	for _, line := range []*gpiocdev.Line{a.openLine, a.closeLine} {
		if line != nil {
			if err := line.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if a.chip != nil {
		if err := a.chip.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealBuzzer drives the buzzer line.
type RealBuzzer struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealBuzzer requests the buzzer line as an output, initially off.
func NewRealBuzzer(pin int) (*RealBuzzer, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request buzzer pin %d: %w", pin, err)
	}
	return &RealBuzzer{chip: chip, line: line}, nil
}

// Set switches the buzzer.
func (b *RealBuzzer) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := b.line.SetValue(v); err != nil {
		return fmt.Errorf("set buzzer: %w", err)
	}
	return nil
}

// Close silences the buzzer and releases GPIO resources.
func (b *RealBuzzer) Close() error {
	var errs []error
	if b.line != nil {
		if err := b.line.SetValue(0); err != nil {
			errs = append(errs, err)
		}
		if err := b.line.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

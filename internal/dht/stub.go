//go:build !linux

package dht

import (
	"errors"

	"github.com/sweeney/curtain-controller/internal/logic"
)

var errUnsupported = errors.New("dht: not supported on this platform (requires Linux)")

// RealSensor is not available on non-Linux platforms.
type RealSensor struct{}

// NewRealSensor returns an error on non-Linux platforms.
func NewRealSensor(pin int) (*RealSensor, error) {
	return nil, errUnsupported
}

func (s *RealSensor) Poll() (logic.RawSample, error) { return logic.RawSample{}, errUnsupported }
func (s *RealSensor) Close() error                   { return nil }

// Package dht reads the DHT-class temperature/humidity transducer.
// The real implementation bit-bangs the single-wire protocol through the
// Linux GPIO character device; the fake returns scripted samples. Samples
// are delivered raw — checksum acceptance is the validator's job, so a
// corrupted transfer surfaces as a rejected sample, not a driver error.
package dht

import "github.com/sweeney/curtain-controller/internal/logic"

// Sensor polls the transducer.
type Sensor interface {
	// Poll performs one read cycle and returns the decoded sample.
	// An error means the transfer itself failed (timeout, no response).
	Poll() (logic.RawSample, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultPin is the BCM pin of the sensor data line.
const DefaultPin = 4

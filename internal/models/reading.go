package models

import (
	"errors"
	"time"
)

// Metric identifies one monitored sensor channel.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
	MetricFlame       Metric = "flame"
	MetricGas         Metric = "gas"
)

// Metrics lists all channels in evaluation order.
var Metrics = []Metric{MetricTemperature, MetricHumidity, MetricFlame, MetricGas}

// IsValid checks if the metric is a known channel.
func (m Metric) IsValid() bool {
	switch m {
	case MetricTemperature, MetricHumidity, MetricFlame, MetricGas:
		return true
	default:
		return false
	}
}

// Reading is one normalized sensor sample for a single device.
//
// Sensor fields are pointers: a nil field means the device did not report
// that channel. Zero is a valid measurement and must not be conflated with
// absence. A Reading is never mutated after construction.
type Reading struct {
	// Device identifier, extracted from the uplink envelope or topic
	DeviceID string `json:"device_id"`

	// Server-assigned receipt time, always UTC
	Timestamp time.Time `json:"timestamp"`

	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	FlameSignal *float64 `json:"flame_signal,omitempty"`
	GasLevel    *float64 `json:"gas_level,omitempty"`
}

// Validation errors
var (
	ErrEmptyDeviceID = errors.New("reading device ID cannot be empty")
	ErrZeroTimestamp = errors.New("reading timestamp cannot be zero")
)

// Validate checks the Reading invariants.
func (r *Reading) Validate() error {
	if r.DeviceID == "" {
		return ErrEmptyDeviceID
	}
	if r.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	return nil
}

// Value returns the sample for the given metric, or nil if absent.
func (r *Reading) Value(m Metric) *float64 {
	switch m {
	case MetricTemperature:
		return r.Temperature
	case MetricHumidity:
		return r.Humidity
	case MetricFlame:
		return r.FlameSignal
	case MetricGas:
		return r.GasLevel
	default:
		return nil
	}
}

// Set stores a sample for the given metric. Unknown metrics are ignored.
func (r *Reading) Set(m Metric, v float64) {
	switch m {
	case MetricTemperature:
		r.Temperature = &v
	case MetricHumidity:
		r.Humidity = &v
	case MetricFlame:
		r.FlameSignal = &v
	case MetricGas:
		r.GasLevel = &v
	}
}

package models

import "time"

// BoundKind names which side of a threshold was violated.
type BoundKind string

const (
	BoundMin BoundKind = "min"
	BoundMax BoundKind = "max"
)

// AlertEvent records one threshold violation found while evaluating a
// reading. Events are ephemeral: produced by the evaluator, pushed to live
// subscribers, never stored as mutable state.
type AlertEvent struct {
	DeviceID   string    `json:"device_id"`
	Metric     Metric    `json:"metric"`
	Value      float64   `json:"value"`
	BoundKind  BoundKind `json:"bound_kind"`
	BoundValue float64   `json:"bound_value"`
	Timestamp  time.Time `json:"timestamp"`
}

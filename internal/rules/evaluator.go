package rules

import "firewatch/internal/models"

// Evaluate compares a reading against a device's rule and returns one
// AlertEvent per violated bound.
//
// Pure function: safe to call concurrently. Events come out in metric
// declaration order, min before max. Bounds are inclusive; a value equal to
// a bound is not a violation. A rule whose min exceeds its max is a
// configuration error: both bounds can then fire for the same value, and
// both events are emitted.
func Evaluate(r models.Reading, rule models.AlertRule) []models.AlertEvent {
	var events []models.AlertEvent

	for _, metric := range models.Metrics {
		value := r.Value(metric)
		if value == nil {
			continue
		}

		min, max := rule.Bounds(metric)
		if min != nil && *value < *min {
			events = append(events, models.AlertEvent{
				DeviceID:   r.DeviceID,
				Metric:     metric,
				Value:      *value,
				BoundKind:  models.BoundMin,
				BoundValue: *min,
				Timestamp:  r.Timestamp,
			})
		}
		if max != nil && *value > *max {
			events = append(events, models.AlertEvent{
				DeviceID:   r.DeviceID,
				Metric:     metric,
				Value:      *value,
				BoundKind:  models.BoundMax,
				BoundValue: *max,
				Timestamp:  r.Timestamp,
			})
		}
	}

	return events
}

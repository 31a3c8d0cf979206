package rules_test

import (
	"testing"
	"time"

	"firewatch/internal/models"
	"firewatch/internal/rules"
)

func reading(deviceID string, set func(*models.Reading)) models.Reading {
	r := models.Reading{
		DeviceID:  deviceID,
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	set(&r)
	return r
}

func f(v float64) *float64 { return &v }

func TestEvaluateUnboundedRuleEmitsNothing(t *testing.T) {
	r := reading("d1", func(r *models.Reading) {
		r.Temperature = f(35)
		r.Humidity = f(10)
		r.FlameSignal = f(1)
		r.GasLevel = f(99)
	})

	events := rules.Evaluate(r, models.AlertRule{DeviceID: "d1"})
	if len(events) != 0 {
		t.Errorf("unbounded rule produced %d events, want 0", len(events))
	}
}

func TestEvaluateBoundsInclusive(t *testing.T) {
	rule := models.AlertRule{DeviceID: "d1", TempMin: f(10), TempMax: f(30)}

	tests := []struct {
		name       string
		value      float64
		wantEvents int
		wantKind   models.BoundKind
		wantBound  float64
	}{
		{"inside", 20, 0, "", 0},
		{"equal to min", 10, 0, "", 0},
		{"equal to max", 30, 0, "", 0},
		{"below min", 9.9, 1, models.BoundMin, 10},
		{"above max", 30.1, 1, models.BoundMax, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reading("d1", func(r *models.Reading) { r.Temperature = f(tt.value) })
			events := rules.Evaluate(r, rule)
			if len(events) != tt.wantEvents {
				t.Fatalf("got %d events, want %d", len(events), tt.wantEvents)
			}
			if tt.wantEvents == 1 {
				ev := events[0]
				if ev.BoundKind != tt.wantKind {
					t.Errorf("BoundKind = %q, want %q", ev.BoundKind, tt.wantKind)
				}
				if ev.BoundValue != tt.wantBound {
					t.Errorf("BoundValue = %v, want %v", ev.BoundValue, tt.wantBound)
				}
				if ev.Value != tt.value {
					t.Errorf("Value = %v, want %v", ev.Value, tt.value)
				}
			}
		})
	}
}

func TestEvaluateMaxViolation(t *testing.T) {
	rule := models.AlertRule{DeviceID: "d1", TempMax: f(30)}
	r := reading("d1", func(r *models.Reading) { r.Temperature = f(35) })

	events := rules.Evaluate(r, rule)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	ev := events[0]
	if ev.DeviceID != "d1" {
		t.Errorf("DeviceID = %q, want d1", ev.DeviceID)
	}
	if ev.Metric != models.MetricTemperature {
		t.Errorf("Metric = %q, want temperature", ev.Metric)
	}
	if ev.BoundKind != models.BoundMax {
		t.Errorf("BoundKind = %q, want max", ev.BoundKind)
	}
	if ev.BoundValue != 30 {
		t.Errorf("BoundValue = %v, want 30", ev.BoundValue)
	}
	if ev.Value != 35 {
		t.Errorf("Value = %v, want 35", ev.Value)
	}
	if !ev.Timestamp.Equal(r.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, r.Timestamp)
	}
}

func TestEvaluateAbsentMetricNotEvaluated(t *testing.T) {
	rule := models.AlertRule{DeviceID: "d1", TempMax: f(30), HumidityMin: f(20)}
	r := reading("d1", func(r *models.Reading) { r.GasLevel = f(0.1) })

	if events := rules.Evaluate(r, rule); len(events) != 0 {
		t.Errorf("got %d events for a reading without bounded metrics, want 0", len(events))
	}
}

func TestEvaluateInvertedBoundsEmitBoth(t *testing.T) {
	// min > max is a configuration error; the evaluator must emit both
	// violations rather than crash or pick one.
	rule := models.AlertRule{DeviceID: "d1", TempMin: f(40), TempMax: f(30)}
	r := reading("d1", func(r *models.Reading) { r.Temperature = f(35) })

	events := rules.Evaluate(r, rule)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].BoundKind != models.BoundMin || events[1].BoundKind != models.BoundMax {
		t.Errorf("event order = [%s, %s], want [min, max]", events[0].BoundKind, events[1].BoundKind)
	}
}

func TestEvaluateMetricDeclarationOrder(t *testing.T) {
	rule := models.AlertRule{
		DeviceID: "d1",
		TempMax:  f(30),
		GasMax:   f(1),
		FlameMax: f(0),
	}
	r := reading("d1", func(r *models.Reading) {
		r.GasLevel = f(2)
		r.FlameSignal = f(1)
		r.Temperature = f(35)
	})

	events := rules.Evaluate(r, rule)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	wantOrder := []models.Metric{models.MetricTemperature, models.MetricFlame, models.MetricGas}
	for i, want := range wantOrder {
		if events[i].Metric != want {
			t.Errorf("events[%d].Metric = %q, want %q", i, events[i].Metric, want)
		}
	}
}

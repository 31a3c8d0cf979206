package decode_test

import (
	"errors"
	"testing"
	"time"

	"firewatch/internal/decode"
	"firewatch/internal/models"
)

const uplinkTopic = "v3/wildfire-app/devices/wfd-1/up"

func TestUplinkTTNEnvelope(t *testing.T) {
	raw := []byte(`{
		"end_device_ids": {"device_id": "wfd-1"},
		"received_at": "2024-05-01T10:00:00Z",
		"uplink_message": {
			"decoded_payload": {
				"temperature": 24.5,
				"humidity": 40,
				"flame": false,
				"co": 0.3,
				"battery": 98
			}
		}
	}`)

	now := time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC)
	r, err := decode.Uplink(raw, uplinkTopic, now)
	if err != nil {
		t.Fatalf("Uplink returned error: %v", err)
	}

	if r.DeviceID != "wfd-1" {
		t.Errorf("DeviceID = %q, want wfd-1", r.DeviceID)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", r.Timestamp, want)
	}
	if r.Temperature == nil || *r.Temperature != 24.5 {
		t.Errorf("Temperature = %v, want 24.5", r.Temperature)
	}
	if r.Humidity == nil || *r.Humidity != 40 {
		t.Errorf("Humidity = %v, want 40", r.Humidity)
	}
	if r.FlameSignal == nil || *r.FlameSignal != 0 {
		t.Errorf("FlameSignal = %v, want 0 (false)", r.FlameSignal)
	}
	if r.GasLevel == nil || *r.GasLevel != 0.3 {
		t.Errorf("GasLevel = %v, want 0.3", r.GasLevel)
	}
}

func TestUplinkZeroIsAValidReading(t *testing.T) {
	raw := []byte(`{
		"end_device_ids": {"device_id": "wfd-1"},
		"uplink_message": {"decoded_payload": {"temperature": 0}}
	}`)

	r, err := decode.Uplink(raw, uplinkTopic, time.Now().UTC())
	if err != nil {
		t.Fatalf("Uplink returned error: %v", err)
	}
	if r.Temperature == nil || *r.Temperature != 0 {
		t.Errorf("Temperature = %v, want 0 (present)", r.Temperature)
	}
	if r.Humidity != nil {
		t.Errorf("Humidity = %v, want absent", r.Humidity)
	}
}

func TestUplinkDeviceIDFromTopic(t *testing.T) {
	raw := []byte(`{"uplink_message": {"decoded_payload": {"temperature": 21}}}`)

	r, err := decode.Uplink(raw, "v3/wildfire-app/devices/wfd-9/up", time.Now().UTC())
	if err != nil {
		t.Fatalf("Uplink returned error: %v", err)
	}
	if r.DeviceID != "wfd-9" {
		t.Errorf("DeviceID = %q, want wfd-9", r.DeviceID)
	}
}

func TestUplinkFlatPayload(t *testing.T) {
	raw := []byte(`{"device_id": "wfd-2", "temperature": 19.5, "gas_level": 1.2}`)

	r, err := decode.Uplink(raw, "", time.Now().UTC())
	if err != nil {
		t.Fatalf("Uplink returned error: %v", err)
	}
	if r.DeviceID != "wfd-2" {
		t.Errorf("DeviceID = %q, want wfd-2", r.DeviceID)
	}
	if r.Temperature == nil || *r.Temperature != 19.5 {
		t.Errorf("Temperature = %v, want 19.5", r.Temperature)
	}
	if r.GasLevel == nil || *r.GasLevel != 1.2 {
		t.Errorf("GasLevel = %v, want 1.2", r.GasLevel)
	}
}

func TestUplinkReceiptTimeFallback(t *testing.T) {
	raw := []byte(`{"end_device_ids": {"device_id": "wfd-1"}}`)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r, err := decode.Uplink(raw, uplinkTopic, now)
	if err != nil {
		t.Fatalf("Uplink returned error: %v", err)
	}
	if !r.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want fallback %v", r.Timestamp, now)
	}
}

func TestUplinkMetricCoercion(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		metric  models.Metric
		want    *float64
	}{
		{"numeric string", `{"temperature": "25.1"}`, models.MetricTemperature, f(25.1)},
		{"bool true", `{"flame": true}`, models.MetricFlame, f(1)},
		{"malformed value absent", `{"temperature": "hot"}`, models.MetricTemperature, nil},
		{"object value absent", `{"humidity": {"raw": 4}}`, models.MetricHumidity, nil},
		{"alias temp", `{"temp": 30}`, models.MetricTemperature, f(30)},
		{"alias hum", `{"hum": 55}`, models.MetricHumidity, f(55)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(`{"end_device_ids": {"device_id": "d"}, "uplink_message": {"decoded_payload": ` + tt.payload + `}}`)
			r, err := decode.Uplink(raw, "", time.Now().UTC())
			if err != nil {
				t.Fatalf("Uplink returned error: %v", err)
			}
			got := r.Value(tt.metric)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("metric %s = %v, want absent", tt.metric, *got)
			case tt.want != nil && got == nil:
				t.Errorf("metric %s absent, want %v", tt.metric, *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("metric %s = %v, want %v", tt.metric, *got, *tt.want)
			}
		})
	}
}

func TestUplinkMalformedMetricDoesNotInvalidateReading(t *testing.T) {
	raw := []byte(`{
		"end_device_ids": {"device_id": "wfd-1"},
		"uplink_message": {"decoded_payload": {"temperature": "bad", "humidity": 50}}
	}`)

	r, err := decode.Uplink(raw, uplinkTopic, time.Now().UTC())
	if err != nil {
		t.Fatalf("Uplink returned error: %v", err)
	}
	if r.Temperature != nil {
		t.Errorf("Temperature = %v, want absent", r.Temperature)
	}
	if r.Humidity == nil || *r.Humidity != 50 {
		t.Errorf("Humidity = %v, want 50", r.Humidity)
	}
}

func TestUplinkErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		topic   string
		wantErr error
	}{
		{"non-json bytes", "not json at all", uplinkTopic, decode.ErrPayloadUnparsable},
		{"truncated json", `{"end_device_ids": {`, uplinkTopic, decode.ErrPayloadUnparsable},
		{"no device anywhere", `{"uplink_message": {"decoded_payload": {"temperature": 20}}}`, "some/other/topic", decode.ErrDeviceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode.Uplink([]byte(tt.raw), tt.topic, time.Now().UTC())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Uplink error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func f(v float64) *float64 { return &v }

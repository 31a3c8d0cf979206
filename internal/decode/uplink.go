package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"firewatch/internal/models"
)

// Decode errors. A message is dropped before processing only when one of
// these is returned; a single malformed metric never invalidates a reading.
var (
	ErrPayloadUnparsable = errors.New("payload is not valid JSON")
	ErrDeviceUnknown     = errors.New("device ID cannot be determined")
)

// envelope matches the TTN-style uplink message shape, plus the flat shape
// some devices publish directly.
type envelope struct {
	EndDeviceIDs struct {
		DeviceID string `json:"device_id"`
	} `json:"end_device_ids"`
	ReceivedAt    string `json:"received_at"`
	UplinkMessage struct {
		DecodedPayload map[string]any `json:"decoded_payload"`
	} `json:"uplink_message"`

	// Flat fallback: device_id at the top level
	DeviceID string `json:"device_id"`
}

// Uplink turns one raw broker message into a canonical Reading.
//
// The device ID comes from the envelope, falling back to the topic
// (v3/{app}/devices/{device_id}/up). The timestamp comes from the
// server-assigned received_at field, falling back to now. Metric values are
// coerced to numbers where possible; values that cannot be coerced are
// treated as absent, not as errors.
func Uplink(raw []byte, topic string, now time.Time) (models.Reading, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.Reading{}, fmt.Errorf("%w: %v", ErrPayloadUnparsable, err)
	}

	deviceID := env.EndDeviceIDs.DeviceID
	if deviceID == "" {
		deviceID = env.DeviceID
	}
	if deviceID == "" {
		deviceID = deviceFromTopic(topic)
	}
	if deviceID == "" {
		return models.Reading{}, ErrDeviceUnknown
	}

	ts := now.UTC()
	if env.ReceivedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, env.ReceivedAt); err == nil {
			ts = t.UTC()
		}
	}

	payload := env.UplinkMessage.DecodedPayload
	if len(payload) == 0 {
		// Flat shape: metric keys live at the top level.
		var flat map[string]any
		if err := json.Unmarshal(raw, &flat); err == nil {
			payload = flat
		}
	}

	reading := models.Reading{DeviceID: deviceID, Timestamp: ts}
	for key, value := range payload {
		metric, known := metricForKey(key)
		if !known {
			continue
		}
		if v, ok := coerceNumeric(value); ok {
			reading.Set(metric, v)
		}
	}

	return reading, nil
}

// deviceFromTopic extracts the device ID from a TTN uplink topic,
// v3/{application}/devices/{device_id}/up.
func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	for i, p := range parts {
		if p == "devices" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

// metricForKey maps a decoded payload key to its metric. Firmware versions
// disagree on key names, so common aliases are accepted.
func metricForKey(key string) (models.Metric, bool) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "temperature", "temp":
		return models.MetricTemperature, true
	case "humidity", "hum":
		return models.MetricHumidity, true
	case "flame", "flame_signal":
		return models.MetricFlame, true
	case "gas", "gas_level", "co":
		return models.MetricGas, true
	default:
		return "", false
	}
}

// coerceNumeric converts a decoded JSON value to float64. Booleans map to
// 0/1 for flame-style digital sensors.
func coerceNumeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

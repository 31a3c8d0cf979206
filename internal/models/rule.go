package models

// AlertRule holds the per-device min/max thresholds for each metric.
//
// A nil bound means that side is unbounded. The zero value is a valid,
// fully unbounded rule; it is what a device gets on first reference.
// Field names on the wire match the dashboard's alert form.
type AlertRule struct {
	DeviceID string `json:"device_id"`

	TempMin     *float64 `json:"t_min"`
	TempMax     *float64 `json:"t_max"`
	HumidityMin *float64 `json:"h_min"`
	HumidityMax *float64 `json:"h_max"`
	FlameMin    *float64 `json:"f_min"`
	FlameMax    *float64 `json:"f_max"`
	GasMin      *float64 `json:"co_min"`
	GasMax      *float64 `json:"co_max"`
}

// Bounds returns the configured (min, max) for a metric; either may be nil.
func (r *AlertRule) Bounds(m Metric) (min, max *float64) {
	switch m {
	case MetricTemperature:
		return r.TempMin, r.TempMax
	case MetricHumidity:
		return r.HumidityMin, r.HumidityMax
	case MetricFlame:
		return r.FlameMin, r.FlameMax
	case MetricGas:
		return r.GasMin, r.GasMax
	default:
		return nil, nil
	}
}

// RulePatch is a partial rule update. Nil fields leave the existing bound
// untouched; the merge never clears a previously set bound.
type RulePatch struct {
	TempMin     *float64 `json:"t_min"`
	TempMax     *float64 `json:"t_max"`
	HumidityMin *float64 `json:"h_min"`
	HumidityMax *float64 `json:"h_max"`
	FlameMin    *float64 `json:"f_min"`
	FlameMax    *float64 `json:"f_max"`
	GasMin      *float64 `json:"co_min"`
	GasMax      *float64 `json:"co_max"`
}

// Apply merges the supplied bounds into rule, leaving nil fields as-is.
func (p *RulePatch) Apply(rule *AlertRule) {
	if p.TempMin != nil {
		rule.TempMin = p.TempMin
	}
	if p.TempMax != nil {
		rule.TempMax = p.TempMax
	}
	if p.HumidityMin != nil {
		rule.HumidityMin = p.HumidityMin
	}
	if p.HumidityMax != nil {
		rule.HumidityMax = p.HumidityMax
	}
	if p.FlameMin != nil {
		rule.FlameMin = p.FlameMin
	}
	if p.FlameMax != nil {
		rule.FlameMax = p.FlameMax
	}
	if p.GasMin != nil {
		rule.GasMin = p.GasMin
	}
	if p.GasMax != nil {
		rule.GasMax = p.GasMax
	}
}

// IsEmpty reports whether the patch supplies no bounds at all.
func (p *RulePatch) IsEmpty() bool {
	return p.TempMin == nil && p.TempMax == nil &&
		p.HumidityMin == nil && p.HumidityMax == nil &&
		p.FlameMin == nil && p.FlameMax == nil &&
		p.GasMin == nil && p.GasMax == nil
}

package domain

import (
	"cmp"
	"slices"
	"time"
)

// SensorChannel is one of the six fixed virtual sensor channels.
type SensorChannel string

const (
	DissolvedOxygen    SensorChannel = "dissolved_oxygen"
	Turbidity          SensorChannel = "turbidity"
	WaterTemperature   SensorChannel = "water_temperature"
	AlgaeBloomIndex    SensorChannel = "algae_bloom_index"
	RainfallSewageRisk SensorChannel = "rainfall_sewage_risk"
	HumanPressure      SensorChannel = "human_pressure"
)

// Channels lists every channel in display order.
var Channels = []SensorChannel{
	DissolvedOxygen,
	Turbidity,
	WaterTemperature,
	AlgaeBloomIndex,
	RainfallSewageRisk,
	HumanPressure,
}

// Valid reports whether c belongs to the closed channel set.
func (c SensorChannel) Valid() bool {
	return slices.Contains(Channels, c)
}

// ChannelInfo carries display metadata for a channel.
type ChannelInfo struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
}

var channelInfo = map[SensorChannel]ChannelInfo{
	DissolvedOxygen:    {Label: "Dissolved Oxygen", Description: "Oxygen levels critical for aquatic life", Unit: "%"},
	Turbidity:          {Label: "Turbidity", Description: "Water clarity and sediment levels", Unit: "%"},
	WaterTemperature:   {Label: "Water Temperature", Description: "Thermal stress indicator", Unit: "%"},
	AlgaeBloomIndex:    {Label: "Algae Bloom Index", Description: "Eutrophication and bloom risk", Unit: "%"},
	RainfallSewageRisk: {Label: "Rainfall & Sewage Risk", Description: "Overflow and contamination risk", Unit: "%"},
	HumanPressure:      {Label: "Human Pressure", Description: "Tourist and activity impact", Unit: "%"},
}

// Info returns display metadata; unknown channels get an empty value.
func (c SensorChannel) Info() ChannelInfo {
	return channelInfo[c]
}

// SensorReading is one normalized observation of a channel.
type SensorReading struct {
	ID         string        `json:"id"`
	LakeID     string        `json:"lakeId"`
	SensorType SensorChannel `json:"sensorType"`
	Value      float64       `json:"value"`
	RawValue   *float64      `json:"rawValue,omitempty"`
	Unit       string        `json:"unit,omitempty"`
	Confidence float64       `json:"confidence"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Validate checks the reading's channel and numeric bounds.
func (r SensorReading) Validate() error {
	if r.LakeID == "" {
		return invalid("lakeId", "is required")
	}
	if !r.SensorType.Valid() {
		return invalid("sensorType", "unknown channel %q", r.SensorType)
	}
	if !inRange(r.Value, 0, 100) {
		return invalid("value", "must be within [0, 100], got %v", r.Value)
	}
	if !inRange(r.Confidence, 0, 1) {
		return invalid("confidence", "must be within [0, 1], got %v", r.Confidence)
	}
	if r.Timestamp.IsZero() {
		return invalid("timestamp", "is required")
	}
	return nil
}

// LatestPerChannel keeps the most recent reading of each channel.
//
// The input is copied and stably sorted by timestamp descending before the
// first-wins deduplication, so callers do not have to pre-sort. Readings with
// an unknown channel are dropped. An empty input returns ErrNoData so the
// caller can tell "nothing recorded yet" apart from a filtered result.
func LatestPerChannel(readings []SensorReading) ([]SensorReading, error) {
	if len(readings) == 0 {
		return nil, ErrNoData
	}

	sorted := slices.Clone(readings)
	slices.SortStableFunc(sorted, func(a, b SensorReading) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	seen := make(map[SensorChannel]struct{}, len(Channels))
	latest := make([]SensorReading, 0, len(Channels))
	for _, r := range sorted {
		if !r.SensorType.Valid() {
			continue
		}
		if _, ok := seen[r.SensorType]; ok {
			continue
		}
		seen[r.SensorType] = struct{}{}
		latest = append(latest, r)
	}
	return latest, nil
}

// ComponentsFromReadings maps a normalized reading set onto score components.
// Every channel must be present exactly once; the returned confidence is the
// mean confidence of the six readings.
func ComponentsFromReadings(readings []SensorReading) (ScoreComponents, float64, error) {
	values := make(map[SensorChannel]float64, len(Channels))
	var confidence float64
	for _, r := range readings {
		if _, dup := values[r.SensorType]; dup || !r.SensorType.Valid() {
			continue
		}
		values[r.SensorType] = r.Value
		confidence += r.Confidence
	}

	for _, ch := range Channels {
		if _, ok := values[ch]; !ok {
			return ScoreComponents{}, 0, invalid(string(ch), "missing reading")
		}
	}

	c := ScoreComponents{
		DissolvedOxygen:    values[DissolvedOxygen],
		Turbidity:          values[Turbidity],
		WaterTemperature:   values[WaterTemperature],
		AlgaeBloomIndex:    values[AlgaeBloomIndex],
		RainfallSewageRisk: values[RainfallSewageRisk],
		HumanPressure:      values[HumanPressure],
	}
	return c, clamp(confidence/float64(len(Channels)), 0, 1), nil
}

func clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

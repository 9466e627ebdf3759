package domain

import (
	"math"
	"time"
)

// HealthBand is one of four ordered severity tiers derived from a score.
type HealthBand string

const (
	BandHealthy   HealthBand = "healthy"
	BandAtRisk    HealthBand = "at_risk"
	BandDegrading HealthBand = "degrading"
	BandCritical  HealthBand = "critical"
)

// Channel weights of the composite score. They sum to exactly 1.00.
const (
	WeightDissolvedOxygen    = 0.25
	WeightTurbidity          = 0.20
	WeightWaterTemperature   = 0.15
	WeightAlgaeBloomIndex    = 0.15
	WeightRainfallSewageRisk = 0.15
	WeightHumanPressure      = 0.10
)

// ScoreComponents holds one value in [0,100] per channel. All six are mandatory.
type ScoreComponents struct {
	DissolvedOxygen    float64 `json:"dissolvedOxygen"`
	Turbidity          float64 `json:"turbidity"`
	WaterTemperature   float64 `json:"waterTemperature"`
	AlgaeBloomIndex    float64 `json:"algaeBloomIndex"`
	RainfallSewageRisk float64 `json:"rainfallSewageRisk"`
	HumanPressure      float64 `json:"humanPressure"`
}

// Validate rejects non-finite values and values outside [0,100].
func (c ScoreComponents) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"dissolvedOxygen", c.DissolvedOxygen},
		{"turbidity", c.Turbidity},
		{"waterTemperature", c.WaterTemperature},
		{"algaeBloomIndex", c.AlgaeBloomIndex},
		{"rainfallSewageRisk", c.RainfallSewageRisk},
		{"humanPressure", c.HumanPressure},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return invalid("components."+f.name, "must be a finite number")
		}
		if f.value < 0 || f.value > 100 {
			return invalid("components."+f.name, "must be within [0, 100], got %v", f.value)
		}
	}
	return nil
}

// ScoreResult is the output of the score calculator.
type ScoreResult struct {
	Score int        `json:"score"`
	Band  HealthBand `json:"band"`
}

// ComputeHealthScore reduces validated components to a 0-100 score and its band.
// The weighted sum is rounded to the nearest integer with ties going up.
func ComputeHealthScore(c ScoreComponents) (ScoreResult, error) {
	if err := c.Validate(); err != nil {
		return ScoreResult{}, err
	}

	sum := c.DissolvedOxygen*WeightDissolvedOxygen +
		c.Turbidity*WeightTurbidity +
		c.WaterTemperature*WeightWaterTemperature +
		c.AlgaeBloomIndex*WeightAlgaeBloomIndex +
		c.RainfallSewageRisk*WeightRainfallSewageRisk +
		c.HumanPressure*WeightHumanPressure

	score := roundHalfUp(sum)
	return ScoreResult{Score: score, Band: BandOf(score)}, nil
}

// BandOf classifies a rounded score. The ranges partition every integer.
func BandOf(score int) HealthBand {
	switch {
	case score >= 80:
		return BandHealthy
	case score >= 60:
		return BandAtRisk
	case score >= 40:
		return BandDegrading
	default:
		return BandCritical
	}
}

// roundHalfUp snaps the sum to 1e-9 first so that float noise such as
// 80.49999999999999 from an exact 80.5 does not flip the tie.
func roundHalfUp(v float64) int {
	snapped := math.Round(v*1e9) / 1e9
	return int(math.Floor(snapped + 0.5))
}

// HealthScore is a persisted score for one lake at one point in time.
// Build it with NewHealthScore so Band always matches Score.
type HealthScore struct {
	ID         string          `json:"id"`
	LakeID     string          `json:"lakeId"`
	Score      int             `json:"score"`
	Band       HealthBand      `json:"band"`
	Components ScoreComponents `json:"components"`
	Confidence float64         `json:"confidence"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewHealthScore computes score and band from components and stamps the result.
func NewHealthScore(id, lakeID string, c ScoreComponents, confidence float64, at time.Time) (HealthScore, error) {
	if !inRange(confidence, 0, 1) {
		return HealthScore{}, invalid("confidence", "must be within [0, 1], got %v", confidence)
	}
	res, err := ComputeHealthScore(c)
	if err != nil {
		return HealthScore{}, err
	}
	return HealthScore{
		ID:         id,
		LakeID:     lakeID,
		Score:      res.Score,
		Band:       res.Band,
		Components: c,
		Confidence: confidence,
		Timestamp:  at,
	}, nil
}

// Consistent reports whether the stored band agrees with the score. Scores
// loaded from storage or a cache are checked with it before being served.
func (h HealthScore) Consistent() bool {
	return h.Band == BandOf(h.Score)
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// RawComponents is the decoding shape for components supplied by a caller.
// Pointer fields let a missing key be told apart from an explicit zero.
type RawComponents struct {
	DissolvedOxygen    *float64 `json:"dissolvedOxygen"`
	Turbidity          *float64 `json:"turbidity"`
	WaterTemperature   *float64 `json:"waterTemperature"`
	AlgaeBloomIndex    *float64 `json:"algaeBloomIndex"`
	RainfallSewageRisk *float64 `json:"rainfallSewageRisk"`
	HumanPressure      *float64 `json:"humanPressure"`
}

// Components rejects missing keys and returns validated components.
func (r RawComponents) Components() (ScoreComponents, error) {
	fields := []struct {
		name  string
		value *float64
	}{
		{"dissolvedOxygen", r.DissolvedOxygen},
		{"turbidity", r.Turbidity},
		{"waterTemperature", r.WaterTemperature},
		{"algaeBloomIndex", r.AlgaeBloomIndex},
		{"rainfallSewageRisk", r.RainfallSewageRisk},
		{"humanPressure", r.HumanPressure},
	}
	for _, f := range fields {
		if f.value == nil {
			return ScoreComponents{}, invalid("components."+f.name, "is required")
		}
	}
	c := ScoreComponents{
		DissolvedOxygen:    *r.DissolvedOxygen,
		Turbidity:          *r.Turbidity,
		WaterTemperature:   *r.WaterTemperature,
		AlgaeBloomIndex:    *r.AlgaeBloomIndex,
		RainfallSewageRisk: *r.RainfallSewageRisk,
		HumanPressure:      *r.HumanPressure,
	}
	if err := c.Validate(); err != nil {
		return ScoreComponents{}, err
	}
	return c, nil
}

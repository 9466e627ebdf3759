package domain

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// PredictionWindow is a fixed forecast horizon.
type PredictionWindow string

const (
	Window24h PredictionWindow = "24h"
	Window48h PredictionWindow = "48h"
	Window72h PredictionWindow = "72h"
)

// Windows lists the forecast horizons in generation order.
var Windows = [3]PredictionWindow{Window24h, Window48h, Window72h}

// RiskLevel is a coarse classification of a forecast score delta.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var (
	declineCauses = []string{
		"Expected rainfall may increase runoff",
		"Weekend tourist surge anticipated",
	}
	declineRecommendations = []string{
		"Increase patrol near boat ghats and inflow points",
		"Pre-position waste collection teams",
	}
	stableCauses = []string{
		"Weather conditions favorable",
		"Reduced human activity expected",
	}
	stableRecommendations = []string{
		"Maintain current monitoring levels",
		"Continue routine inspections",
	}
)

// Prediction is a forecast of a lake's score over one window.
type Prediction struct {
	ID              string           `json:"id"`
	LakeID          string           `json:"lakeId"`
	Window          PredictionWindow `json:"window"`
	PredictedScore  int              `json:"predictedScore"`
	CurrentScore    int              `json:"currentScore"`
	ScoreDelta      int              `json:"scoreDelta"`
	RiskLevel       RiskLevel        `json:"riskLevel"`
	Confidence      float64          `json:"confidence"`
	Causes          []string         `json:"causes"`
	Recommendations []string         `json:"recommendations"`
	Explanation     string           `json:"explanation"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	ValidUntil      time.Time        `json:"validUntil"`
}

// Expired reports whether the prediction must no longer be treated as current.
func (p Prediction) Expired(now time.Time) bool {
	return !now.Before(p.ValidUntil)
}

// PrimaryCause returns the factor callers display first.
func (p Prediction) PrimaryCause() string {
	if len(p.Causes) == 0 {
		return ""
	}
	return p.Causes[0]
}

// DeltaSource yields the raw score delta for a window index (0, 1, 2).
// Any forecasting model can implement it as long as predictions keep the
// clamp and classification rules below.
type DeltaSource interface {
	Delta(windowIndex int) int
}

// Entropy is the randomness used by the heuristic forecast and by default
// reading synthesis. *rand.Rand from math/rand/v2 satisfies it.
type Entropy interface {
	IntN(n int) int
	Float64() float64
}

// GlobalEntropy draws from the math/rand/v2 top-level generator, which is
// safe for concurrent use.
type GlobalEntropy struct{}

func (GlobalEntropy) IntN(n int) int   { return rand.IntN(n) }
func (GlobalEntropy) Float64() float64 { return rand.Float64() }

// RandomDelta draws uniformly from [-4, +4] for every window.
type RandomDelta struct {
	Entropy Entropy
}

func (r RandomDelta) Delta(int) int {
	return r.Entropy.IntN(9) - 4
}

// FixedDeltas replays a fixed delta per window, mainly for tests and replays.
type FixedDeltas [3]int

func (f FixedDeltas) Delta(windowIndex int) int {
	return f[windowIndex]
}

// GeneratePredictions forecasts the score for 24h, 48h and 72h, in that order.
// The predicted score is always clamped to [0,100].
func GeneratePredictions(lakeID string, currentScore int, src DeltaSource, now time.Time) ([3]Prediction, error) {
	var out [3]Prediction
	if currentScore < 0 || currentScore > 100 {
		return out, invalid("currentScore", "must be within [0, 100], got %d", currentScore)
	}

	for i, window := range Windows {
		delta := src.Delta(i)
		predicted := clamp(currentScore+delta, 0, 100)

		causes, recommendations := stableCauses, stableRecommendations
		if delta < 0 {
			causes, recommendations = declineCauses, declineRecommendations
		}

		out[i] = Prediction{
			ID:              uuid.NewString(),
			LakeID:          lakeID,
			Window:          window,
			PredictedScore:  predicted,
			CurrentScore:    currentScore,
			ScoreDelta:      predicted - currentScore,
			RiskLevel:       RiskLevelOf(delta),
			Confidence:      float64(9-i) / 10,
			Causes:          append([]string(nil), causes...),
			Recommendations: append([]string(nil), recommendations...),
			Explanation:     explain(delta),
			GeneratedAt:     now,
			ValidUntil:      now.Add(time.Duration(i+1) * 24 * time.Hour),
		}
	}
	return out, nil
}

// RiskLevelOf classifies a raw delta. Every delta of -2 or more, including
// strong improvements, is low risk.
func RiskLevelOf(delta int) RiskLevel {
	switch {
	case delta < -5:
		return RiskHigh
	case delta < -2:
		return RiskMedium
	default:
		return RiskLow
	}
}

func explain(delta int) string {
	switch {
	case delta < -3:
		return "Health score is expected to decline significantly due to environmental factors."
	case delta < 0:
		return "Health score is expected to decrease slightly due to environmental factors."
	case delta == 0:
		return "Conditions are expected to remain stable."
	default:
		return "Conditions are expected to remain stable or improve."
	}
}

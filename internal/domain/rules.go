package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Alert triggers recorded in Alert.TriggeredBy.
const (
	TriggerScoreThreshold  = "score_threshold"
	TriggerPredictionModel = "prediction_engine"
	TriggerCitizenReport   = "citizen_report"
)

// DeriveAlerts raises alerts for a freshly computed score and its forecasts.
//
// A critical band raises a critical alert and a degrading band a warning.
// Each prediction with high risk raises a warning and medium risk an info
// alert. Healthy and at-risk scores with low-risk forecasts raise nothing.
func DeriveAlerts(lake Lake, score HealthScore, predictions []Prediction, now time.Time) []Alert {
	var alerts []Alert

	switch score.Band {
	case BandCritical:
		alerts = append(alerts, newAlert(lake, SeverityCritical, TriggerScoreThreshold, now,
			fmt.Sprintf("%s health is critical", lake.Name),
			fmt.Sprintf("Composite health score dropped to %d.", score.Score),
			weakestChannelCause(score.Components),
			"Dispatch a field team and notify the lake authority"))
	case BandDegrading:
		alerts = append(alerts, newAlert(lake, SeverityWarning, TriggerScoreThreshold, now,
			fmt.Sprintf("%s health is degrading", lake.Name),
			fmt.Sprintf("Composite health score is %d.", score.Score),
			weakestChannelCause(score.Components),
			"Increase monitoring frequency"))
	}

	for _, p := range predictions {
		var sev AlertSeverity
		switch p.RiskLevel {
		case RiskHigh:
			sev = SeverityWarning
		case RiskMedium:
			sev = SeverityInfo
		default:
			continue
		}
		var rec string
		if len(p.Recommendations) > 0 {
			rec = p.Recommendations[0]
		}
		alerts = append(alerts, newAlert(lake, sev, TriggerPredictionModel, now,
			fmt.Sprintf("%s forecast to decline within %s", lake.Name, p.Window),
			p.Explanation,
			p.PrimaryCause(),
			rec))
	}
	return alerts
}

func newAlert(lake Lake, sev AlertSeverity, trigger string, now time.Time, title, desc, cause, rec string) Alert {
	return Alert{
		ID:             uuid.NewString(),
		LakeID:         lake.ID,
		LakeName:       lake.Name,
		Severity:       sev,
		Status:         StatusActive,
		Title:          title,
		Description:    desc,
		Cause:          cause,
		Recommendation: rec,
		TriggeredBy:    trigger,
		CreatedAt:      now,
	}
}

// weakestChannelCause names the lowest-scoring channel; ties go to the first
// channel in display order.
func weakestChannelCause(c ScoreComponents) string {
	values := map[SensorChannel]float64{
		DissolvedOxygen:    c.DissolvedOxygen,
		Turbidity:          c.Turbidity,
		WaterTemperature:   c.WaterTemperature,
		AlgaeBloomIndex:    c.AlgaeBloomIndex,
		RainfallSewageRisk: c.RainfallSewageRisk,
		HumanPressure:      c.HumanPressure,
	}
	weakest := Channels[0]
	for _, ch := range Channels[1:] {
		if values[ch] < values[weakest] {
			weakest = ch
		}
	}
	return fmt.Sprintf("%s reading at %.0f", weakest.Info().Label, values[weakest])
}

// DuplicateOf reports whether an open alert already covers the same lake,
// trigger and severity as a, so a repeated sweep does not pile up copies.
func DuplicateOf(a Alert, open []Alert) bool {
	for _, o := range open {
		if o.Open() && o.LakeID == a.LakeID && o.TriggeredBy == a.TriggeredBy && o.Severity == a.Severity {
			return true
		}
	}
	return false
}

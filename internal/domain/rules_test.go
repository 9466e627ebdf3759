package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pichola = Lake{ID: "lake-1", Name: "Lake Pichola"}

func TestDeriveAlerts(t *testing.T) {
	tests := []struct {
		name       string
		components ScoreComponents
		deltas     FixedDeltas
		want       []AlertSeverity
		triggers   []string
	}{
		{"healthy and stable", uniform(90), FixedDeltas{1, 0, -1}, nil, nil},
		{"critical score", uniform(20), FixedDeltas{0, 0, 0}, []AlertSeverity{SeverityCritical}, []string{TriggerScoreThreshold}},
		{"degrading score", uniform(50), FixedDeltas{0, 0, 0}, []AlertSeverity{SeverityWarning}, []string{TriggerScoreThreshold}},
		{
			"risky forecast", uniform(85), FixedDeltas{-8, -3, 2},
			[]AlertSeverity{SeverityWarning, SeverityInfo},
			[]string{TriggerPredictionModel, TriggerPredictionModel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := NewHealthScore("hs", pichola.ID, tt.components, 0.9, at(0))
			require.NoError(t, err)
			preds, err := GeneratePredictions(pichola.ID, score.Score, tt.deltas, at(0))
			require.NoError(t, err)

			alerts := DeriveAlerts(pichola, score, preds[:], at(1))

			require.Len(t, alerts, len(tt.want))
			for i, a := range alerts {
				assert.Equal(t, tt.want[i], a.Severity)
				assert.Equal(t, tt.triggers[i], a.TriggeredBy)
				assert.Equal(t, StatusActive, a.Status)
				assert.Equal(t, at(1), a.CreatedAt)
				assert.Equal(t, "Lake Pichola", a.LakeName)
				assert.NotEmpty(t, a.ID)
			}
		})
	}
}

func TestDeriveAlerts_NamesWeakestChannel(t *testing.T) {
	c := uniform(30)
	c.Turbidity = 10
	score, err := NewHealthScore("hs", pichola.ID, c, 0.9, at(0))
	require.NoError(t, err)

	alerts := DeriveAlerts(pichola, score, nil, at(1))

	require.Len(t, alerts, 1)
	assert.Equal(t, "Turbidity reading at 10", alerts[0].Cause)
}

func TestDuplicateOf(t *testing.T) {
	a := Alert{LakeID: "lake-1", TriggeredBy: TriggerScoreThreshold, Severity: SeverityCritical}

	open := []Alert{{LakeID: "lake-1", TriggeredBy: TriggerScoreThreshold, Severity: SeverityCritical, Status: StatusAcknowledged}}
	assert.True(t, DuplicateOf(a, open))

	resolved := []Alert{{LakeID: "lake-1", TriggeredBy: TriggerScoreThreshold, Severity: SeverityCritical, Status: StatusResolved}}
	assert.False(t, DuplicateOf(a, resolved))

	otherSeverity := []Alert{{LakeID: "lake-1", TriggeredBy: TriggerScoreThreshold, Severity: SeverityWarning, Status: StatusActive}}
	assert.False(t, DuplicateOf(a, otherSeverity))
}

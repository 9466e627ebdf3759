package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReading(t *testing.T) {
	msgTime := time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)
	raw := RawEvent{
		Key:       []byte("lake-1"),
		Value:     []byte(`{"id":"r-1","sensorType":"turbidity","value":64.5,"confidence":0.9}`),
		Timestamp: msgTime,
	}

	r, err := ParseReading(raw)
	require.NoError(t, err)

	assert.Equal(t, "lake-1", r.LakeID)
	assert.Equal(t, Turbidity, r.SensorType)
	assert.Equal(t, 64.5, r.Value)
	assert.Equal(t, msgTime, r.Timestamp)
	assert.Equal(t, "%", r.Unit)
}

func TestParseReading_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"malformed", `{not json`},
		{"unknown channel", `{"lakeId":"l","sensorType":"ph","value":5,"confidence":1,"timestamp":"2026-03-01T00:00:00Z"}`},
		{"out of range", `{"lakeId":"l","sensorType":"turbidity","value":500,"confidence":1,"timestamp":"2026-03-01T00:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReading(RawEvent{Value: []byte(tt.value), Timestamp: at(0)})
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSerializeAlert(t *testing.T) {
	a := Alert{ID: "a-1", LakeID: "lake-1", Severity: SeverityCritical, Status: StatusActive, CreatedAt: at(0)}
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("IST", 19800))

	ev, err := SerializeAlert(EventAlertRaised, a, ts)
	require.NoError(t, err)

	assert.Equal(t, []byte("a-1"), ev.Key)
	assert.Equal(t, EventAlertRaised, ev.Headers["event_type"])
	assert.Equal(t, "lake-1", ev.Headers["lake_id"])
	assert.Equal(t, "2026-03-01T03:30:00Z", ev.Headers["emitted_at"])

	var decoded Alert
	require.NoError(t, json.Unmarshal(ev.Value, &decoded))
	assert.Equal(t, SeverityCritical, decoded.Severity)
}

func TestSerializeHealthScore_UsesCamelCase(t *testing.T) {
	h, err := NewHealthScore("hs-1", "lake-1", uniform(90), 0.9, at(0))
	require.NoError(t, err)

	ev, err := SerializeHealthScore(h)
	require.NoError(t, err)

	assert.Equal(t, EventScoreComputed, ev.Headers["event_type"])
	assert.Contains(t, string(ev.Value), `"lakeId":"lake-1"`)
	assert.Contains(t, string(ev.Value), `"dissolvedOxygen":90`)
}

func TestSerializePrediction(t *testing.T) {
	preds, err := GeneratePredictions("lake-1", 70, FixedDeltas{-6, 0, 1}, at(0))
	require.NoError(t, err)

	ev, err := SerializePrediction(preds[0])
	require.NoError(t, err)

	assert.Equal(t, []byte(preds[0].ID), ev.Key)
	assert.Equal(t, EventPredictionIssued, ev.Headers["event_type"])
	assert.Contains(t, string(ev.Value), `"riskLevel":"high"`)
}

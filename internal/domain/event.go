package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event types carried in the event_type header of published messages.
const (
	EventAlertRaised      = "alert.raised"
	EventAlertTransition  = "alert.transitioned"
	EventPredictionIssued = "prediction.issued"
	EventScoreComputed    = "score.computed"
)

// RawEvent represents an unprocessed message from the readings topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the events topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ParseReading decodes a reading message and validates it. A missing
// timestamp falls back to the message time; a missing unit to the channel's.
func ParseReading(raw RawEvent) (SensorReading, error) {
	var r SensorReading
	if err := json.Unmarshal(raw.Value, &r); err != nil {
		return SensorReading{}, &ValidationError{Message: "malformed reading payload", Err: err}
	}
	if r.LakeID == "" {
		r.LakeID = string(raw.Key)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = raw.Timestamp.UTC()
	}
	if r.Unit == "" {
		r.Unit = r.SensorType.Info().Unit
	}
	if err := r.Validate(); err != nil {
		return SensorReading{}, err
	}
	return r, nil
}

// SerializeAlert builds the event published when an alert is raised or changes state.
func SerializeAlert(eventType string, a Alert, at time.Time) (OutputEvent, error) {
	return serialize(eventType, a.ID, a.LakeID, a, at)
}

// SerializePrediction builds the event for one issued prediction.
func SerializePrediction(p Prediction) (OutputEvent, error) {
	return serialize(EventPredictionIssued, p.ID, p.LakeID, p, p.GeneratedAt)
}

// SerializeHealthScore builds the event for a computed score.
func SerializeHealthScore(h HealthScore) (OutputEvent, error) {
	return serialize(EventScoreComputed, h.ID, h.LakeID, h, h.Timestamp)
}

func serialize(eventType, key, lakeID string, v any, at time.Time) (OutputEvent, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize %s: %w", eventType, err)
	}
	return OutputEvent{
		Key:   []byte(key),
		Value: data,
		Headers: map[string]string{
			"event_type": eventType,
			"lake_id":    lakeID,
			"emitted_at": at.UTC().Format(time.RFC3339),
		},
	}, nil
}
